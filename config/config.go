// Package config reads the YAML description of a batch of wave problems and
// turns it into validated solver inputs.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gstinoco/WaveGFD/batch"
	"github.com/gstinoco/WaveGFD/cloud"
	"github.com/gstinoco/WaveGFD/cloud/readers"
	"github.com/gstinoco/WaveGFD/neighbors"
	"github.com/gstinoco/WaveGFD/problems"
	"github.com/gstinoco/WaveGFD/utils"
	"github.com/gstinoco/WaveGFD/wave"
	"gonum.org/v1/gonum/spatial/r2"
	"gopkg.in/yaml.v3"
)

// File is the top-level structure of a configuration file
type File struct {
	Output   string          `yaml:"output"`
	Workers  int             `yaml:"workers"` // Problems solved at once
	Defaults Solver          `yaml:"defaults"`
	Problems []ProblemConfig `yaml:"problems"`

	dir string // Base for relative geometry paths
}

// Solver holds solver settings. Unset fields fall back to the file defaults
// and then to the catalog entry of the problem.
type Solver struct {
	C         *float64 `yaml:"c"`
	Steps     *int     `yaml:"steps"`
	Mode      string   `yaml:"mode"`
	Scheme    string   `yaml:"scheme"`
	Lambda    *float64 `yaml:"lambda"`
	NVec      *int     `yaml:"nvec"`
	Strategy  string   `yaml:"strategy"`
	Tolerance *float64 `yaml:"tolerance"`
	MinRank   *int     `yaml:"min_rank"`
	Workers   *int     `yaml:"node_workers"`
}

// ProblemConfig is one problem instance
type ProblemConfig struct {
	Name      string         `yaml:"name"`
	Problem   string         `yaml:"problem"` // Catalog name, see problems.Names
	Geometry  GeometryConfig `yaml:"geometry"`
	Region    string         `yaml:"region"` // Selects the water drop source
	Extra     []float64      `yaml:"extra"`
	Snapshots []int          `yaml:"snapshots"` // Levels to render, negative counts from the end
	Solver    `yaml:",inline"`
}

// GeometryConfig names node and triangle files or a regular grid
type GeometryConfig struct {
	Nodes     string      `yaml:"nodes"`
	Triangles string      `yaml:"triangles"`
	Grid      *GridConfig `yaml:"grid"`
}

// GridConfig describes a regular lattice
type GridConfig struct {
	Nx  int        `yaml:"nx"`
	Ny  int        `yaml:"ny"`
	Min [2]float64 `yaml:"min"`
	Max [2]float64 `yaml:"max"` // Unit square when both are unset

	Triangulate bool `yaml:"triangulate"` // Take neighbors from the grid triangles
}

// Instance is a resolved problem ready to solve
type Instance struct {
	Name      string
	Config    wave.Config
	Problem   wave.Problem
	Snapshots []int
	HasExact  bool // The catalog entry has a closed-form solution
}

// Job converts the instance for the batch runner
func (in Instance) Job() batch.Job {
	return batch.Job{Name: in.Name, Config: in.Config, Problem: in.Problem, HasExact: in.HasExact}
}

// Load reads the configuration file at path. Environment variables in the
// file are expanded and unknown keys are rejected.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not read configuration file '%s': %w", path, err)
	}
	defer f.Close()
	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.dir = filepath.Dir(path)
	return cfg, nil
}

// Parse decodes a configuration from r. Relative paths resolve against the
// working directory.
func Parse(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var cfg File
	decoder := yaml.NewDecoder(strings.NewReader(os.ExpandEnv(string(data))))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, utils.NewSolveError(utils.ConfigurationError, fmt.Errorf("YAML syntax error: %w", err))
	}
	if len(cfg.Problems) == 0 {
		return nil, utils.NewConfigError("problems", "no problems listed")
	}
	seen := make(map[string]bool, len(cfg.Problems))
	for i, p := range cfg.Problems {
		if p.Name == "" {
			return nil, utils.NewConfigError("name", "problem %d has no name", i)
		}
		if seen[p.Name] {
			return nil, utils.NewConfigError("name", "problem %q listed twice", p.Name)
		}
		seen[p.Name] = true
	}
	return &cfg, nil
}

// Instances resolves every problem: catalog lookup, solver settings and
// geometry. The first failing problem stops the resolution.
func (f *File) Instances() ([]Instance, error) {
	out := make([]Instance, 0, len(f.Problems))
	for _, p := range f.Problems {
		in, err := f.resolve(p)
		if err != nil {
			return nil, fmt.Errorf("problem %s: %w", p.Name, err)
		}
		out = append(out, in)
	}
	return out, nil
}

func (f *File) resolve(p ProblemConfig) (Instance, error) {
	def, err := problems.Lookup(p.Problem)
	if err != nil {
		return Instance{}, err
	}
	cfg := def.Config()
	if err = f.Defaults.apply(&cfg); err != nil {
		return Instance{}, err
	}
	if err = p.Solver.apply(&cfg); err != nil {
		return Instance{}, err
	}
	// Configuration is checked before geometry is read
	if err = cfg.Validate(); err != nil {
		return Instance{}, err
	}

	extra := p.Extra
	if extra == nil && p.Region != "" {
		if extra, err = problems.DropSource(p.Region); err != nil {
			return Instance{}, err
		}
	}
	pc, tt, err := f.geometry(p.Geometry)
	if err != nil {
		return Instance{}, err
	}
	snaps, err := snapshots(p.Snapshots, cfg.Steps)
	if err != nil {
		return Instance{}, err
	}
	return Instance{
		Name:      p.Name,
		Config:    cfg,
		Problem:   def.Problem(pc, tt, extra),
		Snapshots: snaps,
		HasExact:  def.HasExact,
	}, nil
}

func (s Solver) apply(cfg *wave.Config) error {
	if s.C != nil {
		cfg.C = *s.C
	}
	if s.Steps != nil {
		cfg.Steps = *s.Steps
	}
	if s.Lambda != nil {
		cfg.Lambda = *s.Lambda
	}
	if s.NVec != nil {
		cfg.NVec = *s.NVec
	}
	if s.Tolerance != nil {
		cfg.Tolerance = *s.Tolerance
	}
	if s.MinRank != nil {
		cfg.MinRank = *s.MinRank
	}
	if s.Workers != nil {
		cfg.Workers = *s.Workers
	}
	var err error
	if s.Mode != "" {
		if cfg.Mode, err = wave.ParseBoundaryMode(s.Mode); err != nil {
			return err
		}
	}
	if s.Scheme != "" {
		if cfg.Scheme, err = wave.ParseScheme(s.Scheme); err != nil {
			return err
		}
	}
	if s.Strategy != "" {
		if cfg.Strategy, err = neighbors.ParseStrategy(s.Strategy); err != nil {
			return err
		}
	}
	return nil
}

func (f *File) path(name string) string {
	if name == "" || filepath.IsAbs(name) || f.dir == "" {
		return name
	}
	return filepath.Join(f.dir, name)
}

func (f *File) geometry(g GeometryConfig) (*cloud.PointCloud, cloud.Triangulation, error) {
	switch {
	case g.Grid != nil && (g.Nodes != "" || g.Triangles != ""):
		return nil, nil, utils.NewConfigError("geometry", "both a grid and geometry files given")
	case g.Grid != nil:
		box := r2.Box{
			Min: r2.Vec{X: g.Grid.Min[0], Y: g.Grid.Min[1]},
			Max: r2.Vec{X: g.Grid.Max[0], Y: g.Grid.Max[1]},
		}
		if box.Max == (r2.Vec{}) && box.Min == (r2.Vec{}) {
			box.Max = r2.Vec{X: 1, Y: 1}
		}
		pc, tt, err := cloud.RegularGrid(g.Grid.Nx, g.Grid.Ny, box)
		if err != nil {
			return nil, nil, err
		}
		if !g.Grid.Triangulate {
			tt = nil
		}
		return pc, tt, nil
	case g.Nodes != "":
		return readers.ReadCloudFile(f.path(g.Nodes), f.path(g.Triangles))
	}
	return nil, nil, utils.NewConfigError("geometry", "no node file or grid given")
}

// snapshots resolves negative levels and checks the range
func snapshots(levels []int, steps int) ([]int, error) {
	out := make([]int, len(levels))
	for i, k := range levels {
		if k < 0 {
			k += steps
		}
		if k < 0 || k >= steps {
			return nil, utils.NewConfigError("snapshots", "level %d not in [0, %d)", levels[i], steps)
		}
		out[i] = k
	}
	return out, nil
}
