// Package problems is a catalog of wave problems with known boundary,
// initial and velocity data.
package problems

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/gstinoco/WaveGFD/cloud"
	"github.com/gstinoco/WaveGFD/utils"
	"github.com/gstinoco/WaveGFD/wave"
)

// Definition describes one catalog entry with its customary parameters
type Definition struct {
	Name        string
	Description string
	F, G        wave.Evaluator
	C           float64
	Mode        wave.BoundaryMode
	Extra       []float64
	HasExact    bool // F solves the wave equation, so it is a true reference
}

// Problem binds the definition to a geometry. A nil extra keeps the
// definition's defaults.
func (d Definition) Problem(pc *cloud.PointCloud, tt cloud.Triangulation, extra []float64) wave.Problem {
	if extra == nil {
		extra = d.Extra
	}
	return wave.Problem{Cloud: pc, Triangles: tt, F: d.F, G: d.G, Extra: extra}
}

// Config returns wave.DefaultConfig adjusted to the definition
func (d Definition) Config() wave.Config {
	cfg := wave.DefaultConfig()
	cfg.C = d.C
	cfg.Mode = d.Mode
	return cfg
}

var (
	// StandingDiagonal is u = cos(pi t) sin(pi (x + y)), exact for c^2 = 1/2
	StandingDiagonal = Definition{
		Name:        "standing-diagonal",
		Description: "cos(pi t) sin(pi (x + y))",
		F: wave.EvaluatorFunc(func(x, y, t float64, _ wave.Params) float64 {
			return math.Cos(math.Pi*t) * math.Sin(math.Pi*(x+y))
		}),
		G: wave.EvaluatorFunc(func(x, y, t float64, _ wave.Params) float64 {
			return -math.Pi * math.Sin(math.Pi*t) * math.Sin(math.Pi*(x+y))
		}),
		C:        math.Sqrt(0.5),
		Mode:     wave.FunctionBoundary,
		HasExact: true,
	}

	// StandingProduct is u = cos(pi c sqrt2 t) sin(pi x) sin(pi y), exact
	// for any c
	StandingProduct = Definition{
		Name:        "standing-product",
		Description: "cos(pi c sqrt2 t) sin(pi x) sin(pi y)",
		F: wave.EvaluatorFunc(func(x, y, t float64, p wave.Params) float64 {
			w := math.Pi * p.C * math.Sqrt2
			return math.Cos(w*t) * math.Sin(math.Pi*x) * math.Sin(math.Pi*y)
		}),
		G: wave.EvaluatorFunc(func(x, y, t float64, p wave.Params) float64 {
			w := math.Pi * p.C * math.Sqrt2
			return -w * math.Sin(w*t) * math.Sin(math.Pi*x) * math.Sin(math.Pi*y)
		}),
		C:        1,
		Mode:     wave.FunctionBoundary,
		HasExact: true,
	}

	// WaterDrop is a narrow Gaussian bump released at rest from Extra[0:2]
	// inside a domain with fixed zero boundary
	WaterDrop = Definition{
		Name:        "water-drop",
		Description: "0.2 exp(-2000 ((x - r0 - c t)^2 + (y - r1 - c t)^2)), g = 0",
		F: wave.EvaluatorFunc(func(x, y, t float64, p wave.Params) float64 {
			r0, r1 := 0.5, 0.5
			if len(p.Extra) >= 2 {
				r0, r1 = p.Extra[0], p.Extra[1]
			}
			dx, dy := x-r0-p.C*t, y-r1-p.C*t
			return 0.2 * math.Exp(-2000*(dx*dx+dy*dy))
		}),
		G:     wave.Zero,
		C:     math.Sqrt(0.5),
		Mode:  wave.ZeroBoundary,
		Extra: []float64{0.5, 0.5},
	}
)

var catalog = map[string]Definition{
	StandingDiagonal.Name: StandingDiagonal,
	StandingProduct.Name:  StandingProduct,
	WaterDrop.Name:        WaterDrop,
}

// Lookup returns the catalog entry called name
func Lookup(name string) (Definition, error) {
	d, ok := catalog[name]
	if !ok {
		return Definition{}, utils.NewConfigError("problem", "unknown problem %q, have %s",
			name, strings.Join(Names(), ", "))
	}
	return d, nil
}

// Names lists the catalog in sorted order
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// dropSources places the water drop inside each of the sample regions
var dropSources = map[string][2]float64{
	"BAN": {0.1, 0.3},
	"BLU": {0.2, 0.35},
	"CAB": {0.7, 0.15},
	"CUA": {0.8, 0.3},
	"CUI": {0.8, 0.3},
	"DOW": {0.35, 0.15},
	"ENG": {0.3, 0.5},
	"GIB": {0.2, 0.3},
	"HAB": {0.8, 0.8},
	"MIC": {0.3, 0.2},
	"PAT": {0.8, 0.8},
	"TIT": {0.25, 0.3},
	"TOB": {0.7, 0.2},
	"UCH": {0.7, 0.45},
	"VAL": {0.8, 0.3},
	"ZIR": {0.7, 0.25},
}

// DropSource returns the drop position used for a named sample region
func DropSource(region string) ([]float64, error) {
	r, ok := dropSources[strings.ToUpper(region)]
	if !ok {
		return nil, utils.NewConfigError("region", "no drop source for region %q", region)
	}
	return []float64{r[0], r[1]}, nil
}

func (d Definition) String() string {
	return fmt.Sprintf("%s: %s (c=%g, %s boundary)", d.Name, d.Description, d.C, d.Mode)
}
