// Package render draws solution levels and error histories as images.
package render

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"

	"github.com/gstinoco/WaveGFD/cloud"
	"github.com/gstinoco/WaveGFD/utils"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	_ "gonum.org/v1/plot/vg/vgimg"
	_ "gonum.org/v1/plot/vg/vgsvg"
)

// Options controls the image size, title and format
type Options struct {
	Width, Height vg.Length
	Title         string
	Format        string // Any format accepted by plot.WriterTo, "png" when empty
}

func (o Options) withDefaults() Options {
	if o.Width == 0 {
		o.Width = 6 * vg.Inch
	}
	if o.Height == 0 {
		o.Height = o.Width
	}
	if o.Format == "" {
		o.Format = "png"
	}
	return o
}

var invalid = color.Gray{Y: 128}

// Snapshot draws every node of pc coloured by its value on a blue to red
// scale
func Snapshot(w io.Writer, pc *cloud.PointCloud, values []float64, opts Options) error {
	if len(values) != pc.Len() {
		return utils.NewConfigError("values", "%d values for %d nodes", len(values), pc.Len())
	}
	opts = opts.withDefaults()
	lo, hi := finiteRange(values)
	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(lo)
	cmap.SetMax(hi)

	xys := make(plotter.XYs, pc.Len())
	for i := range xys {
		p := pc.Point(i)
		xys[i].X, xys[i].Y = p.X, p.Y
	}
	sc, err := plotter.NewScatter(xys)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		gs := draw.GlyphStyle{Radius: vg.Points(2.5), Shape: draw.CircleGlyph{}, Color: invalid}
		if v := values[i]; !math.IsNaN(v) && !math.IsInf(v, 0) {
			if c, err := cmap.At(v); err == nil {
				gs.Color = c
			}
		}
		return gs
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	p.Add(sc)
	return write(w, p, opts)
}

// ErrorHistory plots the per level error against time on a log scale.
// Non-positive errors cannot be drawn on a log axis and are skipped.
func ErrorHistory(w io.Writer, times, errs []float64, opts Options) error {
	if len(times) != len(errs) {
		return utils.NewConfigError("errors", "%d errors for %d levels", len(errs), len(times))
	}
	if opts.Height == 0 && opts.Width != 0 {
		opts.Height = opts.Width / 2
	}
	if opts.Width == 0 && opts.Height == 0 {
		opts.Width, opts.Height = 6*vg.Inch, 3*vg.Inch
	}
	opts = opts.withDefaults()
	xys := make(plotter.XYs, 0, len(errs))
	for k, e := range errs {
		if e > 0 && !math.IsInf(e, 0) {
			xys = append(xys, plotter.XY{X: times[k], Y: e})
		}
	}
	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "t"
	p.Y.Label.Text = "RMS error"
	if len(xys) > 0 {
		line, err := plotter.NewLine(xys)
		if err != nil {
			return fmt.Errorf("error history: %w", err)
		}
		line.Color = color.RGBA{R: 196, A: 255}
		p.Add(line, plotter.NewGrid())
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}
	return write(w, p, opts)
}

// SaveSnapshot writes a snapshot to path, choosing the format from opts
func SaveSnapshot(path string, pc *cloud.PointCloud, values []float64, opts Options) error {
	return toFile(path, func(w io.Writer) error { return Snapshot(w, pc, values, opts) })
}

// SaveErrorHistory writes an error history plot to path
func SaveErrorHistory(path string, times, errs []float64, opts Options) error {
	return toFile(path, func(w io.Writer) error { return ErrorHistory(w, times, errs, opts) })
}

func toFile(path string, fn func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(f)
}

func write(w io.Writer, p *plot.Plot, opts Options) error {
	wt, err := p.WriterTo(opts.Width, opts.Height, opts.Format)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// finiteRange returns the extent of the finite values, widened when flat
func finiteRange(values []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	switch {
	case lo > hi:
		return -1, 1
	case lo == hi:
		return lo - 1, hi + 1
	}
	return lo, hi
}
