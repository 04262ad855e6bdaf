// Package plot renders a single sweep series as an interactive HTML chart or
// a static PNG image.
package plot

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/KaramelBytes/sweepq/internal/sweep"
	"github.com/KaramelBytes/sweepq/internal/utils"
)

// Options label a rendered chart.
type Options struct {
	Title  string
	XLabel string
	YLabel string
}

var errNoSeries = errors.New("no series to plot")

func seriesLabel(s *sweep.Series) string {
	if len(s.Params) > 0 {
		return s.Params.String()
	}
	return s.SignalPath
}

func fillDefaults(o *Options) {
	if o.Title == "" {
		o.Title = "Sweep Series"
	}
	if o.XLabel == "" {
		o.XLabel = "X"
	}
	if o.YLabel == "" {
		o.YLabel = "Y"
	}
}

// axisRange pads the data extent so edge points stay visible.
func axisRange(v []float64) (lo, hi float64) {
	lo, hi = floats.Min(v), floats.Max(v)
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = 1
	}
	return lo - pad, hi + pad
}

// HTML writes an interactive go-echarts line chart of s to path, creating
// parent directories as needed.
func HTML(s *sweep.Series, o Options, path string) error {
	if s == nil || len(s.X) == 0 {
		return errNoSeries
	}
	fillDefaults(&o)

	data := make([]opts.LineData, 0, len(s.X))
	for i := range s.X {
		data = append(data, opts.LineData{Value: []interface{}{s.X[i], s.Y[i]}})
	}
	xmin, xmax := axisRange(s.X)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: o.Title, Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: o.Title, Subtitle: seriesLabel(s)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Min: xmin, Max: xmax, Name: o.XLabel, NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: o.YLabel, NameLocation: "middle", NameGap: 40}),
	)
	line.AddSeries(seriesLabel(s), data,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}))

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return writeOut(path, buf.Bytes())
}

// PNG writes a static gonum/plot line chart of s to path, creating parent
// directories as needed.
func PNG(s *sweep.Series, o Options, path string) error {
	if s == nil || len(s.X) == 0 {
		return errNoSeries
	}
	fillDefaults(&o)

	p := plot.New()
	p.Title.Text = o.Title
	p.X.Label.Text = o.XLabel
	p.Y.Label.Text = o.YLabel
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(s.X))
	for i := range s.X {
		pts[i] = plotter.XY{X: s.X[i], Y: s.Y[i]}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("build line: %w", err)
	}
	line.Color = color.RGBA{B: 255, A: 255}
	line.LineStyle.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add(seriesLabel(s), line)
	p.Legend.Top = true

	writer, err := p.WriterTo(vg.Points(800), vg.Points(450), "png")
	if err != nil {
		return fmt.Errorf("create plot writer: %w", err)
	}
	var buf bytes.Buffer
	if _, err := writer.WriteTo(&buf); err != nil {
		return fmt.Errorf("write plot: %w", err)
	}
	return writeOut(path, buf.Bytes())
}

func writeOut(path string, data []byte) error {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return utils.SafeWriteFile(path, data)
}
