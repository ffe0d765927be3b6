package report

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/patric-chuzhbe/urlshrtload/internal/stats"
)

// SavePlot draws request latency against elapsed run time into a PNG file.
func SavePlot(points []stats.Point, fileName string) error {
	if len(points) == 0 {
		return fmt.Errorf("no request to plot")
	}

	xys := make(plotter.XYs, len(points))
	for i, point := range points {
		xys[i].X = point.Elapsed.Seconds()
		xys[i].Y = float64(point.Latency.Microseconds()) / 1000
	}

	p := plot.New()
	p.Title.Text = "Latency Over Time"
	p.X.Label.Text = "Time (seconds)"
	p.Y.Label.Text = "Latency (ms)"

	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return fmt.Errorf("could not create latency plot: %w", err)
	}
	scatter.GlyphStyle.Radius = vg.Points(1)
	p.Add(scatter)

	if err := p.Save(10*vg.Inch, 4*vg.Inch, fileName); err != nil {
		return fmt.Errorf("could not save latency plot: %w", err)
	}

	return nil
}
