// Package plotting draws learning curves of training metrics
package plotting

import (
	"fmt"
	"sort"

	"github.com/samuelfneumann/curiogrid/utils/intutils"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// MovingAverage returns the trailing moving average of x over window
// entries. The first entries average over all entries seen so far.
func MovingAverage(x []float64, window int) []float64 {
	window = intutils.Max(window, 1)
	out := make([]float64, len(x))
	sum := 0.0
	for i := range x {
		sum += x[i]
		if i >= window {
			sum -= x[i-window]
		}
		out[i] = sum / float64(intutils.Min(i+1, window))
	}
	return out
}

// LearningCurves saves a plot of one smoothed curve per series to path.
// The image format is chosen by the extension of path. Series are drawn
// in order of their names.
func LearningCurves(path, yLabel string, series map[string][]float64,
	window int) error {
	if len(series) == 0 {
		return fmt.Errorf("learningCurves: no series to plot")
	}

	p := plot.New()
	p.Title.Text = "Learning Curves"
	p.X.Label.Text = "Episode"
	p.Y.Label.Text = yLabel
	p.Legend.Top = true

	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		smoothed := MovingAverage(series[name], window)
		pts := make(plotter.XYs, len(smoothed))
		for j := range smoothed {
			pts[j].X = float64(j + 1)
			pts[j].Y = smoothed[j]
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("learningCurves: could not plot %v: %v", name,
				err)
		}
		line.Color = plotutil.Color(i)
		line.Dashes = plotutil.Dashes(i)

		p.Add(line)
		p.Legend.Add(name, line)
	}

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("learningCurves: could not save plot: %v", err)
	}
	return nil
}
