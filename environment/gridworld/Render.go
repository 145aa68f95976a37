package gridworld

import (
	"fmt"
	"math"

	"github.com/fogleman/gg"
	"gonum.org/v1/gonum/mat"
)

// Render draws the current state of the grid to a PNG file at path. Each
// cell is cellPixels wide. Red intensity shows risk, blue intensity shows
// cost, visited cells are outlined, the goal is green and the agent is a
// white disc.
func (g *RiskGrid) Render(path string, cellPixels int) error {
	if cellPixels < 1 {
		return fmt.Errorf("render: cell size must be positive, got %d",
			cellPixels)
	}
	n := g.config.Size
	px := float64(cellPixels)

	dc := gg.NewContext(n*cellPixels, n*cellPixels)
	dc.SetRGB(0, 0, 0)
	dc.Clear()

	maxCost := math.Max(mat.Max(g.m.Cost), 1e-8)
	maxRisk := math.Max(mat.Max(g.m.Risk), 1e-8)

	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			x, y := float64(c)*px, float64(r)*px
			risk := g.m.Risk.At(r, c) / maxRisk
			cost := g.m.Cost.At(r, c) / maxCost

			dc.DrawRectangle(x, y, px, px)
			dc.SetRGB(risk, 0.15, cost)
			dc.Fill()

			if g.visited[Position{r, c}.Index(n)] {
				dc.DrawRectangle(x+2, y+2, px-4, px-4)
				dc.SetRGB(1, 1, 0)
				dc.SetLineWidth(2)
				dc.Stroke()
			}
		}
	}

	goal := g.m.Goal
	dc.DrawRectangle(float64(goal.Col)*px+px/4, float64(goal.Row)*px+px/4,
		px/2, px/2)
	dc.SetRGB(0, 1, 0)
	dc.Fill()

	dc.DrawCircle(float64(g.position.Col)*px+px/2,
		float64(g.position.Row)*px+px/2, px/3)
	dc.SetRGB(1, 1, 1)
	dc.Fill()

	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("render: %v", err)
	}
	return nil
}
