package plotting

import (
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func TestMovingAverage(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	tests := []struct {
		window int
		want   []float64
	}{
		{1, []float64{1, 2, 3, 4, 5}},
		{2, []float64{1, 1.5, 2.5, 3.5, 4.5}},
		{3, []float64{1, 1.5, 2, 3, 4}},
		{10, []float64{1, 1.5, 2, 2.5, 3}},
		{0, []float64{1, 2, 3, 4, 5}},
	}

	for _, test := range tests {
		got := MovingAverage(x, test.window)
		if !floats.EqualApprox(got, test.want, 1e-12) {
			t.Errorf("window %v: want(%v) have(%v)", test.window, test.want,
				got)
		}
	}
}

func TestLearningCurves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curves.png")
	series := map[string][]float64{
		"baseline": {-5, -4, -4, -3, -1},
		"icm":      {-6, -3, -2, -1, 0},
	}

	if err := LearningCurves(path, "Reward", series, 2); err != nil {
		t.Fatalf("learningCurves: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("plot not written: %v", err)
	}
	if info.Size() == 0 {
		t.Errorf("plot is empty")
	}

	if err := LearningCurves(path, "Reward", nil, 2); err == nil {
		t.Errorf("expected error without series")
	}
}
