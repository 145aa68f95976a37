package timestep

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestStepPredicates(t *testing.T) {
	obs := mat.NewVecDense(2, []float64{1, 2})

	tests := []struct {
		step             TimeStep
		first, mid, last bool
	}{
		{New(First, 0, obs, 0), true, false, false},
		{New(Mid, 1, obs, 1), false, true, false},
		{New(Last, 1, obs, 2), false, false, true},
	}

	for i, test := range tests {
		if test.step.First() != test.first {
			t.Errorf("%d: First() = %v, want %v", i, test.step.First(),
				test.first)
		}
		if test.step.Mid() != test.mid {
			t.Errorf("%d: Mid() = %v, want %v", i, test.step.Mid(), test.mid)
		}
		if test.step.Last() != test.last {
			t.Errorf("%d: Last() = %v, want %v", i, test.step.Last(),
				test.last)
		}
	}
}

func TestEndType(t *testing.T) {
	step := New(Last, 0, nil, 5)
	if step.Terminated() || step.Truncated() {
		t.Fatalf("new timestep should be running, got %v", step.EndType)
	}

	step.EndType = Truncated
	if !step.Truncated() || step.Terminated() {
		t.Errorf("expected truncated timestep, got %v", step.EndType)
	}

	step.EndType = Terminated
	if !step.Terminated() || step.Truncated() {
		t.Errorf("expected terminated timestep, got %v", step.EndType)
	}
}

func TestTransitionCopiesObservations(t *testing.T) {
	s := mat.NewVecDense(2, []float64{1, 2})
	next := mat.NewVecDense(2, []float64{3, 4})

	tr := NewTransition(s, 1, -0.5, next)
	s.SetVec(0, 100)
	next.SetVec(1, 100)

	if tr.State.AtVec(0) != 1 {
		t.Errorf("transition state aliased the observation: %v",
			tr.State.AtVec(0))
	}
	if tr.NextState.AtVec(1) != 4 {
		t.Errorf("transition next state aliased the observation: %v",
			tr.NextState.AtVec(1))
	}
}
