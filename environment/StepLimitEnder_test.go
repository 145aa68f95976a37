package environment

import (
	"testing"

	"github.com/samuelfneumann/curiogrid/timestep"
)

func TestStepLimit(t *testing.T) {
	limit := NewStepLimit(3)

	tests := []struct {
		number  int
		end     timestep.EndType
		want    bool
		wantEnd timestep.EndType
	}{
		{1, timestep.Running, false, timestep.Running},
		{3, timestep.Running, true, timestep.Truncated},
		{5, timestep.Running, true, timestep.Truncated},
		{3, timestep.Terminated, false, timestep.Terminated},
	}

	for _, test := range tests {
		step := timestep.New(timestep.Mid, 0, nil, test.number)
		step.EndType = test.end

		if got := limit.End(&step); got != test.want {
			t.Errorf("End() at step %d = %v, want %v", test.number, got,
				test.want)
		}
		if step.EndType != test.wantEnd {
			t.Errorf("end type at step %d = %v, want %v", test.number,
				step.EndType, test.wantEnd)
		}
		if test.want && !step.Last() {
			t.Errorf("step %d should be marked last", test.number)
		}
	}
}
