package intutils

import "testing"

func TestMinMax(t *testing.T) {
	tests := []struct {
		in       []int
		min, max int
	}{
		{[]int{3}, 3, 3},
		{[]int{3, -1, 7}, -1, 7},
		{[]int{5, 5, 2, 9, 9}, 2, 9},
	}

	for _, test := range tests {
		if got := Min(test.in...); got != test.min {
			t.Errorf("Min(%v): want(%v) have(%v)", test.in, test.min, got)
		}
		if got := Max(test.in...); got != test.max {
			t.Errorf("Max(%v): want(%v) have(%v)", test.in, test.max, got)
		}
	}
}
