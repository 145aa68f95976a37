// Package intutils provides helpers for ints
package intutils

// Min returns the minimum of one or more ints
func Min(ints ...int) int {
	min := ints[0]
	for _, val := range ints[1:] {
		if val < min {
			min = val
		}
	}
	return min
}

// Max returns the maximum of one or more ints
func Max(ints ...int) int {
	max := ints[0]
	for _, val := range ints[1:] {
		if val > max {
			max = val
		}
	}
	return max
}
