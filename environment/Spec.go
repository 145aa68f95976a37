package environment

import (
	"fmt"
)

// SpecType determines what kind of specification a Spec is. A Spec can
// specify the layout of an action or an observation
type SpecType int

const (
	Action SpecType = iota
	Observation
)

func (s SpecType) String() string {
	if s == Action {
		return "Action"
	}
	return "Observation"
}

// Cardinality determines the cardinality of a number (discrete or continuous)
type Cardinality string

const (
	Continuous Cardinality = "Continuous"
	Discrete   Cardinality = "Discrete"
)

// Spec implements an environment specification, which tells the type,
// size, and bounds of an action or observation in an environment. For
// discrete specifications, Size is the number of distinct values.
type Spec struct {
	Type       SpecType
	Size       int
	LowerBound float64
	UpperBound float64
	Cardinality
}

// NewSpec constructs a new environment specification
func NewSpec(t SpecType, size int, lowerBound, upperBound float64,
	cardinality Cardinality) Spec {
	if size <= 0 {
		panic(fmt.Sprintf("newSpec: size must be positive, got %v", size))
	}
	if lowerBound > upperBound {
		panic(fmt.Sprintf("newSpec: lower bound %v > upper bound %v",
			lowerBound, upperBound))
	}
	return Spec{t, size, lowerBound, upperBound, cardinality}
}

func (s Spec) String() string {
	return fmt.Sprintf("Spec | %v  |  Size: %v  |  Bounds: [%v, %v]  |  %v",
		s.Type, s.Size, s.LowerBound, s.UpperBound, s.Cardinality)
}
