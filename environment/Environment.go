// Package environment outlines the interfaces and structs needed to implement
// concrete environments
package environment

import (
	"github.com/samuelfneumann/curiogrid/timestep"
)

// Environment implements a simulated, episodic environment with a discrete
// action space
type Environment interface {
	Reset() timestep.TimeStep // Resets between episodes
	Step(action int) (timestep.TimeStep, error)
	ObservationSpec() Spec
	ActionSpec() Spec
}

// Ender determines when an episode should be cut off
type Ender interface {
	End(*timestep.TimeStep) bool
}
