package environment

import "github.com/samuelfneumann/curiogrid/timestep"

// StepLimit implements the Ender interface to end episodes at specific
// timestep limits
type StepLimit struct {
	episodeSteps int
}

// NewStepLimit creates and returns a new step limit
func NewStepLimit(episodeSteps int) StepLimit {
	return StepLimit{episodeSteps}
}

// Limit returns the number of steps allowed per episode
func (s StepLimit) Limit() int {
	return s.episodeSteps
}

// End determines whether or not the current episode should be cut off.
// If so, the timestep is marked as the last in the episode and as
// truncated. Timesteps that already ended by termination are left alone.
func (s StepLimit) End(t *timestep.TimeStep) bool {
	if t.Terminated() {
		return false
	}
	if t.Number >= s.episodeSteps {
		t.StepType = timestep.Last
		t.EndType = timestep.Truncated
		return true
	}
	return false
}
