package tracker

import (
	ts "github.com/samuelfneumann/curiogrid/timestep"
)

// Return tracks the episodic return in an experiment. When an
// environment returns a TimeStep, this Tracker will extract the reward
// and accumulate the return for each episode in the experiment.
//
// An episode must finish for its return to be recorded.
type Return struct {
	lastTimeStep   int
	currentReturn  float64
	episodeReturns []float64
}

// NewReturn creates and returns a new *Return Tracker
func NewReturn() *Return {
	return &Return{lastTimeStep: -1}
}

// Track tracks the rewards seen on a timestep. By calling this method
// on every timestep, the Tracker will store all rewards seen in the
// episode, and record the cumulative reward for that episode once the
// last timestep is seen.
//
// Track panics if it is called for non-sequential timesteps
func (r *Return) Track(step ts.TimeStep) {
	checkSequential(r.lastTimeStep, step)

	r.currentReturn += step.Reward
	if !step.Last() {
		r.lastTimeStep = step.Number
		return
	}

	r.episodeReturns = append(r.episodeReturns, r.currentReturn)
	r.currentReturn = 0.0
	r.lastTimeStep = -1
}

// Current returns the return accumulated so far in the current episode
func (r *Return) Current() float64 {
	return r.currentReturn
}

// Data returns a copy of the returns of all completed episodes
func (r *Return) Data() []float64 {
	return append([]float64(nil), r.episodeReturns...)
}
