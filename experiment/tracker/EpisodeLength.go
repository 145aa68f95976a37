package tracker

import (
	ts "github.com/samuelfneumann/curiogrid/timestep"
)

// EpisodeLength tracks the number of steps taken in each episode
type EpisodeLength struct {
	lastTimeStep   int
	episodeLengths []float64
}

// NewEpisodeLength returns a new EpisodeLength Tracker
func NewEpisodeLength() *EpisodeLength {
	return &EpisodeLength{lastTimeStep: -1}
}

// Track records the episode length when it receives the last timestep
// of an episode
func (e *EpisodeLength) Track(step ts.TimeStep) {
	checkSequential(e.lastTimeStep, step)

	if !step.Last() {
		e.lastTimeStep = step.Number
		return
	}
	e.episodeLengths = append(e.episodeLengths, float64(step.Number))
	e.lastTimeStep = -1
}

// Data returns a copy of the lengths of all completed episodes
func (e *EpisodeLength) Data() []float64 {
	return append([]float64(nil), e.episodeLengths...)
}
