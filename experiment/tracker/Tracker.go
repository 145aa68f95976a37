// Package tracker implements Trackers, which accumulate per-episode data
// from the TimeSteps of an experiment
package tracker

import (
	"encoding/gob"
	"fmt"
	"io"

	ts "github.com/samuelfneumann/curiogrid/timestep"
)

// Tracker keeps track of experiment data, one value per completed
// episode
type Tracker interface {
	Track(t ts.TimeStep)
	Data() []float64
}

// Save gob-encodes the data of a Tracker to w
func Save(w io.Writer, t Tracker) error {
	if err := gob.NewEncoder(w).Encode(t.Data()); err != nil {
		return fmt.Errorf("save: could not encode tracker data: %v", err)
	}
	return nil
}

// LoadData loads and returns the data saved with Save
func LoadData(r io.Reader) ([]float64, error) {
	var data []float64
	if err := gob.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("loadData: could not decode data: %v", err)
	}
	return data, nil
}

// checkSequential panics if step does not follow the last tracked step
func checkSequential(last int, step ts.TimeStep) {
	if last+1 != step.Number {
		msg := fmt.Sprintf("track: last two timesteps tracked are not "+
			"sequential: timestep %v --> timestep %v were tracked",
			last, step.Number)
		panic(msg)
	}
}
