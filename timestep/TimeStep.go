// Package timestep implements timesteps of the agent-environment interaction
package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StepType denotes the type of step that a TimeStep can be, either the first
// environmental step, a middle step, or a last step
type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "First"
	case Last:
		return "Last"
	default:
		return "Mid"
	}
}

// EndType describes why an episode ended. An episode that reached a goal
// state is Terminated, while one that was cut off by a step limit is
// Truncated. Truncated episodes should be bootstrapped from the value of
// their last observation.
type EndType int

const (
	Running EndType = iota
	Terminated
	Truncated
)

func (e EndType) String() string {
	switch e {
	case Terminated:
		return "Terminated"
	case Truncated:
		return "Truncated"
	default:
		return "Running"
	}
}

// TimeStep packages together a single timestep in an environment
type TimeStep struct {
	StepType
	EndType
	Reward      float64
	Observation *mat.VecDense
	Number      int
}

// New returns a new TimeStep
func New(t StepType, r float64, o *mat.VecDense, n int) TimeStep {
	return TimeStep{StepType: t, Reward: r, Observation: o, Number: n}
}

// First returns whether a TimeStep is the first in an episode
func (t TimeStep) First() bool {
	return t.StepType == First
}

// Mid returns whether a TimeStep is a middle step in an episode
func (t TimeStep) Mid() bool {
	return t.StepType == Mid
}

// Last returns whether a TimeStep is the last step in an episode
func (t TimeStep) Last() bool {
	return t.StepType == Last
}

// Terminated returns whether the episode ended by reaching a goal
func (t TimeStep) Terminated() bool {
	return t.EndType == Terminated
}

// Truncated returns whether the episode was cut off by a step limit
func (t TimeStep) Truncated() bool {
	return t.EndType == Truncated
}

func (t TimeStep) String() string {
	str := "TimeStep | Type: %v  |  End: %v  |  Reward:  %.2f  |  " +
		"Step Number:  %v"

	return fmt.Sprintf(str, t.StepType, t.EndType, t.Reward, t.Number)
}

// Transition is a single (s, a, r, s') tuple of agent-environment
// interaction
type Transition struct {
	State     *mat.VecDense
	Action    int
	Reward    float64
	NextState *mat.VecDense
}

// NewTransition returns a transition that owns copies of the argument
// observations, so that later modification of the observations by the
// environment does not alter the transition
func NewTransition(state *mat.VecDense, action int, reward float64,
	nextState *mat.VecDense) Transition {
	return Transition{
		State:     mat.VecDenseCopyOf(state),
		Action:    action,
		Reward:    reward,
		NextState: mat.VecDenseCopyOf(nextState),
	}
}

func (t Transition) String() string {
	return fmt.Sprintf("Transition | Action: %v  |  Reward: %.3f", t.Action,
		t.Reward)
}
