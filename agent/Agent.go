// Package agent defines the interfaces through which the training loop
// interacts with policies, dynamics learners, curiosity modules and
// planners
package agent

import (
	"math"

	"github.com/samuelfneumann/curiogrid/buffer/gae"
	"github.com/samuelfneumann/curiogrid/environment/gridworld"
	"github.com/samuelfneumann/curiogrid/expreplay"
	"gonum.org/v1/gonum/mat"
)

// Decision is the output of a stochastic policy for a single observation
type Decision struct {
	Action   int       // Sampled action
	LogProbs []float64 // Log probability of each action
	Value    float64   // State value estimate
}

// LogProb returns the log probability of action a under the policy that
// made the decision. Unknown actions have log probability -Inf.
func (d Decision) LogProb(a int) float64 {
	if a < 0 || a >= len(d.LogProbs) {
		return math.Inf(-1)
	}
	return d.LogProbs[a]
}

// Policy selects actions for observations
type Policy interface {
	// Act samples an action for an observation
	Act(obs *mat.VecDense) (Decision, error)

	// Value returns the state value estimate of an observation
	Value(obs *mat.VecDense) (float64, error)
}

// UpdateStats summarizes a policy update, averaged over minibatches
type UpdateStats struct {
	PolicyLoss  float64
	ValueLoss   float64
	Entropy     float64
	TotalLoss   float64
	Minibatches int
	Steps       int
}

// RolloutLearner is a policy that learns from on-policy rollouts
type RolloutLearner interface {
	Policy

	// Update performs a policy update on a rollout. An empty rollout
	// performs no update.
	Update(gae.Rollout) (UpdateStats, error)

	// NewRolloutBuffer returns an empty rollout buffer configured with
	// the learner's discount and GAE(λ) parameters
	NewRolloutBuffer() (*gae.Buffer, error)
}

// DynamicsLearner learns a model of the environment from batches of
// transitions
type DynamicsLearner interface {
	// Update performs one training step on a batch and returns the
	// training loss. An empty batch performs no update.
	Update(expreplay.Batch) (float64, error)
}

// CuriosityModule is a DynamicsLearner that turns its prediction error
// into an intrinsic reward
type CuriosityModule interface {
	DynamicsLearner

	// IntrinsicReward returns the intrinsic reward of a transition
	// without changing the module's parameters
	IntrinsicReward(state *mat.VecDense, action int,
		nextState *mat.VecDense) (float64, error)
}

// Planner suggests actions from grid positions
type Planner interface {
	SafeSubgoal(gridworld.Position) int
	Reset()
}
