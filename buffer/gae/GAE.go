// Package gae implements functionality for storing a generalized
// advantage estimate buffer
package gae

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Buffer implements a forward view generalized advantage estimate -
// GAE(λ) - buffer following https://arxiv.org/abs/1506.02438.
//
// The buffer grows with each stored step, so that rollouts of any length
// can be collected. A rollout may contain several trajectories, each
// closed by a call to FinishPath.
type Buffer struct {
	obsSize int // Size of state observations

	pathStartIdx int // Position in the buffer where current trajectory starts

	lambda float64 // λ for GAE(λ) calculation
	gamma  float64 // Discount factor ℽ

	// Buffers for storing data
	obsBuffer  []float64
	actBuffer  []int
	logpBuffer []float64
	advBuffer  []float64
	rewBuffer  []float64
	retBuffer  []float64
	valBuffer  []float64
}

// New creates and returns a new GAE(λ) buffer for observations of obsDim
// features
func New(obsDim int, lambda, gamma float64) (*Buffer, error) {
	if obsDim < 1 {
		return nil, fmt.Errorf("new: observation size must be positive")
	}
	if lambda < 0 || lambda > 1 {
		return nil, fmt.Errorf("new: λ must be in [0, 1], got %v", lambda)
	}
	if gamma < 0 || gamma > 1 {
		return nil, fmt.Errorf("new: ℽ must be in [0, 1], got %v", gamma)
	}

	return &Buffer{
		obsSize: obsDim,
		lambda:  lambda,
		gamma:   gamma,
	}, nil
}

// Store stores a single timestep observation, action, log probability of
// the action under the behaviour policy, reward, and value estimate of the
// observation
func (v *Buffer) Store(obs []float64, act int, logp, rew, val float64) error {
	if len(obs) != v.obsSize {
		return fmt.Errorf("store: illegal obs length \n\twant(%v)\n\thave(%v)",
			v.obsSize, len(obs))
	}

	v.obsBuffer = append(v.obsBuffer, obs...)
	v.actBuffer = append(v.actBuffer, act)
	v.logpBuffer = append(v.logpBuffer, logp)
	v.rewBuffer = append(v.rewBuffer, rew)
	v.valBuffer = append(v.valBuffer, val)
	v.advBuffer = append(v.advBuffer, 0)
	v.retBuffer = append(v.retBuffer, 0)
	return nil
}

// FinishPath computes advantage estimates using GAE(λ) and
// rewards-to-go estimates for each state for the current trajectory.
// This should be called at the end of every trajectory.
//
// The lastVal argument should be 0 if the trajectory ended because
// the agent reached a terminal state, and otherwise it should be
// v(s), the value estimate of the last observed state. This allows for
// bootstrapping the rewards-to-go calculation to account for timesteps
// beyond a truncation.
func (v *Buffer) FinishPath(lastVal float64) {
	start := v.pathStartIdx
	stop := v.Len()
	if start == stop {
		return
	}

	rews := make([]float64, stop-start+1)
	copy(rews, v.rewBuffer[start:stop])
	rews[len(rews)-1] = lastVal

	vals := make([]float64, stop-start+1)
	copy(vals, v.valBuffer[start:stop])
	vals[len(vals)-1] = lastVal

	// GAE-lambda advantage calculation
	n := stop - start
	stateVals := mat.NewVecDense(n, vals[:n])
	nextStateVals := mat.NewVecDense(n, vals[1:])
	rewards := mat.NewVecDense(n, rews[:n])

	deltas := mat.NewVecDense(n, nil)
	deltas.AddScaledVec(rewards, v.gamma, nextStateVals)
	deltas.SubVec(deltas, stateVals)

	copy(v.advBuffer[start:stop], discountCumSum(deltas, v.gamma*v.lambda))

	// Rewards-to-go
	rewsToGo := discountCumSum(mat.NewVecDense(len(rews), rews), v.gamma)
	copy(v.retBuffer[start:stop], rewsToGo[:n])

	v.pathStartIdx = stop
}

// Len returns the number of steps stored in the buffer
func (v *Buffer) Len() int {
	return len(v.actBuffer)
}

// Rollout is a batch of on-policy experience with advantage and return
// estimates. Observations are row-major with ObsSize columns.
type Rollout struct {
	Obs        []float64
	Actions    []int
	LogProbs   []float64
	Advantages []float64
	Returns    []float64
	Values     []float64
	ObsSize    int
}

// Len returns the number of steps in the rollout
func (r Rollout) Len() int {
	return len(r.Actions)
}

// Get returns all data stored in the buffer and empties the buffer.
// Advantages are first standardized to mean 0 and standard deviation 1.
// Every trajectory must have been closed with FinishPath.
func (v *Buffer) Get() (Rollout, error) {
	if v.pathStartIdx != v.Len() {
		return Rollout{}, fmt.Errorf("get: FinishPath must be called " +
			"before getting the rollout")
	}

	// Advantage normalization
	adv := make([]float64, len(v.advBuffer))
	copy(adv, v.advBuffer)
	standardize(adv)

	rollout := Rollout{
		Obs:        v.obsBuffer,
		Actions:    v.actBuffer,
		LogProbs:   v.logpBuffer,
		Advantages: adv,
		Returns:    v.retBuffer,
		Values:     v.valBuffer,
		ObsSize:    v.obsSize,
	}
	v.reset()

	return rollout, nil
}

// reset empties the buffer. Stored data is not reused, so rollouts
// returned by Get remain valid.
func (v *Buffer) reset() {
	v.pathStartIdx = 0
	v.obsBuffer = nil
	v.actBuffer = nil
	v.logpBuffer = nil
	v.advBuffer = nil
	v.rewBuffer = nil
	v.retBuffer = nil
	v.valBuffer = nil
}

// standardize shifts and scales x in place to mean 0 and standard
// deviation 1. With fewer than two elements only the mean is removed.
func standardize(x []float64) {
	if len(x) == 0 {
		return
	}

	mean := stat.Mean(x, nil)
	floats.AddConst(-mean, x)
	if len(x) < 2 {
		return
	}

	std := stat.StdDev(x, nil) + 1e-8
	floats.Scale(1/std, x)
}

// discountCumSum computes and returns the discounted cumulative sum
// of all elements of a vector. Given a vector v = [x0 x1 x2 ... xN]
// and discount ℽ, this function computes and returns:
//
// [
//	x0 + ℽ x1 + ℽ^2 x2 + ℽ^3 x3 + ... + ℽ^(N-1) x(N-1) + ℽ^N xN
//	x1 + ℽ^1 x2 + ℽ^2 x3 + ... + ℽ^(N-2) x(N-1) + ℽ^(N-1) xN
//	x2 + ℽ^1 x3 + ... + ℽ^(N-3) x(N-1) + ℽ^(N-2) xN
// ...
// xN
// ]
func discountCumSum(x *mat.VecDense, discount float64) []float64 {
	cumSums := make([]float64, x.Len())

	running := 0.0
	for i := x.Len() - 1; i >= 0; i-- {
		running = x.AtVec(i) + discount*running
		cumSums[i] = running
	}
	return cumSums
}
