// Package ppo implements a Proximal Policy Optimization agent with a
// discrete actor-critic network, following
// https://arxiv.org/abs/1707.06347.
package ppo

import (
	"fmt"
	"io"
	"math"

	"github.com/samuelfneumann/curiogrid/agent"
	"github.com/samuelfneumann/curiogrid/buffer/gae"
	"github.com/samuelfneumann/curiogrid/initwfn"
	"github.com/samuelfneumann/curiogrid/network"
	"github.com/samuelfneumann/curiogrid/solver"
	"github.com/samuelfneumann/curiogrid/utils/intutils"
	"github.com/samuelfneumann/curiogrid/utils/op"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// PPO implements the clipped surrogate variant of Proximal Policy
// Optimization.
//
// Two copies of the actor-critic network are kept. The behaviour
// network has a batch size of 1 and selects actions. The training
// network has a batch size of MinibatchSize and holds the clipped
// surrogate loss. After each update, the weights of the training network
// are copied to the behaviour network.
type PPO struct {
	Config
	features int
	actions  int

	behaviour   *network.ActorCritic
	behaviourVM G.VM

	trainNet    *network.ActorCritic
	trainVM     G.VM
	solver      *solver.Solver
	actionsNode *G.Node // One-hot actions, (minibatch, actions)
	oldLogpNode *G.Node
	advNode     *G.Node
	retNode     *G.Node
	weightNode  *G.Node // Per-sample weights, 0 for padded rows

	totalLoss    *G.Node
	totalVal     G.Value
	policyVal    G.Value
	valueLossVal G.Value
	entropyVal   G.Value

	policySrc  rand.Source // Action sampling
	shuffleRng *rand.Rand  // Minibatch shuffling

	greedy bool
}

// New creates a new PPO agent for observations of the given number of
// features and the given number of discrete actions. Weight
// initialization, action sampling, and minibatch shuffling each draw from
// a separate source derived from seed.
func New(features, actions int, c Config, seed uint64) (*PPO, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	if features < 1 {
		return nil, fmt.Errorf("new: features must be positive")
	}

	act, err := network.ParseActivation(c.Activation)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	init, err := initwfn.New(c.Init, c.InitGain, seed)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	trainNet, err := network.NewActorCritic(features, c.MinibatchSize,
		actions, c.Hidden, act, init.InitWFn())
	if err != nil {
		return nil, fmt.Errorf("new: could not create training net: %v", err)
	}
	behaviour, err := trainNet.CloneWithBatch(1)
	if err != nil {
		return nil, fmt.Errorf("new: could not create behaviour net: %v",
			err)
	}

	s, err := solver.New(c.Solver, c.LearningRate, c.GradClip)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	p := &PPO{
		Config:     c,
		features:   features,
		actions:    actions,
		behaviour:  behaviour,
		trainNet:   trainNet,
		solver:     s,
		policySrc:  rand.NewSource(seed + 1),
		shuffleRng: rand.New(rand.NewSource(seed + 2)),
	}

	if err := p.buildLoss(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	p.behaviourVM = G.NewTapeMachine(behaviour.Graph())
	p.trainVM = G.NewTapeMachine(trainNet.Graph(),
		G.BindDualValues(trainNet.Learnables()...))

	return p, nil
}

// buildLoss adds the clipped surrogate objective, the value loss, and
// the entropy bonus to the training graph
func (p *PPO) buildLoss() error {
	g := p.trainNet.Graph()
	m := p.MinibatchSize

	p.actionsNode = G.NewMatrix(g, tensor.Float64,
		G.WithShape(m, p.actions), G.WithName("actions"),
		G.WithInit(G.Zeroes()))
	p.oldLogpNode = G.NewVector(g, tensor.Float64, G.WithShape(m),
		G.WithName("oldLogProb"), G.WithInit(G.Zeroes()))
	p.advNode = G.NewVector(g, tensor.Float64, G.WithShape(m),
		G.WithName("advantages"), G.WithInit(G.Zeroes()))
	p.retNode = G.NewVector(g, tensor.Float64, G.WithShape(m),
		G.WithName("returns"), G.WithInit(G.Zeroes()))
	p.weightNode = G.NewVector(g, tensor.Float64, G.WithShape(m),
		G.WithName("weights"), G.WithInit(G.Zeroes()))

	// Log probability of the taken actions under the current policy
	logProbs, err := op.LogSoftmax(p.trainNet.Logits())
	if err != nil {
		return fmt.Errorf("buildLoss: %v", err)
	}
	logp := G.Must(G.Sum(G.Must(G.HadamardProd(logProbs, p.actionsNode)), 1))

	// Clipped surrogate objective
	ratio := G.Must(G.Exp(G.Must(G.Sub(logp, p.oldLogpNode))))
	surrogate := G.Must(G.HadamardProd(ratio, p.advNode))
	clippedRatio, err := op.Clip(ratio, 1-p.ClipEpsilon, 1+p.ClipEpsilon)
	if err != nil {
		return fmt.Errorf("buildLoss: %v", err)
	}
	clipped := G.Must(G.HadamardProd(clippedRatio, p.advNode))
	objective, err := op.Minimum(surrogate, clipped)
	if err != nil {
		return fmt.Errorf("buildLoss: %v", err)
	}
	policyLoss := G.Must(G.Neg(weightedSum(objective, p.weightNode)))

	// Value loss
	valueErr := G.Must(G.Square(G.Must(G.Sub(p.trainNet.Values(),
		p.retNode))))
	valueLoss := weightedSum(valueErr, p.weightNode)

	// Entropy of the policy
	probs := G.Must(G.Exp(logProbs))
	negEntropy := G.Must(G.Sum(G.Must(G.HadamardProd(probs, logProbs)), 1))
	entropy := G.Must(G.Neg(weightedSum(negEntropy, p.weightNode)))

	scaledValue, err := op.Scale(valueLoss, p.ValueCoef)
	if err != nil {
		return fmt.Errorf("buildLoss: %v", err)
	}
	scaledEntropy, err := op.Scale(entropy, p.EntropyCoef)
	if err != nil {
		return fmt.Errorf("buildLoss: %v", err)
	}
	total := G.Must(G.Add(policyLoss, scaledValue))
	total = G.Must(G.Sub(total, scaledEntropy))
	p.totalLoss = total

	G.Read(total, &p.totalVal)
	G.Read(policyLoss, &p.policyVal)
	G.Read(valueLoss, &p.valueLossVal)
	G.Read(entropy, &p.entropyVal)

	if _, err := G.Grad(total, p.trainNet.Learnables()...); err != nil {
		return fmt.Errorf("buildLoss: could not compute gradient: %v", err)
	}
	return nil
}

// weightedSum returns the sum of x weighted element-wise by w
func weightedSum(x, w *G.Node) *G.Node {
	return G.Must(G.Sum(G.Must(G.HadamardProd(x, w))))
}

// Act samples an action for the observation obs. If the agent is in
// greedy mode, the action with the largest probability is selected
// instead.
func (p *PPO) Act(obs *mat.VecDense) (agent.Decision, error) {
	logits, value, err := p.forward(obs)
	if err != nil {
		return agent.Decision{}, fmt.Errorf("act: %v", err)
	}

	logProbs := logSoftmax(logits)
	var action int
	if p.greedy {
		action = floats.MaxIdx(logProbs)
	} else {
		probs := make([]float64, len(logProbs))
		for i := range logProbs {
			probs[i] = math.Exp(logProbs[i])
		}
		action = int(distuv.NewCategorical(probs, p.policySrc).Rand())
	}

	return agent.Decision{
		Action:   action,
		LogProbs: logProbs,
		Value:    value,
	}, nil
}

// Value returns the state value estimate of obs
func (p *PPO) Value(obs *mat.VecDense) (float64, error) {
	_, value, err := p.forward(obs)
	if err != nil {
		return 0, fmt.Errorf("value: %v", err)
	}
	return value, nil
}

// forward runs the behaviour network on a single observation
func (p *PPO) forward(obs *mat.VecDense) ([]float64, float64, error) {
	if obs.Len() != p.features {
		return nil, 0, fmt.Errorf("forward: expected %v features, got %v",
			p.features, obs.Len())
	}
	input := make([]float64, p.features)
	for i := range input {
		input[i] = obs.AtVec(i)
	}

	if err := p.behaviour.SetInput(input); err != nil {
		return nil, 0, fmt.Errorf("forward: could not set input: %v", err)
	}
	if err := p.behaviourVM.RunAll(); err != nil {
		return nil, 0, fmt.Errorf("forward: %v", err)
	}
	logits := p.behaviour.LogitsOutput()
	value := p.behaviour.ValuesOutput()[0]
	p.behaviourVM.Reset()

	return logits, value, nil
}

// Update performs Epochs passes of minibatch updates over the rollout.
// An empty rollout performs no update.
func (p *PPO) Update(r gae.Rollout) (agent.UpdateStats, error) {
	n := r.Len()
	if n == 0 {
		return agent.UpdateStats{}, nil
	}
	if r.ObsSize != p.features {
		return agent.UpdateStats{}, fmt.Errorf("update: expected %v "+
			"features, got %v", p.features, r.ObsSize)
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	var stats agent.UpdateStats
	for epoch := 0; epoch < p.Epochs; epoch++ {
		p.shuffleRng.Shuffle(n, func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})

		for start := 0; start < n; start += p.MinibatchSize {
			end := intutils.Min(start+p.MinibatchSize, n)
			if err := p.step(r, indices[start:end]); err != nil {
				return agent.UpdateStats{}, fmt.Errorf("update: %v", err)
			}

			stats.TotalLoss += p.totalVal.Data().(float64)
			stats.PolicyLoss += p.policyVal.Data().(float64)
			stats.ValueLoss += p.valueLossVal.Data().(float64)
			stats.Entropy += p.entropyVal.Data().(float64)
			stats.Minibatches++
		}
	}

	if err := p.behaviour.Set(p.trainNet); err != nil {
		return agent.UpdateStats{}, fmt.Errorf("update: could not sync "+
			"behaviour network: %v", err)
	}

	k := float64(stats.Minibatches)
	stats.TotalLoss /= k
	stats.PolicyLoss /= k
	stats.ValueLoss /= k
	stats.Entropy /= k
	stats.Steps = n
	return stats, nil
}

// step performs a single gradient step on the rollout entries at the
// given indices. Minibatches smaller than MinibatchSize are padded with
// zero-weighted rows.
func (p *PPO) step(r gae.Rollout, indices []int) error {
	m := p.MinibatchSize
	obs := make([]float64, m*p.features)
	actions := make([]float64, m*p.actions)
	oldLogp := make([]float64, m)
	adv := make([]float64, m)
	ret := make([]float64, m)
	weights := make([]float64, m)

	w := 1.0 / float64(len(indices))
	for row, idx := range indices {
		copy(obs[row*p.features:(row+1)*p.features],
			r.Obs[idx*p.features:(idx+1)*p.features])
		actions[row*p.actions+r.Actions[idx]] = 1.0
		oldLogp[row] = r.LogProbs[idx]
		adv[row] = r.Advantages[idx]
		ret[row] = r.Returns[idx]
		weights[row] = w
	}

	if err := p.trainNet.SetInput(obs); err != nil {
		return fmt.Errorf("step: %v", err)
	}
	lets := []struct {
		node *G.Node
		data []float64
	}{
		{p.actionsNode, actions},
		{p.oldLogpNode, oldLogp},
		{p.advNode, adv},
		{p.retNode, ret},
		{p.weightNode, weights},
	}
	for _, l := range lets {
		t := tensor.New(tensor.WithBacking(l.data),
			tensor.WithShape(l.node.Shape()...))
		if err := G.Let(l.node, t); err != nil {
			return fmt.Errorf("step: %v", err)
		}
	}

	if err := p.trainVM.RunAll(); err != nil {
		return fmt.Errorf("step: %v", err)
	}
	if err := p.solver.Step(G.NodesToValueGrads(
		p.trainNet.Learnables())); err != nil {
		return fmt.Errorf("step: could not step solver: %v", err)
	}
	p.trainVM.Reset()
	return nil
}

// NewRolloutBuffer returns an empty GAE(λ) buffer using the agent's
// discount and trace decay
func (p *PPO) NewRolloutBuffer() (*gae.Buffer, error) {
	return gae.New(p.features, p.Lambda, p.Gamma)
}

// Greedy sets whether the agent selects the most probable action rather
// than sampling
func (p *PPO) Greedy(greedy bool) {
	p.greedy = greedy
}

// Weights returns a copy of the learnable weights of the agent
func (p *PPO) Weights() [][]float64 {
	return network.Weights(p.trainNet.Learnables())
}

// Save writes the agent's weights to w
func (p *PPO) Save(w io.Writer) error {
	return network.Save(w, p.trainNet.Learnables())
}

// Load reads weights saved with Save into both networks of the agent
func (p *PPO) Load(r io.Reader) error {
	if err := network.Load(r, p.trainNet.Learnables()); err != nil {
		return fmt.Errorf("load: %v", err)
	}
	return p.behaviour.Set(p.trainNet)
}

// Close releases the resources held by the agent's virtual machines
func (p *PPO) Close() error {
	if err := p.behaviourVM.Close(); err != nil {
		return err
	}
	return p.trainVM.Close()
}

// logSoftmax returns the log probabilities of a slice of logits
func logSoftmax(logits []float64) []float64 {
	lse := floats.LogSumExp(logits)
	out := make([]float64, len(logits))
	for i := range logits {
		out[i] = logits[i] - lse
	}
	return out
}
