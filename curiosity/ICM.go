// Package curiosity implements learned dynamics models: an intrinsic
// curiosity module, which rewards an agent for transitions its forward
// model predicts poorly, and a plain next-state world model.
package curiosity

import (
	"fmt"

	"github.com/samuelfneumann/curiogrid/expreplay"
	"github.com/samuelfneumann/curiogrid/initwfn"
	"github.com/samuelfneumann/curiogrid/network"
	"github.com/samuelfneumann/curiogrid/solver"
	"github.com/samuelfneumann/curiogrid/utils/op"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// icmModel is the forward computation of an ICM in a single graph at a
// fixed batch size: an encoder φ, an inverse model predicting the action
// from φ(s) and φ(s'), and a forward model predicting φ(s') from φ(s) and
// the action.
type icmModel struct {
	g     *G.ExprGraph
	batch int

	encoder *network.MLP
	inverse *network.MLP
	forward *network.MLP

	state   *G.Node
	next    *G.Node
	actions *G.Node

	phiNext *G.Node
	pred    *G.Node
	logits  *G.Node

	phiNextVal G.Value
	predVal    G.Value
}

func newICMModel(g *G.ExprGraph, batch, features, actions int, encoder,
	inverse, forward *network.MLP) (*icmModel, error) {
	m := &icmModel{
		g:       g,
		batch:   batch,
		encoder: encoder,
		inverse: inverse,
		forward: forward,
	}

	m.state = G.NewMatrix(g, tensor.Float64, G.WithShape(batch, features),
		G.WithName("state"), G.WithInit(G.Zeroes()))
	m.next = G.NewMatrix(g, tensor.Float64, G.WithShape(batch, features),
		G.WithName("nextState"), G.WithInit(G.Zeroes()))
	m.actions = G.NewMatrix(g, tensor.Float64, G.WithShape(batch, actions),
		G.WithName("actions"), G.WithInit(G.Zeroes()))

	phi, err := encoder.Fwd(m.state)
	if err != nil {
		return nil, fmt.Errorf("newICMModel: %v", err)
	}
	if m.phiNext, err = encoder.Fwd(m.next); err != nil {
		return nil, fmt.Errorf("newICMModel: %v", err)
	}

	inverseIn, err := G.Concat(1, phi, m.phiNext)
	if err != nil {
		return nil, fmt.Errorf("newICMModel: %v", err)
	}
	if m.logits, err = inverse.Fwd(inverseIn); err != nil {
		return nil, fmt.Errorf("newICMModel: inverse model: %v", err)
	}

	forwardIn, err := G.Concat(1, phi, m.actions)
	if err != nil {
		return nil, fmt.Errorf("newICMModel: %v", err)
	}
	if m.pred, err = forward.Fwd(forwardIn); err != nil {
		return nil, fmt.Errorf("newICMModel: forward model: %v", err)
	}

	G.Read(m.phiNext, &m.phiNextVal)
	G.Read(m.pred, &m.predVal)
	return m, nil
}

// cloneWithBatch clones the model, including its weights, to a new graph
// with a new batch size
func (m *icmModel) cloneWithBatch(batch int) (*icmModel, error) {
	g := G.NewGraph()
	features := m.state.Shape()[1]
	actions := m.actions.Shape()[1]
	return newICMModel(g, batch, features, actions, m.encoder.CloneTo(g),
		m.inverse.CloneTo(g), m.forward.CloneTo(g))
}

func (m *icmModel) learnables() G.Nodes {
	var learnables G.Nodes
	learnables = append(learnables, m.encoder.Learnables()...)
	learnables = append(learnables, m.inverse.Learnables()...)
	return append(learnables, m.forward.Learnables()...)
}

func (m *icmModel) setInputs(states, nextStates, actions []float64) error {
	if err := let(m.state, states); err != nil {
		return err
	}
	if err := let(m.next, nextStates); err != nil {
		return err
	}
	return let(m.actions, actions)
}

// ICM implements an intrinsic curiosity module following
// https://arxiv.org/abs/1705.05363.
//
// The module keeps three copies of its networks. The training copy holds
// the loss
//
//	(1 - β) CE(inverse(φ(s), φ(s')), a) + β ½ mean (φ̂(s') - φ(s'))²
//
// where the target φ(s') of the forward loss is computed by a copy of the
// encoder at the training batch size and fed to the training graph as a
// constant, so the forward loss does not move the target encoding. The
// inference copy has a batch size of 1 and computes intrinsic rewards.
type ICM struct {
	ICMConfig
	features int
	actions  int

	train   *icmModel
	trainVM G.VM
	solver  *solver.Solver

	targetNode *G.Node
	weightNode *G.Node
	lossVal    G.Value

	target   *icmModel
	targetVM G.VM

	infer   *icmModel
	inferVM G.VM
}

// NewICM creates a new ICM for observations of the given number of
// features and the given number of discrete actions
func NewICM(features, actions int, c ICMConfig, seed uint64) (*ICM, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newICM: %v", err)
	}
	if features < 1 || actions < 1 {
		return nil, fmt.Errorf("newICM: features and actions must be " +
			"positive")
	}

	init, err := initwfn.New(c.Init, c.InitGain, seed)
	if err != nil {
		return nil, fmt.Errorf("newICM: %v", err)
	}
	relu := network.ReLU()
	g := G.NewGraph()

	encoder, err := network.NewMLP(g, "encoder", features, []int{c.Hidden},
		c.FeatureSize, relu, relu, init.InitWFn())
	if err != nil {
		return nil, fmt.Errorf("newICM: encoder: %v", err)
	}
	inverse, err := network.NewMLP(g, "inverse", 2*c.FeatureSize,
		[]int{c.Hidden}, actions, relu, network.Identity(), init.InitWFn())
	if err != nil {
		return nil, fmt.Errorf("newICM: inverse model: %v", err)
	}
	forward, err := network.NewMLP(g, "forward", c.FeatureSize+actions,
		[]int{c.Hidden}, c.FeatureSize, relu, network.Identity(),
		init.InitWFn())
	if err != nil {
		return nil, fmt.Errorf("newICM: forward model: %v", err)
	}

	train, err := newICMModel(g, c.BatchSize, features, actions, encoder,
		inverse, forward)
	if err != nil {
		return nil, fmt.Errorf("newICM: %v", err)
	}
	target, err := train.cloneWithBatch(c.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("newICM: %v", err)
	}
	infer, err := train.cloneWithBatch(1)
	if err != nil {
		return nil, fmt.Errorf("newICM: %v", err)
	}

	s, err := solver.New(c.Solver, c.LearningRate, 0)
	if err != nil {
		return nil, fmt.Errorf("newICM: %v", err)
	}

	icm := &ICM{
		ICMConfig: c,
		features:  features,
		actions:   actions,
		train:     train,
		solver:    s,
		target:    target,
		infer:     infer,
	}
	if err := icm.buildLoss(); err != nil {
		return nil, fmt.Errorf("newICM: %v", err)
	}

	icm.trainVM = G.NewTapeMachine(g, G.BindDualValues(train.learnables()...))
	icm.targetVM = G.NewTapeMachine(target.g)
	icm.inferVM = G.NewTapeMachine(infer.g)
	return icm, nil
}

// buildLoss adds the weighted inverse and forward losses to the training
// graph
func (i *ICM) buildLoss() error {
	g := i.train.g
	b := i.BatchSize

	i.targetNode = G.NewMatrix(g, tensor.Float64,
		G.WithShape(b, i.FeatureSize), G.WithName("targetFeatures"),
		G.WithInit(G.Zeroes()))
	i.weightNode = G.NewVector(g, tensor.Float64, G.WithShape(b),
		G.WithName("weights"), G.WithInit(G.Zeroes()))

	// Inverse model cross-entropy
	logProbs, err := op.LogSoftmax(i.train.logits)
	if err != nil {
		return fmt.Errorf("buildLoss: %v", err)
	}
	ce := G.Must(G.Sum(G.Must(G.HadamardProd(logProbs, i.train.actions)), 1))
	inverseLoss := G.Must(G.Neg(weightedSum(ce, i.weightNode)))

	// Forward model squared error
	sqErr := G.Must(G.Square(G.Must(G.Sub(i.train.pred, i.targetNode))))
	forwardLoss := weightedSum(G.Must(G.Mean(sqErr, 1)), i.weightNode)

	scaledInverse, err := op.Scale(inverseLoss, 1-i.Beta)
	if err != nil {
		return fmt.Errorf("buildLoss: %v", err)
	}
	scaledForward, err := op.Scale(forwardLoss, 0.5*i.Beta)
	if err != nil {
		return fmt.Errorf("buildLoss: %v", err)
	}
	loss := G.Must(G.Add(scaledInverse, scaledForward))
	G.Read(loss, &i.lossVal)

	if _, err := G.Grad(loss, i.train.learnables()...); err != nil {
		return fmt.Errorf("buildLoss: could not compute gradient: %v", err)
	}
	return nil
}

// Update performs one training step on each chunk of at most BatchSize
// transitions of b and returns the mean loss. An empty batch performs no
// update.
func (i *ICM) Update(b expreplay.Batch) (float64, error) {
	if b.Len() == 0 {
		return 0, nil
	}
	if b.FeatureSize != i.features {
		return 0, fmt.Errorf("update: expected %v features, got %v",
			i.features, b.FeatureSize)
	}
	if err := validActions(b, i.actions); err != nil {
		return 0, fmt.Errorf("update: %v", err)
	}

	loss, err := chunks(b, i.BatchSize, func(start, end int) (float64,
		error) {
		m := newMinibatch(b, start, end, i.BatchSize, i.actions)
		return i.step(m)
	})
	if err != nil {
		return 0, fmt.Errorf("update: %v", err)
	}
	return loss, nil
}

// step performs a single gradient step
func (i *ICM) step(m minibatch) (float64, error) {
	// Target encoding of the next states
	if err := i.target.setInputs(m.states, m.nextStates, m.actions); err != nil {
		return 0, fmt.Errorf("step: %v", err)
	}
	if err := i.targetVM.RunAll(); err != nil {
		return 0, fmt.Errorf("step: %v", err)
	}
	targets := copyData(i.target.phiNextVal)
	i.targetVM.Reset()

	if err := i.train.setInputs(m.states, m.nextStates, m.actions); err != nil {
		return 0, fmt.Errorf("step: %v", err)
	}
	if err := let(i.targetNode, targets); err != nil {
		return 0, fmt.Errorf("step: %v", err)
	}
	if err := let(i.weightNode, m.weights); err != nil {
		return 0, fmt.Errorf("step: %v", err)
	}

	if err := i.trainVM.RunAll(); err != nil {
		return 0, fmt.Errorf("step: %v", err)
	}
	if err := i.solver.Step(G.NodesToValueGrads(
		i.train.learnables())); err != nil {
		return 0, fmt.Errorf("step: could not step solver: %v", err)
	}
	loss := scalar(i.lossVal)
	i.trainVM.Reset()

	if err := network.Set(i.target.learnables(),
		i.train.learnables()); err != nil {
		return 0, fmt.Errorf("step: %v", err)
	}
	if err := network.Set(i.infer.learnables(),
		i.train.learnables()); err != nil {
		return 0, fmt.Errorf("step: %v", err)
	}
	return loss, nil
}

// IntrinsicReward returns Eta times half the mean squared error between
// the predicted and the actual encoding of the next state. Parameters
// are not changed.
func (i *ICM) IntrinsicReward(state *mat.VecDense, action int,
	nextState *mat.VecDense) (float64, error) {
	if state.Len() != i.features || nextState.Len() != i.features {
		return 0, fmt.Errorf("intrinsicReward: expected %v features, got "+
			"%v and %v", i.features, state.Len(), nextState.Len())
	}
	if action < 0 || action >= i.actions {
		return 0, fmt.Errorf("intrinsicReward: invalid action %v", action)
	}

	oneHot := make([]float64, i.actions)
	oneHot[action] = 1.0
	err := i.infer.setInputs(vecData(state), vecData(nextState), oneHot)
	if err != nil {
		return 0, fmt.Errorf("intrinsicReward: %v", err)
	}
	if err := i.inferVM.RunAll(); err != nil {
		return 0, fmt.Errorf("intrinsicReward: %v", err)
	}
	pred := copyData(i.infer.predVal)
	target := copyData(i.infer.phiNextVal)
	i.inferVM.Reset()

	sqErr := 0.0
	for k := range pred {
		diff := pred[k] - target[k]
		sqErr += diff * diff
	}
	return i.Eta * 0.5 * sqErr / float64(len(pred)), nil
}

// Weights returns a copy of the learnable weights of the module
func (i *ICM) Weights() [][]float64 {
	return network.Weights(i.train.learnables())
}

// Close releases the resources held by the module's virtual machines
func (i *ICM) Close() error {
	for _, vm := range []G.VM{i.trainVM, i.targetVM, i.inferVM} {
		if err := vm.Close(); err != nil {
			return err
		}
	}
	return nil
}

func copyData(v G.Value) []float64 {
	data := v.Data().([]float64)
	out := make([]float64, len(data))
	copy(out, data)
	return out
}

func vecData(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}
