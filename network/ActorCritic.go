package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// ActorCritic is a neural network with a shared trunk of hidden layers
// and two heads: a linear policy head producing one logit per action and
// a linear value head producing a single state value. The network owns its
// computational graph and an input node of shape (batch, features).
type ActorCritic struct {
	g     *G.ExprGraph
	input *G.Node

	trunk  *MLP // nil if there are no hidden layers
	policy *fcLayer
	value  *fcLayer

	logits    *G.Node
	values    *G.Node
	logitsVal G.Value
	valuesVal G.Value

	batch    int
	features int
	actions  int
}

// NewActorCritic creates a new actor-critic network in a new graph. The
// hidden layers use the activation act, and init initializes all weight
// matrices.
func NewActorCritic(features, batch, actions int, hiddenSizes []int,
	act *Activation, init G.InitWFn) (*ActorCritic, error) {
	if batch < 1 {
		return nil, fmt.Errorf("newActorCritic: batch size must be positive")
	}
	if actions < 1 {
		return nil, fmt.Errorf("newActorCritic: need at least one action")
	}

	g := G.NewGraph()
	headInputs := features

	var trunk *MLP
	if len(hiddenSizes) > 0 {
		var err error
		last := len(hiddenSizes) - 1
		trunk, err = NewMLP(g, "trunk", features, hiddenSizes[:last],
			hiddenSizes[last], act, act, init)
		if err != nil {
			return nil, fmt.Errorf("newActorCritic: %v", err)
		}
		headInputs = hiddenSizes[last]
	}

	net := &ActorCritic{
		g:        g,
		trunk:    trunk,
		policy:   newFCLayer(g, "policy", headInputs, actions, true, nil, init),
		value:    newFCLayer(g, "value", headInputs, 1, true, nil, init),
		batch:    batch,
		features: features,
		actions:  actions,
	}

	if err := net.build(); err != nil {
		return nil, fmt.Errorf("newActorCritic: %v", err)
	}
	return net, nil
}

// build adds the input node and the forward pass to the graph
func (a *ActorCritic) build() error {
	a.input = G.NewMatrix(
		a.g,
		tensor.Float64,
		G.WithShape(a.batch, a.features),
		G.WithName("input"),
		G.WithInit(G.Zeroes()),
	)

	hidden := a.input
	if a.trunk != nil {
		var err error
		if hidden, err = a.trunk.Fwd(a.input); err != nil {
			return fmt.Errorf("build: %v", err)
		}
	}

	logits, err := a.policy.fwd(hidden)
	if err != nil {
		return fmt.Errorf("build: policy head: %v", err)
	}
	values, err := a.value.fwd(hidden)
	if err != nil {
		return fmt.Errorf("build: value head: %v", err)
	}
	values, err = G.Reshape(values, tensor.Shape{a.batch})
	if err != nil {
		return fmt.Errorf("build: %v", err)
	}

	a.logits = logits
	a.values = values
	G.Read(a.logits, &a.logitsVal)
	G.Read(a.values, &a.valuesVal)

	return nil
}

// CloneWithBatch returns a copy of the network, including its current
// weights, in a new graph with a new input batch size
func (a *ActorCritic) CloneWithBatch(batch int) (*ActorCritic, error) {
	if batch < 1 {
		return nil, fmt.Errorf("cloneWithBatch: batch size must be positive")
	}

	g := G.NewGraph()
	var trunk *MLP
	if a.trunk != nil {
		trunk = a.trunk.CloneTo(g)
	}

	net := &ActorCritic{
		g:        g,
		trunk:    trunk,
		policy:   a.policy.cloneTo(g),
		value:    a.value.cloneTo(g),
		batch:    batch,
		features: a.features,
		actions:  a.actions,
	}

	if err := net.build(); err != nil {
		return nil, fmt.Errorf("cloneWithBatch: %v", err)
	}
	return net, nil
}

// SetInput sets the value of the input node before running the forward
// pass. The input is row-major with BatchSize() rows of Features()
// columns.
func (a *ActorCritic) SetInput(input []float64) error {
	if len(input) != a.features*a.batch {
		msg := fmt.Sprintf("setInput: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", a.features*a.batch, len(input))
		panic(msg)
	}

	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(a.input.Shape()...),
	)
	return G.Let(a.input, inputTensor)
}

// Set sets the weights of the network to copies of the weights of source
func (a *ActorCritic) Set(source *ActorCritic) error {
	return Set(a.Learnables(), source.Learnables())
}

// Learnables returns the learnable nodes of the network: the trunk, then
// the policy head, then the value head
func (a *ActorCritic) Learnables() G.Nodes {
	var learnables G.Nodes
	if a.trunk != nil {
		learnables = append(learnables, a.trunk.Learnables()...)
	}
	learnables = append(learnables, a.policy.learnables()...)
	return append(learnables, a.value.learnables()...)
}

// Graph returns the computational graph of the network
func (a *ActorCritic) Graph() *G.ExprGraph {
	return a.g
}

// Logits returns the (batch, actions) node of action logits
func (a *ActorCritic) Logits() *G.Node {
	return a.logits
}

// Values returns the (batch) node of state values
func (a *ActorCritic) Values() *G.Node {
	return a.values
}

// LogitsOutput returns a copy of the logits computed by the last run of
// the graph, row-major
func (a *ActorCritic) LogitsOutput() []float64 {
	return copyValue(a.logitsVal)
}

// ValuesOutput returns a copy of the state values computed by the last
// run of the graph
func (a *ActorCritic) ValuesOutput() []float64 {
	return copyValue(a.valuesVal)
}

// BatchSize returns the batch size of inputs to the network
func (a *ActorCritic) BatchSize() int {
	return a.batch
}

// Features returns the number of features in a single observation
func (a *ActorCritic) Features() int {
	return a.features
}

// Actions returns the number of actions the policy head scores
func (a *ActorCritic) Actions() int {
	return a.actions
}

func copyValue(v G.Value) []float64 {
	if v == nil {
		return nil
	}
	data := v.Data().([]float64)
	out := make([]float64, len(data))
	copy(out, data)
	return out
}
