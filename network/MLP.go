package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// MLP is a stack of fully connected layers whose weights live in a single
// computational graph. An MLP does not own an input node: Fwd may be
// called on any matrix node of the graph, any number of times, and each
// call reuses the same weights.
type MLP struct {
	name    string
	layers  []*fcLayer
	inputs  int
	outputs int
}

// NewMLP adds a new MLP to the graph g. Each hidden layer uses the
// activation act, and the output layer of size outputs uses outAct. All
// layers have bias units. Layer weights are named with the prefix name,
// which must be unique within g.
func NewMLP(g *G.ExprGraph, name string, inputs int, hiddenSizes []int,
	outputs int, act, outAct *Activation, init G.InitWFn) (*MLP, error) {
	if inputs < 1 || outputs < 1 {
		return nil, fmt.Errorf("newMLP: inputs (%v) and outputs (%v) must "+
			"be positive", inputs, outputs)
	}

	layers := make([]*fcLayer, 0, len(hiddenSizes)+1)
	in := inputs
	for i, size := range hiddenSizes {
		if size < 1 {
			return nil, fmt.Errorf("newMLP: hidden layer %d has size %d", i,
				size)
		}
		layerName := fmt.Sprintf("%vL%d", name, i)
		layers = append(layers, newFCLayer(g, layerName, in, size, true, act,
			init))
		in = size
	}

	layerName := fmt.Sprintf("%vL%d", name, len(hiddenSizes))
	layers = append(layers, newFCLayer(g, layerName, in, outputs, true,
		outAct, init))

	return &MLP{
		name:    name,
		layers:  layers,
		inputs:  inputs,
		outputs: outputs,
	}, nil
}

// Fwd adds the forward pass of the MLP on the input node to the graph
func (m *MLP) Fwd(input *G.Node) (*G.Node, error) {
	if !input.IsMatrix() {
		return nil, fmt.Errorf("fwd: input must be a matrix")
	}
	if features := input.Shape()[1]; features != m.inputs {
		return nil, fmt.Errorf("fwd: invalid shape for input to %v:"+
			" \n\twant(%v) \n\thave(%v)", m.name, m.inputs, features)
	}

	pred := input
	var err error
	for i, l := range m.layers {
		if pred, err = l.fwd(pred); err != nil {
			msg := "fwd: could not compute forward pass of layer %v: %v"
			return nil, fmt.Errorf(msg, i, err)
		}
	}
	return pred, nil
}

// CloneTo clones the MLP, including its current weights, to the graph g
func (m *MLP) CloneTo(g *G.ExprGraph) *MLP {
	layers := make([]*fcLayer, len(m.layers))
	for i := range m.layers {
		layers[i] = m.layers[i].cloneTo(g)
	}

	return &MLP{
		name:    m.name,
		layers:  layers,
		inputs:  m.inputs,
		outputs: m.outputs,
	}
}

// Learnables returns the learnable nodes of the MLP, layer by layer
func (m *MLP) Learnables() G.Nodes {
	learnables := make(G.Nodes, 0, 2*len(m.layers))
	for _, l := range m.layers {
		learnables = append(learnables, l.learnables()...)
	}
	return learnables
}

// Inputs returns the number of input features of the MLP
func (m *MLP) Inputs() int {
	return m.inputs
}

// Outputs returns the number of outputs of the MLP
func (m *MLP) Outputs() int {
	return m.outputs
}
