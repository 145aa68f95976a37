package network

import (
	"encoding/gob"
	"fmt"
	"io"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Set sets the values of the dest learnables to copies of the values of
// the source learnables. Values are copied so that later updates to source
// do not change dest.
func Set(dest, source G.Nodes) error {
	if len(dest) != len(source) {
		return fmt.Errorf("set: cannot set %d nodes from %d nodes", len(dest),
			len(source))
	}

	for i := range dest {
		if !dest[i].Shape().Eq(source[i].Shape()) {
			return fmt.Errorf("set: node %v has shape %v but source %v has "+
				"shape %v", dest[i].Name(), dest[i].Shape(), source[i].Name(),
				source[i].Shape())
		}

		value, ok := source[i].Value().(*tensor.Dense)
		if !ok {
			return fmt.Errorf("set: source node %v has no tensor value",
				source[i].Name())
		}
		if err := G.Let(dest[i], value.Clone().(*tensor.Dense)); err != nil {
			return fmt.Errorf("set: %v", err)
		}
	}
	return nil
}

// Weights returns copies of the values of the learnables
func Weights(learnables G.Nodes) [][]float64 {
	weights := make([][]float64, len(learnables))
	for i, node := range learnables {
		data := node.Value().Data().([]float64)
		weights[i] = make([]float64, len(data))
		copy(weights[i], data)
	}
	return weights
}

// SetWeights sets the values of the learnables to copies of weights
func SetWeights(learnables G.Nodes, weights [][]float64) error {
	if len(learnables) != len(weights) {
		return fmt.Errorf("setWeights: have %d weights for %d nodes",
			len(weights), len(learnables))
	}

	for i, node := range learnables {
		if size := node.Shape().TotalSize(); size != len(weights[i]) {
			return fmt.Errorf("setWeights: node %v has %d weights, got %d",
				node.Name(), size, len(weights[i]))
		}

		backing := make([]float64, len(weights[i]))
		copy(backing, weights[i])
		value := tensor.New(
			tensor.WithBacking(backing),
			tensor.WithShape(node.Shape()...),
		)
		if err := G.Let(node, value); err != nil {
			return fmt.Errorf("setWeights: %v", err)
		}
	}
	return nil
}

// Save gob-encodes the values of the learnables to w
func Save(w io.Writer, learnables G.Nodes) error {
	if err := gob.NewEncoder(w).Encode(Weights(learnables)); err != nil {
		return fmt.Errorf("save: %v", err)
	}
	return nil
}

// Load sets the learnables to the values gob-decoded from r
func Load(r io.Reader, learnables G.Nodes) error {
	var weights [][]float64
	if err := gob.NewDecoder(r).Decode(&weights); err != nil {
		return fmt.Errorf("load: %v", err)
	}
	return SetWeights(learnables, weights)
}
