package curiosity

import (
	"fmt"

	"github.com/samuelfneumann/curiogrid/expreplay"
	"github.com/samuelfneumann/curiogrid/utils/intutils"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// minibatch holds the inputs of a single gradient step, padded to the
// batch size of a training graph. Padded rows have zero weight.
type minibatch struct {
	states     []float64
	nextStates []float64
	actions    []float64 // One-hot
	weights    []float64
}

// newMinibatch copies rows [start, end) of b into a minibatch of size
// rows
func newMinibatch(b expreplay.Batch, start, end, size,
	numActions int) minibatch {
	f := b.FeatureSize
	m := minibatch{
		states:     make([]float64, size*f),
		nextStates: make([]float64, size*f),
		actions:    make([]float64, size*numActions),
		weights:    make([]float64, size),
	}

	copy(m.states, b.States[start*f:end*f])
	copy(m.nextStates, b.NextStates[start*f:end*f])
	oneHot := b.OneHotActions(numActions)
	copy(m.actions, oneHot[start*numActions:end*numActions])

	w := 1.0 / float64(end-start)
	for row := 0; row < end-start; row++ {
		m.weights[row] = w
	}
	return m
}

// chunks calls fn on consecutive chunks of at most size transitions of b
// and returns the mean of the values fn returns
func chunks(b expreplay.Batch, size int, fn func(start,
	end int) (float64, error)) (float64, error) {
	total, count := 0.0, 0
	for start := 0; start < b.Len(); start += size {
		end := intutils.Min(start+size, b.Len())
		loss, err := fn(start, end)
		if err != nil {
			return 0, err
		}
		total += loss
		count++
	}
	if count == 0 {
		return 0, nil
	}
	return total / float64(count), nil
}

// validActions returns an error if any action of b is outside
// [0, numActions)
func validActions(b expreplay.Batch, numActions int) error {
	for _, a := range b.Actions {
		if a < 0 || a >= numActions {
			return fmt.Errorf("invalid action %v", a)
		}
	}
	return nil
}

// let binds data to a node of the same total size
func let(node *G.Node, data []float64) error {
	t := tensor.New(tensor.WithBacking(data),
		tensor.WithShape(node.Shape()...))
	return G.Let(node, t)
}

// scalar returns the float64 held by a scalar value
func scalar(v G.Value) float64 {
	return v.Data().(float64)
}

// weightedSum returns the sum of x weighted element-wise by w
func weightedSum(x, w *G.Node) *G.Node {
	return G.Must(G.Sum(G.Must(G.HadamardProd(x, w))))
}
