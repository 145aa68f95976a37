package curiosity

import (
	"fmt"

	"github.com/samuelfneumann/curiogrid/expreplay"
	"github.com/samuelfneumann/curiogrid/initwfn"
	"github.com/samuelfneumann/curiogrid/network"
	"github.com/samuelfneumann/curiogrid/solver"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// WorldModel predicts the next state from a state and an action with a
// single hidden layer network trained on the mean squared error
type WorldModel struct {
	WorldModelConfig
	features int
	actions  int

	net        *network.MLP
	input      *G.Node // State concatenated with the one-hot action
	targetNode *G.Node
	weightNode *G.Node
	lossVal    G.Value
	trainVM    G.VM
	solver     *solver.Solver

	inferNet   *network.MLP
	inferInput *G.Node
	predVal    G.Value
	inferVM    G.VM
}

// NewWorldModel creates a new WorldModel for observations of the given
// number of features and the given number of discrete actions
func NewWorldModel(features, actions int, c WorldModelConfig,
	seed uint64) (*WorldModel, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newWorldModel: %v", err)
	}
	if features < 1 || actions < 1 {
		return nil, fmt.Errorf("newWorldModel: features and actions must " +
			"be positive")
	}

	init, err := initwfn.New(c.Init, c.InitGain, seed)
	if err != nil {
		return nil, fmt.Errorf("newWorldModel: %v", err)
	}
	g := G.NewGraph()
	net, err := network.NewMLP(g, "model", features+actions, []int{c.Hidden},
		features, network.ReLU(), network.Identity(), init.InitWFn())
	if err != nil {
		return nil, fmt.Errorf("newWorldModel: %v", err)
	}

	s, err := solver.New(c.Solver, c.LearningRate, 0)
	if err != nil {
		return nil, fmt.Errorf("newWorldModel: %v", err)
	}

	w := &WorldModel{
		WorldModelConfig: c,
		features:         features,
		actions:          actions,
		net:              net,
		solver:           s,
	}
	if err := w.buildTrain(g); err != nil {
		return nil, fmt.Errorf("newWorldModel: %v", err)
	}
	if err := w.buildInference(); err != nil {
		return nil, fmt.Errorf("newWorldModel: %v", err)
	}
	return w, nil
}

// buildTrain adds the input nodes and the weighted mean squared error
// to the training graph
func (w *WorldModel) buildTrain(g *G.ExprGraph) error {
	b := w.BatchSize
	w.input = G.NewMatrix(g, tensor.Float64,
		G.WithShape(b, w.features+w.actions), G.WithName("input"),
		G.WithInit(G.Zeroes()))
	w.targetNode = G.NewMatrix(g, tensor.Float64,
		G.WithShape(b, w.features), G.WithName("target"),
		G.WithInit(G.Zeroes()))
	w.weightNode = G.NewVector(g, tensor.Float64, G.WithShape(b),
		G.WithName("weights"), G.WithInit(G.Zeroes()))

	pred, err := w.net.Fwd(w.input)
	if err != nil {
		return fmt.Errorf("buildTrain: %v", err)
	}
	sqErr := G.Must(G.Square(G.Must(G.Sub(pred, w.targetNode))))
	loss := weightedSum(G.Must(G.Mean(sqErr, 1)), w.weightNode)
	G.Read(loss, &w.lossVal)

	if _, err := G.Grad(loss, w.net.Learnables()...); err != nil {
		return fmt.Errorf("buildTrain: could not compute gradient: %v", err)
	}
	w.trainVM = G.NewTapeMachine(g, G.BindDualValues(w.net.Learnables()...))
	return nil
}

// buildInference creates the batch size 1 copy of the network used for
// predictions
func (w *WorldModel) buildInference() error {
	g := G.NewGraph()
	w.inferNet = w.net.CloneTo(g)
	w.inferInput = G.NewMatrix(g, tensor.Float64,
		G.WithShape(1, w.features+w.actions), G.WithName("input"),
		G.WithInit(G.Zeroes()))

	pred, err := w.inferNet.Fwd(w.inferInput)
	if err != nil {
		return fmt.Errorf("buildInference: %v", err)
	}
	G.Read(pred, &w.predVal)
	w.inferVM = G.NewTapeMachine(g)
	return nil
}

// Update performs one training step on each chunk of at most BatchSize
// transitions of b and returns the mean loss. An empty batch performs no
// update.
func (w *WorldModel) Update(b expreplay.Batch) (float64, error) {
	if b.Len() == 0 {
		return 0, nil
	}
	if b.FeatureSize != w.features {
		return 0, fmt.Errorf("update: expected %v features, got %v",
			w.features, b.FeatureSize)
	}
	if err := validActions(b, w.actions); err != nil {
		return 0, fmt.Errorf("update: %v", err)
	}

	loss, err := chunks(b, w.BatchSize, func(start, end int) (float64,
		error) {
		return w.step(newMinibatch(b, start, end, w.BatchSize, w.actions))
	})
	if err != nil {
		return 0, fmt.Errorf("update: %v", err)
	}

	if err := network.Set(w.inferNet.Learnables(),
		w.net.Learnables()); err != nil {
		return 0, fmt.Errorf("update: %v", err)
	}
	return loss, nil
}

// step performs a single gradient step
func (w *WorldModel) step(m minibatch) (float64, error) {
	input := w.concat(m.states, m.actions, w.BatchSize)
	if err := let(w.input, input); err != nil {
		return 0, fmt.Errorf("step: %v", err)
	}
	if err := let(w.targetNode, m.nextStates); err != nil {
		return 0, fmt.Errorf("step: %v", err)
	}
	if err := let(w.weightNode, m.weights); err != nil {
		return 0, fmt.Errorf("step: %v", err)
	}

	if err := w.trainVM.RunAll(); err != nil {
		return 0, fmt.Errorf("step: %v", err)
	}
	if err := w.solver.Step(G.NodesToValueGrads(
		w.net.Learnables())); err != nil {
		return 0, fmt.Errorf("step: could not step solver: %v", err)
	}
	loss := scalar(w.lossVal)
	w.trainVM.Reset()
	return loss, nil
}

// concat joins row-major states and one-hot actions row by row
func (w *WorldModel) concat(states, actions []float64, rows int) []float64 {
	cols := w.features + w.actions
	out := make([]float64, rows*cols)
	for r := 0; r < rows; r++ {
		copy(out[r*cols:], states[r*w.features:(r+1)*w.features])
		copy(out[r*cols+w.features:], actions[r*w.actions:(r+1)*w.actions])
	}
	return out
}

// Predict returns the predicted next state after taking action in state
func (w *WorldModel) Predict(state *mat.VecDense,
	action int) (*mat.VecDense, error) {
	if state.Len() != w.features {
		return nil, fmt.Errorf("predict: expected %v features, got %v",
			w.features, state.Len())
	}
	if action < 0 || action >= w.actions {
		return nil, fmt.Errorf("predict: invalid action %v", action)
	}

	oneHot := make([]float64, w.actions)
	oneHot[action] = 1.0
	if err := let(w.inferInput, w.concat(vecData(state), oneHot, 1)); err != nil {
		return nil, fmt.Errorf("predict: %v", err)
	}
	if err := w.inferVM.RunAll(); err != nil {
		return nil, fmt.Errorf("predict: %v", err)
	}
	pred := copyData(w.predVal)
	w.inferVM.Reset()

	return mat.NewVecDense(w.features, pred), nil
}

// Weights returns a copy of the learnable weights of the model
func (w *WorldModel) Weights() [][]float64 {
	return network.Weights(w.net.Learnables())
}

// Close releases the resources held by the model's virtual machines
func (w *WorldModel) Close() error {
	if err := w.trainVM.Close(); err != nil {
		return err
	}
	return w.inferVM.Close()
}
