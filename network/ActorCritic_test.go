package network

import (
	"bytes"
	"math"
	"testing"

	"github.com/samuelfneumann/curiogrid/initwfn"
	G "gorgonia.org/gorgonia"
)

func newTestNet(t *testing.T, batch int, seed uint64) *ActorCritic {
	t.Helper()

	init, err := initwfn.NewGlorotU(1, seed)
	if err != nil {
		t.Fatal(err)
	}
	net, err := NewActorCritic(3, batch, 4, []int{8, 8}, ReLU(),
		init.InitWFn())
	if err != nil {
		t.Fatalf("could not create network: %v", err)
	}
	return net
}

// run runs the forward pass of net on input and returns the logits and
// values
func run(t *testing.T, net *ActorCritic, input []float64) ([]float64,
	[]float64) {
	t.Helper()

	vm := G.NewTapeMachine(net.Graph())
	defer vm.Close()

	if err := net.SetInput(input); err != nil {
		t.Fatalf("setInput: %v", err)
	}
	if err := vm.RunAll(); err != nil {
		t.Fatalf("runAll: %v", err)
	}
	return net.LogitsOutput(), net.ValuesOutput()
}

func equal(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-12 {
			return false
		}
	}
	return true
}

func TestActorCriticShapes(t *testing.T) {
	net := newTestNet(t, 2, 0)
	logits, values := run(t, net, []float64{1, 0, 0, 0, 1, 0})

	if len(logits) != 8 {
		t.Errorf("got %d logits, want 8", len(logits))
	}
	if len(values) != 2 {
		t.Errorf("got %d values, want 2", len(values))
	}
	if net.BatchSize() != 2 || net.Features() != 3 || net.Actions() != 4 {
		t.Errorf("unexpected dimensions (%d, %d, %d)", net.BatchSize(),
			net.Features(), net.Actions())
	}
}

func TestCloneWithBatch(t *testing.T) {
	net := newTestNet(t, 2, 1)
	clone, err := net.CloneWithBatch(1)
	if err != nil {
		t.Fatalf("clone: %v", err)
	}

	logits, values := run(t, net, []float64{0.5, -1, 2, 0.5, -1, 2})
	cloneLogits, cloneValues := run(t, clone, []float64{0.5, -1, 2})

	if !equal(logits[:4], cloneLogits) || !equal(values[:1], cloneValues) {
		t.Errorf("clone computes a different function: %v vs %v", logits,
			cloneLogits)
	}
}

func TestSetCopiesWeights(t *testing.T) {
	src := newTestNet(t, 1, 2)
	dest := newTestNet(t, 1, 3)
	input := []float64{1, 2, 3}

	srcLogits, _ := run(t, src, input)
	destLogits, _ := run(t, dest, input)
	if equal(srcLogits, destLogits) {
		t.Fatalf("networks with different seeds should differ")
	}

	if err := dest.Set(src); err != nil {
		t.Fatalf("set: %v", err)
	}
	destLogits, _ = run(t, dest, input)
	if !equal(srcLogits, destLogits) {
		t.Errorf("set did not copy weights: %v vs %v", srcLogits, destLogits)
	}

	// Changing the source afterwards must not affect the destination
	weights := Weights(src.Learnables())
	for i := range weights[0] {
		weights[0][i] += 1
	}
	if err := SetWeights(src.Learnables(), weights); err != nil {
		t.Fatal(err)
	}
	after, _ := run(t, dest, input)
	if !equal(after, destLogits) {
		t.Errorf("destination weights alias the source weights")
	}
}

func TestSaveLoad(t *testing.T) {
	src := newTestNet(t, 1, 4)
	dest := newTestNet(t, 1, 5)

	var buf bytes.Buffer
	if err := Save(&buf, src.Learnables()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := Load(&buf, dest.Learnables()); err != nil {
		t.Fatalf("load: %v", err)
	}

	input := []float64{-1, 0, 1}
	srcLogits, srcValues := run(t, src, input)
	destLogits, destValues := run(t, dest, input)
	if !equal(srcLogits, destLogits) || !equal(srcValues, destValues) {
		t.Errorf("loaded network differs from saved network")
	}
}

func TestNoHiddenLayers(t *testing.T) {
	init, _ := initwfn.NewZeroes()
	net, err := NewActorCritic(2, 1, 4, nil, ReLU(), init.InitWFn())
	if err != nil {
		t.Fatal(err)
	}

	logits, values := run(t, net, []float64{1, 1})
	if !equal(logits, []float64{0, 0, 0, 0}) || values[0] != 0 {
		t.Errorf("zero network produced logits %v and value %v", logits,
			values)
	}
}

func TestParseActivation(t *testing.T) {
	for _, name := range []string{"relu", "ReLU", "tanh", "identity"} {
		if _, err := ParseActivation(name); err != nil {
			t.Errorf("parse %q: %v", name, err)
		}
	}
	if _, err := ParseActivation("softsign"); err == nil {
		t.Errorf("expected error for unknown activation")
	}
}

func TestMLPInputValidation(t *testing.T) {
	g := G.NewGraph()
	init, _ := initwfn.NewZeroes()
	mlp, err := NewMLP(g, "m", 3, []int{4}, 2, ReLU(), Identity(),
		init.InitWFn())
	if err != nil {
		t.Fatal(err)
	}
	if len(mlp.Learnables()) != 4 {
		t.Errorf("got %d learnables, want 4", len(mlp.Learnables()))
	}

	wrong := G.NewMatrix(g, G.Float64, G.WithShape(1, 5), G.WithName("x"),
		G.WithInit(G.Zeroes()))
	if _, err := mlp.Fwd(wrong); err == nil {
		t.Errorf("expected error for wrong input width")
	}

	if _, err := NewMLP(g, "bad", 3, []int{0}, 2, ReLU(), nil,
		init.InitWFn()); err == nil {
		t.Errorf("expected error for empty hidden layer")
	}
}
