package curiosity

import (
	"math"
	"testing"

	"github.com/samuelfneumann/curiogrid/expreplay"
	"github.com/samuelfneumann/curiogrid/timestep"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	features = 5
	actions  = 4
)

// state returns a one-hot state vector
func state(i int) *mat.VecDense {
	data := make([]float64, features)
	data[i%features] = 1.0
	return mat.NewVecDense(features, data)
}

// chainBatch returns a batch of n transitions on a cycle of one-hot
// states, where action a moves from state i to state i+a+1
func chainBatch(t *testing.T, n int) expreplay.Batch {
	t.Helper()
	buf, err := expreplay.New(n, features, 1)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		a := i % actions
		tr := timestep.NewTransition(state(i), a, 0, state(i+a+1))
		if err := buf.Add(tr); err != nil {
			t.Fatal(err)
		}
	}
	b, err := buf.Sample(n)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func newTestICM(t *testing.T, seed uint64) *ICM {
	t.Helper()
	c := DefaultICMConfig()
	c.FeatureSize = 8
	c.Hidden = 16
	c.BatchSize = 4
	icm, err := NewICM(features, actions, c, seed)
	if err != nil {
		t.Fatalf("newICM: %v", err)
	}
	t.Cleanup(func() { icm.Close() })
	return icm
}

func equalWeights(a, b [][]float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !floats.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func TestIntrinsicRewardLeavesWeights(t *testing.T) {
	icm := newTestICM(t, 1)
	before := icm.Weights()

	for i := 0; i < 10; i++ {
		r, err := icm.IntrinsicReward(state(i), i%actions, state(i+1))
		if err != nil {
			t.Fatalf("intrinsicReward: %v", err)
		}
		if r < 0 || math.IsNaN(r) {
			t.Errorf("invalid intrinsic reward %v", r)
		}
	}

	if !equalWeights(before, icm.Weights()) {
		t.Errorf("intrinsic reward changed weights")
	}
}

func TestIntrinsicRewardDeterministic(t *testing.T) {
	a := newTestICM(t, 3)
	b := newTestICM(t, 3)

	ra, err := a.IntrinsicReward(state(0), 1, state(2))
	if err != nil {
		t.Fatal(err)
	}
	rb, err := b.IntrinsicReward(state(0), 1, state(2))
	if err != nil {
		t.Fatal(err)
	}
	if ra != rb {
		t.Errorf("equal seeds gave rewards %v and %v", ra, rb)
	}

	again, _ := a.IntrinsicReward(state(0), 1, state(2))
	if again != ra {
		t.Errorf("repeated reward: want(%v) have(%v)", ra, again)
	}
}

func TestICMEmptyUpdate(t *testing.T) {
	icm := newTestICM(t, 1)
	before := icm.Weights()

	loss, err := icm.Update(expreplay.Batch{FeatureSize: features})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if loss != 0 {
		t.Errorf("empty update loss: want(0) have(%v)", loss)
	}
	if !equalWeights(before, icm.Weights()) {
		t.Errorf("empty update changed weights")
	}
}

func TestICMUpdate(t *testing.T) {
	icm := newTestICM(t, 1)
	before := icm.Weights()
	rewardBefore, _ := icm.IntrinsicReward(state(0), 0, state(1))

	// Larger than the batch size, so two steps are taken
	loss, err := icm.Update(chainBatch(t, 6))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if loss <= 0 || math.IsNaN(loss) {
		t.Errorf("invalid loss %v", loss)
	}
	if equalWeights(before, icm.Weights()) {
		t.Errorf("update did not change weights")
	}

	// The inference copy is synchronized after an update
	rewardAfter, _ := icm.IntrinsicReward(state(0), 0, state(1))
	if rewardAfter == rewardBefore {
		t.Errorf("intrinsic reward unchanged after update")
	}
}

func TestICMErrors(t *testing.T) {
	icm := newTestICM(t, 1)

	if _, err := icm.IntrinsicReward(state(0), actions, state(1)); err == nil {
		t.Errorf("expected error for invalid action")
	}
	wrong := mat.NewVecDense(features+1, nil)
	if _, err := icm.IntrinsicReward(wrong, 0, state(1)); err == nil {
		t.Errorf("expected error for wrong state size")
	}

	b := chainBatch(t, 2)
	b.FeatureSize++
	if _, err := icm.Update(b); err == nil {
		t.Errorf("expected error for wrong feature size")
	}
}

func TestICMConfigValidate(t *testing.T) {
	if err := DefaultICMConfig().Validate(); err != nil {
		t.Fatalf("default configuration invalid: %v", err)
	}

	c := DefaultICMConfig()
	c.Beta = 1.5
	if err := c.Validate(); err == nil {
		t.Errorf("expected error for β > 1")
	}
	c = DefaultICMConfig()
	c.BatchSize = 0
	if err := c.Validate(); err == nil {
		t.Errorf("expected error for batch size 0")
	}
}

func newTestWorldModel(t *testing.T, seed uint64) *WorldModel {
	t.Helper()
	c := DefaultWorldModelConfig()
	c.Hidden = 32
	c.BatchSize = 8
	c.LearningRate = 1e-2
	w, err := NewWorldModel(features, actions, c, seed)
	if err != nil {
		t.Fatalf("newWorldModel: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func TestWorldModelLearns(t *testing.T) {
	w := newTestWorldModel(t, 2)
	b := chainBatch(t, 8)

	first, err := w.Update(b)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	var last float64
	for i := 0; i < 300; i++ {
		if last, err = w.Update(b); err != nil {
			t.Fatalf("update: %v", err)
		}
	}
	if last >= first {
		t.Errorf("loss did not decrease: first(%v) last(%v)", first, last)
	}

	// The prediction for a trained transition is closer to the true next
	// state than to any other state
	pred, err := w.Predict(state(0), 0)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if pred.Len() != features {
		t.Fatalf("prediction length: want(%v) have(%v)", features, pred.Len())
	}
	if idx := floats.MaxIdx(pred.RawVector().Data); idx != 1 {
		t.Errorf("predicted next state %v, want 1", idx)
	}
}

func TestWorldModelEmptyUpdate(t *testing.T) {
	w := newTestWorldModel(t, 2)
	before := w.Weights()

	if _, err := w.Update(expreplay.Batch{FeatureSize: features}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if !equalWeights(before, w.Weights()) {
		t.Errorf("empty update changed weights")
	}
}

func TestWorldModelErrors(t *testing.T) {
	w := newTestWorldModel(t, 2)
	if _, err := w.Predict(state(0), -1); err == nil {
		t.Errorf("expected error for invalid action")
	}
	if _, err := w.Predict(mat.NewVecDense(1, nil), 0); err == nil {
		t.Errorf("expected error for wrong state size")
	}
}

func TestMinibatchPadding(t *testing.T) {
	b := expreplay.Batch{
		States:      []float64{0, 1, 2, 3, 4, 5},
		Actions:     []int{3, 0, 2},
		Rewards:     []float64{0, 0, 0},
		NextStates:  []float64{10, 11, 12, 13, 14, 15},
		FeatureSize: 2,
	}

	m := newMinibatch(b, 1, 3, 4, actions)
	if !floats.Equal(m.states, []float64{2, 3, 4, 5, 0, 0, 0, 0}) {
		t.Errorf("states = %v", m.states)
	}
	if !floats.Equal(m.nextStates, []float64{12, 13, 14, 15, 0, 0, 0, 0}) {
		t.Errorf("next states = %v", m.nextStates)
	}
	wantActions := []float64{
		1, 0, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
	}
	if !floats.Equal(m.actions, wantActions) {
		t.Errorf("one-hot actions = %v", m.actions)
	}
	if !floats.Equal(m.weights, []float64{0.5, 0.5, 0, 0}) {
		t.Errorf("weights = %v, padded rows should have zero weight",
			m.weights)
	}
}
