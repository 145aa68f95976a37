package ppo

import (
	"bytes"
	"math"
	"testing"

	"github.com/samuelfneumann/curiogrid/buffer/gae"
	"github.com/samuelfneumann/curiogrid/network"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	features = 6
	actions  = 4
)

func testConfig() Config {
	c := DefaultConfig()
	c.Hidden = []int{16}
	c.MinibatchSize = 8
	c.Epochs = 2
	return c
}

func newTestAgent(t *testing.T, c Config, seed uint64) *PPO {
	t.Helper()
	p, err := New(features, actions, c, seed)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func observation(i int) *mat.VecDense {
	data := make([]float64, features)
	data[i%features] = 1.0
	return mat.NewVecDense(features, data)
}

// collect gathers a rollout of one-step episodes in which action 0 is
// rewarded
func collect(t *testing.T, p *PPO, episodes int) gae.Rollout {
	t.Helper()
	buf, err := p.NewRolloutBuffer()
	if err != nil {
		t.Fatalf("newRolloutBuffer: %v", err)
	}
	for i := 0; i < episodes; i++ {
		obs := observation(i)
		d, err := p.Act(obs)
		if err != nil {
			t.Fatalf("act: %v", err)
		}
		reward := 0.0
		if d.Action == 0 {
			reward = 1.0
		}
		if err := buf.Store(obs.RawVector().Data, d.Action,
			d.LogProb(d.Action), reward, d.Value); err != nil {
			t.Fatalf("store: %v", err)
		}
		buf.FinishPath(0)
	}

	r, err := buf.Get()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	return r
}

func TestActDecision(t *testing.T) {
	p := newTestAgent(t, testConfig(), 1)

	for i := 0; i < 10; i++ {
		d, err := p.Act(observation(i))
		if err != nil {
			t.Fatalf("act: %v", err)
		}
		if d.Action < 0 || d.Action >= actions {
			t.Errorf("action %v out of range", d.Action)
		}
		if len(d.LogProbs) != actions {
			t.Fatalf("expected %v log probabilities, got %v", actions,
				len(d.LogProbs))
		}
		sum := 0.0
		for _, lp := range d.LogProbs {
			sum += math.Exp(lp)
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("probabilities sum to %v", sum)
		}
		if math.IsNaN(d.Value) || math.IsInf(d.Value, 0) {
			t.Errorf("invalid value estimate %v", d.Value)
		}

		v, err := p.Value(observation(i))
		if err != nil {
			t.Fatalf("value: %v", err)
		}
		if v != d.Value {
			t.Errorf("value: want(%v) have(%v)", d.Value, v)
		}
	}

	d, err := p.Act(observation(0))
	if err != nil {
		t.Fatalf("act: %v", err)
	}
	if !math.IsInf(d.LogProb(actions), -1) || !math.IsInf(d.LogProb(-1), -1) {
		t.Errorf("log probability of unknown action should be -Inf")
	}
}

func TestActRejectsWrongFeatures(t *testing.T) {
	p := newTestAgent(t, testConfig(), 1)
	if _, err := p.Act(mat.NewVecDense(features+1, nil)); err == nil {
		t.Errorf("expected error for wrong observation size")
	}
}

func TestSeedDeterminism(t *testing.T) {
	a := newTestAgent(t, testConfig(), 7)
	b := newTestAgent(t, testConfig(), 7)

	if !equalWeights(a.Weights(), b.Weights()) {
		t.Fatalf("agents with equal seeds have different weights")
	}
	for i := 0; i < 50; i++ {
		da, _ := a.Act(observation(i))
		db, _ := b.Act(observation(i))
		if da.Action != db.Action {
			t.Fatalf("step %v: actions differ: %v and %v", i, da.Action,
				db.Action)
		}
	}
}

func TestEmptyUpdate(t *testing.T) {
	p := newTestAgent(t, testConfig(), 3)
	before := p.Weights()

	buf, err := p.NewRolloutBuffer()
	if err != nil {
		t.Fatal(err)
	}
	r, err := buf.Get()
	if err != nil {
		t.Fatal(err)
	}

	stats, err := p.Update(r)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if stats.Steps != 0 || stats.Minibatches != 0 {
		t.Errorf("expected empty stats, got %+v", stats)
	}
	if !equalWeights(before, p.Weights()) {
		t.Errorf("empty update changed weights")
	}
}

func TestUpdateChangesWeights(t *testing.T) {
	p := newTestAgent(t, testConfig(), 3)
	before := p.Weights()

	r := collect(t, p, 13)

	stats, err := p.Update(r)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if stats.Steps != 13 {
		t.Errorf("steps: want(13) have(%v)", stats.Steps)
	}
	// 13 samples in minibatches of 8 for 2 epochs
	if stats.Minibatches != 4 {
		t.Errorf("minibatches: want(4) have(%v)", stats.Minibatches)
	}
	if math.IsNaN(stats.TotalLoss) || stats.Entropy <= 0 {
		t.Errorf("invalid stats %+v", stats)
	}
	if equalWeights(before, p.Weights()) {
		t.Errorf("update did not change weights")
	}

	// The behaviour network is synchronized with the training network
	if !equalWeights(network.Weights(p.behaviour.Learnables()),
		p.Weights()) {
		t.Errorf("behaviour network not synchronized after update")
	}
}

func TestUpdateRejectsWrongFeatures(t *testing.T) {
	p := newTestAgent(t, testConfig(), 3)
	r := collect(t, p, 4)
	r.ObsSize++
	if _, err := p.Update(r); err == nil {
		t.Errorf("expected error for wrong observation size")
	}
}

func TestLearnsRewardedAction(t *testing.T) {
	c := testConfig()
	c.LearningRate = 1e-2
	c.EntropyCoef = 0
	p := newTestAgent(t, c, 11)

	prob := func() float64 {
		total := 0.0
		for i := 0; i < features; i++ {
			d, err := p.Act(observation(i))
			if err != nil {
				t.Fatal(err)
			}
			total += math.Exp(d.LogProbs[0])
		}
		return total / features
	}

	before := prob()
	for iter := 0; iter < 20; iter++ {
		if _, err := p.Update(collect(t, p, 64)); err != nil {
			t.Fatalf("update: %v", err)
		}
	}
	after := prob()

	if after <= before {
		t.Errorf("probability of rewarded action did not increase: "+
			"before(%v) after(%v)", before, after)
	}
}

func TestGreedy(t *testing.T) {
	p := newTestAgent(t, testConfig(), 5)
	p.Greedy(true)

	for i := 0; i < features; i++ {
		d, err := p.Act(observation(i))
		if err != nil {
			t.Fatal(err)
		}
		if d.Action != floats.MaxIdx(d.LogProbs) {
			t.Errorf("greedy action %v is not the most probable", d.Action)
		}
	}
}

func TestSaveLoad(t *testing.T) {
	a := newTestAgent(t, testConfig(), 1)
	b := newTestAgent(t, testConfig(), 2)

	var buf bytes.Buffer
	if err := a.Save(&buf); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := b.Load(&buf); err != nil {
		t.Fatalf("load: %v", err)
	}

	for i := 0; i < features; i++ {
		da, _ := a.Act(observation(i))
		db, _ := b.Act(observation(i))
		if !floats.EqualApprox(da.LogProbs, db.LogProbs, 1e-12) {
			t.Errorf("loaded agent computes different probabilities")
		}
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"epochs", func(c *Config) { c.Epochs = 0 }},
		{"minibatch", func(c *Config) { c.MinibatchSize = 0 }},
		{"clip", func(c *Config) { c.ClipEpsilon = -1 }},
		{"learningRate", func(c *Config) { c.LearningRate = 0 }},
		{"hidden", func(c *Config) { c.Hidden = []int{0} }},
		{"activation", func(c *Config) { c.Activation = "sigmoidish" }},
		{"solver", func(c *Config) { c.Solver = "sgdx" }},
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default configuration invalid: %v", err)
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := DefaultConfig()
			test.modify(&c)
			if err := c.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
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
