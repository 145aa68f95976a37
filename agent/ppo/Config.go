package ppo

import (
	"fmt"

	"github.com/samuelfneumann/curiogrid/initwfn"
	"github.com/samuelfneumann/curiogrid/network"
	"github.com/samuelfneumann/curiogrid/solver"
)

// Config implements a configuration for a PPO agent
type Config struct {
	Hidden     []int  // Sizes of the shared hidden layers
	Activation string // Activation of the hidden layers

	Solver       solver.Type
	LearningRate float64
	GradClip     float64 // Gradients are clipped to [-GradClip, GradClip] if > 0
	Init         initwfn.Type
	InitGain     float64 // Gain of the weight initializer

	ClipEpsilon   float64
	Epochs        int
	MinibatchSize int

	Gamma  float64 // Discount factor
	Lambda float64 // GAE(λ) trace decay

	ValueCoef   float64
	EntropyCoef float64
}

// DefaultConfig returns the default PPO configuration
func DefaultConfig() Config {
	return Config{
		Hidden:        []int{64, 64},
		Activation:    "relu",
		Solver:        solver.Adam,
		LearningRate:  3e-4,
		Init:          initwfn.GlorotU,
		InitGain:      1.0,
		ClipEpsilon:   0.2,
		Epochs:        4,
		MinibatchSize: 32,
		Gamma:         0.99,
		Lambda:        0.95,
		ValueCoef:     0.5,
		EntropyCoef:   0.01,
	}
}

// Validate returns an error if the configuration cannot be used to build
// an agent
func (c Config) Validate() error {
	if c.Epochs < 1 {
		return fmt.Errorf("validate: epochs must be positive")
	}
	if c.MinibatchSize < 1 {
		return fmt.Errorf("validate: minibatch size must be positive")
	}
	if c.ClipEpsilon < 0 {
		return fmt.Errorf("validate: clip ε must be non-negative")
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("validate: learning rate must be positive")
	}
	for _, h := range c.Hidden {
		if h < 1 {
			return fmt.Errorf("validate: hidden layer sizes must be positive")
		}
	}
	if _, err := network.ParseActivation(c.Activation); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	if _, err := solver.ParseType(string(c.Solver)); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	if _, err := initwfn.ParseType(string(c.Init)); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	return nil
}
