package curiosity

import (
	"fmt"

	"github.com/samuelfneumann/curiogrid/initwfn"
	"github.com/samuelfneumann/curiogrid/solver"
)

// ICMConfig implements a configuration for an intrinsic curiosity module
type ICMConfig struct {
	FeatureSize int // Size of the learned encoding φ
	Hidden      int // Hidden layer size of each sub-network

	// Beta weighs the forward model loss against the inverse model loss
	Beta float64

	// Eta scales the forward prediction error into an intrinsic reward
	Eta float64

	Solver       solver.Type
	LearningRate float64
	BatchSize    int
	Init         initwfn.Type
	InitGain     float64
}

// DefaultICMConfig returns the default ICM configuration
func DefaultICMConfig() ICMConfig {
	return ICMConfig{
		FeatureSize:  32,
		Hidden:       64,
		Beta:         0.2,
		Eta:          0.01,
		Solver:       solver.Adam,
		LearningRate: 1e-3,
		BatchSize:    32,
		Init:         initwfn.GlorotU,
		InitGain:     1.0,
	}
}

// Validate returns an error if the configuration cannot be used to build
// an ICM
func (c ICMConfig) Validate() error {
	if c.FeatureSize < 1 || c.Hidden < 1 {
		return fmt.Errorf("validate: feature and hidden sizes must be " +
			"positive")
	}
	if c.Beta < 0 || c.Beta > 1 {
		return fmt.Errorf("validate: β must be in [0, 1], got %v", c.Beta)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("validate: batch size must be positive")
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("validate: learning rate must be positive")
	}
	if _, err := solver.ParseType(string(c.Solver)); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	if _, err := initwfn.ParseType(string(c.Init)); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	return nil
}

// WorldModelConfig implements a configuration for a WorldModel
type WorldModelConfig struct {
	Hidden       int
	Solver       solver.Type
	LearningRate float64
	BatchSize    int
	Init         initwfn.Type
	InitGain     float64
}

// DefaultWorldModelConfig returns the default WorldModel configuration
func DefaultWorldModelConfig() WorldModelConfig {
	return WorldModelConfig{
		Hidden:       128,
		Solver:       solver.Adam,
		LearningRate: 1e-3,
		BatchSize:    32,
		Init:         initwfn.GlorotU,
		InitGain:     1.0,
	}
}

// Validate returns an error if the configuration cannot be used to build
// a WorldModel
func (c WorldModelConfig) Validate() error {
	if c.Hidden < 1 {
		return fmt.Errorf("validate: hidden size must be positive")
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("validate: batch size must be positive")
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("validate: learning rate must be positive")
	}
	if _, err := solver.ParseType(string(c.Solver)); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	if _, err := initwfn.ParseType(string(c.Init)); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	return nil
}
