package gridworld

import (
	"fmt"
)

// Config configures a RiskGrid
type Config struct {
	Size     int // Number of rows and columns
	MaxSteps int // Steps before an episode is truncated

	// Reward shaping: each step the agent receives
	// -(RewardCostWeight*cost + RewardRiskWeight*risk) - StepPenalty for the
	// cell it ends up in, and GoalReward in addition when that cell is the
	// goal
	RewardCostWeight float64
	RewardRiskWeight float64
	StepPenalty      float64
	GoalReward       float64
}

// DefaultConfig returns the default RiskGrid configuration
func DefaultConfig() Config {
	return Config{
		Size:             8,
		MaxSteps:         100,
		RewardCostWeight: 1.0,
		RewardRiskWeight: 1.0,
		StepPenalty:      0.01,
		GoalReward:       10.0,
	}
}

// Validate checks that a configuration describes a world that can exist
func (c Config) Validate() error {
	if c.Size < 1 {
		return fmt.Errorf("validate: grid size must be positive, got %v",
			c.Size)
	}
	if c.MaxSteps < 1 {
		return fmt.Errorf("validate: max steps must be positive, got %v",
			c.MaxSteps)
	}
	return nil
}
