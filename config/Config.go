// Package config implements the configuration of a training run. A
// configuration can be loaded from JSON or YAML files and converted into
// the configurations of each component.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samuelfneumann/curiogrid/agent/ppo"
	"github.com/samuelfneumann/curiogrid/curiosity"
	"github.com/samuelfneumann/curiogrid/environment/gridworld"
	"github.com/samuelfneumann/curiogrid/experiment"
	"github.com/samuelfneumann/curiogrid/initwfn"
	"github.com/samuelfneumann/curiogrid/planner"
	"github.com/samuelfneumann/curiogrid/solver"
	"golang.org/x/exp/rand"
	"gopkg.in/yaml.v2"
)

// Config is the configuration of a training run
type Config struct {
	// Environment
	GridSize         int     `json:"grid_size" yaml:"grid_size"`
	MaxSteps         int     `json:"max_steps" yaml:"max_steps"`
	RewardCostWeight float64 `json:"reward_cost_weight" yaml:"reward_cost_weight"`
	RewardRiskWeight float64 `json:"reward_risk_weight" yaml:"reward_risk_weight"`
	StepPenalty      float64 `json:"step_penalty" yaml:"step_penalty"`
	GoalReward       float64 `json:"goal_reward" yaml:"goal_reward"`
	MapPath          string  `json:"map_path" yaml:"map_path"`

	// Planner
	CostWeight              float64 `json:"cost_weight" yaml:"cost_weight"`
	RiskWeight              float64 `json:"risk_weight" yaml:"risk_weight"`
	GoalWeight              float64 `json:"goal_weight" yaml:"goal_weight"`
	RevisitPenalty          float64 `json:"revisit_penalty" yaml:"revisit_penalty"`
	UsePlanner              bool    `json:"use_planner" yaml:"use_planner"`
	PlannerProb             float64 `json:"planner_prob" yaml:"planner_prob"`
	ResetPlannerEachEpisode bool    `json:"reset_planner_each_episode" yaml:"reset_planner_each_episode"`

	// Curiosity and dynamics
	UseICM          bool    `json:"use_icm" yaml:"use_icm"`
	IntrinsicWeight float64 `json:"intrinsic_weight" yaml:"intrinsic_weight"`
	ICMLearningRate float64 `json:"icm_learning_rate" yaml:"icm_learning_rate"`
	UseWorldModel   bool    `json:"use_world_model" yaml:"use_world_model"`
	BatchSize       int     `json:"batch_size" yaml:"batch_size"`
	ReplayCapacity  int     `json:"replay_capacity" yaml:"replay_capacity"`

	// PPO
	HiddenSizes    []int   `json:"hidden_sizes" yaml:"hidden_sizes"`
	LearningRate   float64 `json:"learning_rate" yaml:"learning_rate"`
	Solver         string  `json:"solver" yaml:"solver"`
	WeightInit     string  `json:"weight_init" yaml:"weight_init"`
	PPOClipEpsilon float64 `json:"ppo_clip_epsilon" yaml:"ppo_clip_epsilon"`
	PPOEpochs      int     `json:"ppo_epochs" yaml:"ppo_epochs"`
	MinibatchSize  int     `json:"minibatch_size" yaml:"minibatch_size"`
	Gamma          float64 `json:"gamma" yaml:"gamma"`
	GAELambda      float64 `json:"gae_lambda" yaml:"gae_lambda"`
	ValueCoef      float64 `json:"value_coef" yaml:"value_coef"`
	EntropyCoef    float64 `json:"entropy_coef" yaml:"entropy_coef"`

	// Run
	NumEpisodes int    `json:"num_episodes" yaml:"num_episodes"`
	Seed        uint64 `json:"seed" yaml:"seed"`
}

// Default returns the default configuration
func Default() Config {
	env := gridworld.DefaultConfig()
	plan := planner.DefaultConfig()
	agent := ppo.DefaultConfig()
	icm := curiosity.DefaultICMConfig()

	return Config{
		GridSize:         env.Size,
		MaxSteps:         env.MaxSteps,
		RewardCostWeight: env.RewardCostWeight,
		RewardRiskWeight: env.RewardRiskWeight,
		StepPenalty:      env.StepPenalty,
		GoalReward:       env.GoalReward,

		CostWeight:     plan.CostWeight,
		RiskWeight:     plan.RiskWeight,
		GoalWeight:     plan.GoalWeight,
		RevisitPenalty: plan.RevisitPenalty,
		PlannerProb:    0.5,

		IntrinsicWeight: 1.0,
		ICMLearningRate: icm.LearningRate,
		BatchSize:       icm.BatchSize,
		ReplayCapacity:  10000,

		HiddenSizes:    agent.Hidden,
		LearningRate:   agent.LearningRate,
		Solver:         string(agent.Solver),
		WeightInit:     string(agent.Init),
		PPOClipEpsilon: agent.ClipEpsilon,
		PPOEpochs:      agent.Epochs,
		MinibatchSize:  agent.MinibatchSize,
		Gamma:          agent.Gamma,
		GAELambda:      agent.Lambda,
		ValueCoef:      agent.ValueCoef,
		EntropyCoef:    agent.EntropyCoef,

		NumEpisodes: 500,
	}
}

// Load loads a configuration from a JSON (.json) or YAML (.yaml, .yml)
// file. Keys missing from the file keep their default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load: %v", err)
	}

	c := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&c)
	case ".yaml", ".yml":
		err = yaml.UnmarshalStrict(data, &c)
	default:
		return Config{}, fmt.Errorf("load: unknown config format %q", ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("load: could not parse %v: %v", path, err)
	}

	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("load: %v", err)
	}
	return c, nil
}

// Save writes the configuration to a JSON or YAML file, chosen by the
// extension of path
func (c Config) Save(path string) error {
	var data []byte
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		data, err = json.MarshalIndent(c, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		return fmt.Errorf("save: unknown config format %q", ext)
	}
	if err != nil {
		return fmt.Errorf("save: %v", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects structurally impossible configurations. Reward and
// planner weights are not validated: any value is passed through to the
// components as given.
func (c Config) Validate() error {
	checks := []struct {
		ok  bool
		msg string
	}{
		{c.GridSize >= 1, "grid_size must be at least 1"},
		{c.MaxSteps >= 1, "max_steps must be at least 1"},
		{c.NumEpisodes >= 0, "num_episodes must be non-negative"},
		{c.BatchSize >= 1, "batch_size must be at least 1"},
		{c.ReplayCapacity >= 1, "replay_capacity must be at least 1"},
		{c.PPOEpochs >= 1, "ppo_epochs must be at least 1"},
		{c.MinibatchSize >= 1, "minibatch_size must be at least 1"},
	}
	for _, check := range checks {
		if !check.ok {
			return fmt.Errorf("validate: %v", check.msg)
		}
	}
	if _, err := solver.ParseType(c.Solver); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	if _, err := initwfn.ParseType(c.WeightInit); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	return nil
}

// Seeds holds the seed of each randomized component of a run
type Seeds struct {
	Env        uint64
	Policy     uint64
	ICM        uint64
	WorldModel uint64
	Planner    uint64
	Trainer    uint64
}

// Seeds derives a separate seed for each component from the run seed
func (c Config) Seeds() Seeds {
	rng := rand.New(rand.NewSource(c.Seed))
	return Seeds{
		Env:        rng.Uint64(),
		Policy:     rng.Uint64(),
		ICM:        rng.Uint64(),
		WorldModel: rng.Uint64(),
		Planner:    rng.Uint64(),
		Trainer:    rng.Uint64(),
	}
}

// EnvConfig returns the environment configuration
func (c Config) EnvConfig() gridworld.Config {
	return gridworld.Config{
		Size:             c.GridSize,
		MaxSteps:         c.MaxSteps,
		RewardCostWeight: c.RewardCostWeight,
		RewardRiskWeight: c.RewardRiskWeight,
		StepPenalty:      c.StepPenalty,
		GoalReward:       c.GoalReward,
	}
}

// PlannerConfig returns the planner configuration
func (c Config) PlannerConfig() planner.Config {
	return planner.Config{
		CostWeight:     c.CostWeight,
		RiskWeight:     c.RiskWeight,
		GoalWeight:     c.GoalWeight,
		RevisitPenalty: c.RevisitPenalty,
	}
}

// PPOConfig returns the PPO agent configuration
func (c Config) PPOConfig() ppo.Config {
	p := ppo.DefaultConfig()
	p.Hidden = append([]int(nil), c.HiddenSizes...)
	p.LearningRate = c.LearningRate
	if t, err := solver.ParseType(c.Solver); err == nil {
		p.Solver = t
	}
	if t, err := initwfn.ParseType(c.WeightInit); err == nil {
		p.Init = t
	}
	p.ClipEpsilon = c.PPOClipEpsilon
	p.Epochs = c.PPOEpochs
	p.MinibatchSize = c.MinibatchSize
	p.Gamma = c.Gamma
	p.Lambda = c.GAELambda
	p.ValueCoef = c.ValueCoef
	p.EntropyCoef = c.EntropyCoef
	return p
}

// ICMConfig returns the curiosity module configuration
func (c Config) ICMConfig() curiosity.ICMConfig {
	i := curiosity.DefaultICMConfig()
	i.LearningRate = c.ICMLearningRate
	i.BatchSize = c.BatchSize
	if t, err := solver.ParseType(c.Solver); err == nil {
		i.Solver = t
	}
	if t, err := initwfn.ParseType(c.WeightInit); err == nil {
		i.Init = t
	}
	return i
}

// WorldModelConfig returns the world model configuration
func (c Config) WorldModelConfig() curiosity.WorldModelConfig {
	w := curiosity.DefaultWorldModelConfig()
	w.LearningRate = c.ICMLearningRate
	w.BatchSize = c.BatchSize
	if t, err := solver.ParseType(c.Solver); err == nil {
		w.Solver = t
	}
	if t, err := initwfn.ParseType(c.WeightInit); err == nil {
		w.Init = t
	}
	return w
}

// TrainerConfig returns the training loop configuration. Logging,
// checkpointing and progress reporting are left for the caller to set.
func (c Config) TrainerConfig() experiment.Config {
	return experiment.Config{
		NumEpisodes:             c.NumEpisodes,
		UseICM:                  c.UseICM,
		IntrinsicWeight:         c.IntrinsicWeight,
		UsePlanner:              c.UsePlanner,
		PlannerProb:             c.PlannerProb,
		ResetPlannerEachEpisode: c.ResetPlannerEachEpisode,
		BatchSize:               c.BatchSize,
		ReplayCapacity:          c.ReplayCapacity,
		Seed:                    c.Seeds().Trainer,
	}
}
