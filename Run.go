package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/samuelfneumann/curiogrid/agent"
	"github.com/samuelfneumann/curiogrid/agent/ppo"
	"github.com/samuelfneumann/curiogrid/config"
	"github.com/samuelfneumann/curiogrid/curiosity"
	"github.com/samuelfneumann/curiogrid/environment/gridworld"
	"github.com/samuelfneumann/curiogrid/experiment"
	"github.com/samuelfneumann/curiogrid/experiment/checkpointer"
	"github.com/samuelfneumann/curiogrid/planner"
	"github.com/samuelfneumann/curiogrid/plotting"
	"github.com/samuelfneumann/curiogrid/utils/progressbar"
	"github.com/sirupsen/logrus"
)

// components holds everything a training run is built from
type components struct {
	env        *gridworld.RiskGrid
	policy     *ppo.PPO
	icm        *curiosity.ICM
	worldModel *curiosity.WorldModel
	planner    *planner.Symbolic
}

// build constructs the components of a run from c. The ICM and world
// model are only created when enabled.
func build(c config.Config) (*components, error) {
	seeds := c.Seeds()
	comp := &components{}

	var err error
	if c.MapPath != "" {
		m, err := gridworld.LoadMap(c.MapPath)
		if err != nil {
			return nil, fmt.Errorf("build: %v", err)
		}
		comp.env, _, err = gridworld.NewFromMap(m, c.EnvConfig(), seeds.Env)
		if err != nil {
			return nil, fmt.Errorf("build: %v", err)
		}
	} else {
		comp.env, _, err = gridworld.New(c.EnvConfig(), seeds.Env)
		if err != nil {
			return nil, fmt.Errorf("build: %v", err)
		}
	}
	features := comp.env.ObservationSpec().Size

	comp.policy, err = ppo.New(features, gridworld.NumActions, c.PPOConfig(),
		seeds.Policy)
	if err != nil {
		return nil, fmt.Errorf("build: %v", err)
	}

	if c.UseICM {
		comp.icm, err = curiosity.NewICM(features, gridworld.NumActions,
			c.ICMConfig(), seeds.ICM)
		if err != nil {
			comp.Close()
			return nil, fmt.Errorf("build: %v", err)
		}
	}

	if c.UseWorldModel {
		comp.worldModel, err = curiosity.NewWorldModel(features,
			gridworld.NumActions, c.WorldModelConfig(), seeds.WorldModel)
		if err != nil {
			comp.Close()
			return nil, fmt.Errorf("build: %v", err)
		}
	}

	comp.planner = planner.New(comp.env, c.PlannerConfig(), seeds.Planner)
	return comp, nil
}

// train runs all episodes of the configured run. Nil pointers of unused
// components are passed to the trainer as untyped nils.
func (comp *components) train(c experiment.Config) (experiment.Metrics,
	error) {
	var icm agent.CuriosityModule
	if comp.icm != nil {
		icm = comp.icm
	}
	var dynamics agent.DynamicsLearner
	if comp.worldModel != nil {
		dynamics = comp.worldModel
	}
	return experiment.Train(comp.env, comp.policy, icm, comp.planner,
		dynamics, c)
}

// Close releases the computational graphs of all components
func (comp *components) Close() {
	if comp.policy != nil {
		comp.policy.Close()
	}
	if comp.icm != nil {
		comp.icm.Close()
	}
	if comp.worldModel != nil {
		comp.worldModel.Close()
	}
}

// runOptions configures the outputs of a training run
type runOptions struct {
	outDir          string
	checkpointEvery int
	window          int
	progress        bool
	verbose         bool
}

// runResult describes where a training run stored its outputs
type runResult struct {
	id      string
	dir     string
	metrics experiment.Metrics
}

// runTraining trains a single configuration, writing the configuration,
// log, checkpoints, metrics and learning curves to a new directory
// under opts.outDir named by a unique run id
func runTraining(c config.Config, opts runOptions,
	stdout io.Writer) (runResult, error) {
	id := uuid.NewString()
	dir := filepath.Join(opts.outDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return runResult{}, fmt.Errorf("runTraining: %v", err)
	}

	if err := c.Save(filepath.Join(dir, "config.yaml")); err != nil {
		return runResult{}, fmt.Errorf("runTraining: %v", err)
	}

	logFile, err := os.Create(filepath.Join(dir, "train.log"))
	if err != nil {
		return runResult{}, fmt.Errorf("runTraining: %v", err)
	}
	defer logFile.Close()

	logger := logrus.New()
	logger.SetOutput(logFile)
	logger.SetFormatter(&logrus.JSONFormatter{})
	if opts.verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	comp, err := build(c)
	if err != nil {
		return runResult{}, fmt.Errorf("runTraining: %v", err)
	}
	defer comp.Close()

	tc := c.TrainerConfig()
	tc.Logger = logger.WithField("run", id)

	if opts.checkpointEvery > 0 {
		cp, err := checkpointer.NewNEpisode(opts.checkpointEvery, comp.policy,
			checkpointer.FilenameEnumerator(0, filepath.Join(dir, "policy"),
				".gob"))
		if err != nil {
			return runResult{}, fmt.Errorf("runTraining: %v", err)
		}
		tc.Checkpointers = append(tc.Checkpointers, cp)
	}

	if opts.progress {
		bar := progressbar.NewProgressBar(stdout, 40, c.NumEpisodes,
			time.Second, true)
		bar.Display()
		defer bar.Close()
		tc.Progress = bar
	}

	logger.WithFields(logrus.Fields{
		"run":         id,
		"episodes":    c.NumEpisodes,
		"use_icm":     c.UseICM,
		"use_planner": c.UsePlanner,
	}).Info("training started")

	metrics, err := comp.train(tc)
	if err != nil {
		return runResult{}, fmt.Errorf("runTraining: %v", err)
	}

	if err := experiment.SaveMetrics(filepath.Join(dir, "metrics.gob"),
		metrics); err != nil {
		return runResult{}, fmt.Errorf("runTraining: %v", err)
	}

	policyFile, err := os.Create(filepath.Join(dir, "policy_final.gob"))
	if err != nil {
		return runResult{}, fmt.Errorf("runTraining: %v", err)
	}
	defer policyFile.Close()
	if err := comp.policy.Save(policyFile); err != nil {
		return runResult{}, fmt.Errorf("runTraining: %v", err)
	}

	if metrics.Len() > 0 {
		err = plotting.LearningCurves(filepath.Join(dir, "rewards.png"),
			"Episode Reward", map[string][]float64{"reward": metrics.Rewards},
			opts.window)
		if err != nil {
			return runResult{}, fmt.Errorf("runTraining: %v", err)
		}
	}

	return runResult{id: id, dir: dir, metrics: metrics}, nil
}
