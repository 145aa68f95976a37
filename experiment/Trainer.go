// Package experiment implements the training loop that couples the
// environment, the PPO agent, the curiosity module and the planner, and
// records per-episode metrics
package experiment

import (
	"fmt"

	"github.com/samuelfneumann/curiogrid/agent"
	"github.com/samuelfneumann/curiogrid/environment"
	"github.com/samuelfneumann/curiogrid/environment/gridworld"
	"github.com/samuelfneumann/curiogrid/experiment/checkpointer"
	"github.com/samuelfneumann/curiogrid/experiment/tracker"
	"github.com/samuelfneumann/curiogrid/expreplay"
	"github.com/samuelfneumann/curiogrid/timestep"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
)

// Environment is an environment whose agent position can be read by a
// planner
type Environment interface {
	environment.Environment
	Position() gridworld.Position
}

// Progress reports training progress, once per episode
type Progress interface {
	Increment()
	SetStatus(string)
}

// Config configures a Trainer
type Config struct {
	NumEpisodes int

	UseICM          bool
	IntrinsicWeight float64 // Scales the intrinsic reward of the ICM

	UsePlanner              bool
	PlannerProb             float64 // Probability of a planner override
	ResetPlannerEachEpisode bool

	BatchSize      int // Replay batch size for dynamics updates
	ReplayCapacity int

	// Seed seeds the planner blending source, and Seed+1 seeds replay
	// sampling
	Seed uint64

	Logger        logrus.FieldLogger // Defaults to logrus.StandardLogger()
	Checkpointers []checkpointer.Checkpointer
	Progress      Progress // Optional
}

// Trainer runs episodes of PPO training.
//
// Each step the policy samples an action. With UsePlanner, the planner's
// suggestion replaces it with probability PlannerProb. With UseICM, the
// curiosity module adds an intrinsic reward and is trained on batches
// sampled from a replay buffer. An additional dynamics learner, such as
// a WorldModel, is trained on the same batches whenever one is given.
// After each episode the policy is updated on the episode's rollout.
//
// UseICM and UsePlanner are independent: each draws only from its own
// random source, and the policy samples an action every step even when
// the planner overrides it.
type Trainer struct {
	Config

	env      Environment
	policy   agent.RolloutLearner
	icm      agent.CuriosityModule
	planner  agent.Planner
	learners []agent.DynamicsLearner

	replay *expreplay.Buffer
	blend  *rand.Rand

	returns *tracker.Return
	lengths *tracker.EpisodeLength

	episode int
	metrics Metrics
}

// New returns a new Trainer. The icm, planner and dynamics arguments may
// be nil if they are not used. Pass an untyped nil rather than a nil
// pointer for components that are not used.
func New(env Environment, policy agent.RolloutLearner,
	icm agent.CuriosityModule, planner agent.Planner,
	dynamics agent.DynamicsLearner, c Config) (*Trainer, error) {
	if env == nil || policy == nil {
		return nil, fmt.Errorf("new: environment and policy are required")
	}
	if c.NumEpisodes < 0 {
		return nil, fmt.Errorf("new: number of episodes must be "+
			"non-negative, got %v", c.NumEpisodes)
	}
	if c.UseICM && icm == nil {
		return nil, fmt.Errorf("new: UseICM requires a curiosity module")
	}
	if c.UsePlanner && planner == nil {
		return nil, fmt.Errorf("new: UsePlanner requires a planner")
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}

	t := &Trainer{
		Config:  c,
		env:     env,
		policy:  policy,
		icm:     icm,
		planner: planner,
		blend:   rand.New(rand.NewSource(c.Seed)),
		returns: tracker.NewReturn(),
		lengths: tracker.NewEpisodeLength(),
	}

	if c.UseICM {
		t.learners = append(t.learners, icm)
	}
	if dynamics != nil {
		t.learners = append(t.learners, dynamics)
	}
	if len(t.learners) > 0 {
		if c.BatchSize < 1 {
			return nil, fmt.Errorf("new: batch size must be positive")
		}
		replay, err := expreplay.Config{Capacity: c.ReplayCapacity}.Create(
			env.ObservationSpec().Size, c.Seed+1)
		if err != nil {
			return nil, fmt.Errorf("new: %v", err)
		}
		t.replay = replay
	}

	return t, nil
}

// Train creates a Trainer and runs all its episodes
func Train(env Environment, policy agent.RolloutLearner,
	icm agent.CuriosityModule, planner agent.Planner,
	dynamics agent.DynamicsLearner, c Config) (Metrics, error) {
	t, err := New(env, policy, icm, planner, dynamics, c)
	if err != nil {
		return Metrics{}, fmt.Errorf("train: %v", err)
	}
	return t.Run()
}

// Run runs the remaining episodes of the trainer and returns the metrics
// of all episodes run so far
func (t *Trainer) Run() (Metrics, error) {
	for t.episode < t.NumEpisodes {
		if _, err := t.RunEpisode(); err != nil {
			return t.metrics, fmt.Errorf("run: %v", err)
		}
	}
	return t.metrics, nil
}

// Metrics returns the metrics of all episodes run so far
func (t *Trainer) Metrics() Metrics {
	return t.metrics
}

// RunEpisode runs a single episode followed by a policy update
func (t *Trainer) RunEpisode() (EpisodeMetrics, error) {
	rollout, err := t.policy.NewRolloutBuffer()
	if err != nil {
		return EpisodeMetrics{}, fmt.Errorf("runEpisode: %v", err)
	}

	step := t.env.Reset()
	t.track(step)
	if t.ResetPlannerEachEpisode && t.planner != nil {
		t.planner.Reset()
	}

	var m EpisodeMetrics
	dynamicsLoss, dynamicsUpdates := 0.0, 0

	for !step.Last() {
		obs := step.Observation
		decision, err := t.policy.Act(obs)
		if err != nil {
			return EpisodeMetrics{}, fmt.Errorf("runEpisode: %v", err)
		}

		action := decision.Action
		if t.UsePlanner && t.blend.Float64() < t.PlannerProb {
			action = t.planner.SafeSubgoal(t.env.Position())
			m.PlannerUsage++
		}

		next, err := t.env.Step(action)
		if err != nil {
			return EpisodeMetrics{}, fmt.Errorf("runEpisode: %v", err)
		}
		t.track(next)

		intrinsic := 0.0
		if t.UseICM {
			r, err := t.icm.IntrinsicReward(obs, action, next.Observation)
			if err != nil {
				return EpisodeMetrics{}, fmt.Errorf("runEpisode: %v", err)
			}
			intrinsic = t.IntrinsicWeight * r
		}

		if t.replay != nil {
			loss, err := t.updateDynamics(timestep.NewTransition(obs, action,
				next.Reward, next.Observation))
			if err != nil {
				return EpisodeMetrics{}, fmt.Errorf("runEpisode: %v", err)
			}
			dynamicsLoss += loss
			dynamicsUpdates++
		}

		err = rollout.Store(obs.RawVector().Data, action,
			decision.LogProb(action), next.Reward+intrinsic, decision.Value)
		if err != nil {
			return EpisodeMetrics{}, fmt.Errorf("runEpisode: %v", err)
		}

		m.IntrinsicReward += intrinsic
		step = next
	}

	// Bootstrap from the value of the final state if the episode was cut
	// off rather than terminated
	lastVal := 0.0
	if step.Truncated() {
		if lastVal, err = t.policy.Value(step.Observation); err != nil {
			return EpisodeMetrics{}, fmt.Errorf("runEpisode: %v", err)
		}
	}
	rollout.FinishPath(lastVal)

	data, err := rollout.Get()
	if err != nil {
		return EpisodeMetrics{}, fmt.Errorf("runEpisode: %v", err)
	}
	stats, err := t.policy.Update(data)
	if err != nil {
		return EpisodeMetrics{}, fmt.Errorf("runEpisode: %v", err)
	}
	t.Logger.WithFields(logrus.Fields{
		"episode":     t.episode,
		"policy_loss": stats.PolicyLoss,
		"value_loss":  stats.ValueLoss,
		"entropy":     stats.Entropy,
		"minibatches": stats.Minibatches,
	}).Debug("ppo update")

	returns, lengths := t.returns.Data(), t.lengths.Data()
	m.ExtrinsicReward = returns[len(returns)-1]
	m.Steps = int(lengths[len(lengths)-1])
	m.Reward = m.ExtrinsicReward + m.IntrinsicReward
	m.Loss = stats.TotalLoss
	m.Success = step.Terminated()
	if dynamicsUpdates > 0 {
		m.DynamicsLoss = dynamicsLoss / float64(dynamicsUpdates)
	}

	t.metrics.Append(m)
	t.episode++
	t.log(m)

	for _, c := range t.Checkpointers {
		if err := c.Checkpoint(t.episode); err != nil {
			return m, fmt.Errorf("runEpisode: %v", err)
		}
	}
	if t.Progress != nil {
		t.Progress.SetStatus(fmt.Sprintf("reward: %.2f", m.Reward))
		t.Progress.Increment()
	}
	return m, nil
}

// updateDynamics adds a transition to the replay buffer and trains each
// dynamics learner on a sampled batch. It returns the summed losses of
// the learners.
func (t *Trainer) updateDynamics(tr timestep.Transition) (float64, error) {
	if err := t.replay.Add(tr); err != nil {
		return 0, fmt.Errorf("updateDynamics: %v", err)
	}
	batch, err := t.replay.Sample(t.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("updateDynamics: %v", err)
	}

	total := 0.0
	for _, l := range t.learners {
		loss, err := l.Update(batch)
		if err != nil {
			return 0, fmt.Errorf("updateDynamics: %v", err)
		}
		total += loss
	}
	t.Logger.WithField("loss", total).Debug("dynamics update")
	return total, nil
}

func (t *Trainer) track(step timestep.TimeStep) {
	t.returns.Track(step)
	t.lengths.Track(step)
}

func (t *Trainer) log(m EpisodeMetrics) {
	t.Logger.WithFields(logrus.Fields{
		"episode":       t.episode,
		"reward":        m.Reward,
		"extrinsic":     m.ExtrinsicReward,
		"intrinsic":     m.IntrinsicReward,
		"steps":         m.Steps,
		"success":       m.Success,
		"planner_usage": m.PlannerUsage,
		"loss":          m.Loss,
	}).Info("episode complete")
}
