package experiment

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"
)

// MetricNames are the names of the sequences of Metrics, in the order
// returned by Sequences
var MetricNames = []string{
	"rewards",
	"extrinsic_rewards",
	"intrinsic_rewards",
	"steps",
	"losses",
	"planner_usage",
	"success_flags",
	"dynamics_losses",
}

// Metrics holds parallel per-episode sequences recorded during training.
// All sequences have one entry per completed episode.
type Metrics struct {
	Rewards          []float64 // Total (extrinsic + intrinsic) reward
	ExtrinsicRewards []float64
	IntrinsicRewards []float64
	Steps            []float64
	Losses           []float64 // Mean total PPO loss of the update
	PlannerUsage     []float64 // Number of planner overrides
	SuccessFlags     []float64 // 1 if the goal was reached, else 0
	DynamicsLosses   []float64 // Mean dynamics learner loss per update
}

// EpisodeMetrics holds the metrics of a single episode
type EpisodeMetrics struct {
	Reward          float64
	ExtrinsicReward float64
	IntrinsicReward float64
	Steps           int
	Loss            float64
	PlannerUsage    int
	Success         bool
	DynamicsLoss    float64
}

// Append appends the metrics of a single episode
func (m *Metrics) Append(e EpisodeMetrics) {
	success := 0.0
	if e.Success {
		success = 1.0
	}
	m.Rewards = append(m.Rewards, e.Reward)
	m.ExtrinsicRewards = append(m.ExtrinsicRewards, e.ExtrinsicReward)
	m.IntrinsicRewards = append(m.IntrinsicRewards, e.IntrinsicReward)
	m.Steps = append(m.Steps, float64(e.Steps))
	m.Losses = append(m.Losses, e.Loss)
	m.PlannerUsage = append(m.PlannerUsage, float64(e.PlannerUsage))
	m.SuccessFlags = append(m.SuccessFlags, success)
	m.DynamicsLosses = append(m.DynamicsLosses, e.DynamicsLoss)
}

// Len returns the number of episodes recorded
func (m Metrics) Len() int {
	return len(m.Rewards)
}

// Sequences returns the metric sequences in the order of MetricNames
func (m Metrics) Sequences() [][]float64 {
	return [][]float64{
		m.Rewards,
		m.ExtrinsicRewards,
		m.IntrinsicRewards,
		m.Steps,
		m.Losses,
		m.PlannerUsage,
		m.SuccessFlags,
		m.DynamicsLosses,
	}
}

// Sequence returns the metric sequence with the given name
func (m Metrics) Sequence(name string) ([]float64, error) {
	for i, n := range MetricNames {
		if n == name {
			return m.Sequences()[i], nil
		}
	}
	return nil, fmt.Errorf("sequence: unknown metric %q", name)
}

// SuccessRate returns the fraction of successful episodes
func (m Metrics) SuccessRate() float64 {
	if m.Len() == 0 {
		return 0
	}
	total := 0.0
	for _, s := range m.SuccessFlags {
		total += s
	}
	return total / float64(m.Len())
}

// Encode gob-encodes the metrics to w
func (m Metrics) Encode(w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(m); err != nil {
		return fmt.Errorf("encode: %v", err)
	}
	return nil
}

// DecodeMetrics decodes metrics encoded with Encode
func DecodeMetrics(r io.Reader) (Metrics, error) {
	var m Metrics
	if err := gob.NewDecoder(r).Decode(&m); err != nil {
		return Metrics{}, fmt.Errorf("decodeMetrics: %v", err)
	}
	return m, nil
}

// SaveMetrics saves metrics to the file at path
func SaveMetrics(path string, m Metrics) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("saveMetrics: could not open save file: %v", err)
	}
	if err := m.Encode(file); err != nil {
		file.Close()
		return fmt.Errorf("saveMetrics: %v", err)
	}
	return file.Close()
}

// LoadMetrics loads metrics saved with SaveMetrics
func LoadMetrics(path string) (Metrics, error) {
	file, err := os.Open(path)
	if err != nil {
		return Metrics{}, fmt.Errorf("loadMetrics: could not open data "+
			"file: %v", err)
	}
	defer file.Close()

	m, err := DecodeMetrics(file)
	if err != nil {
		return Metrics{}, fmt.Errorf("loadMetrics: %v", err)
	}
	return m, nil
}
