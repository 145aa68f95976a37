// Package gridworld implements a 2D gridworld in which every cell carries a
// cost and a risk that the agent pays for entering it
package gridworld

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/curiogrid/environment"
	"github.com/samuelfneumann/curiogrid/timestep"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// Observation channels, each of Size*Size entries, stacked in this order
const (
	AgentChannel = iota
	CostChannel
	RiskChannel
	VisitedChannel
	GoalChannel
	NumChannels
)

// Info describes the outcome of a single move
type Info struct {
	Position   Position // Agent position after the move
	Moved      bool     // False if the move would have left the grid
	Cost       float64  // Cost of the cell the agent occupies
	Risk       float64  // Risk of the cell the agent occupies
	Terminated bool     // Goal reached
	Truncated  bool     // Step limit reached, also set with Terminated
}

// RiskGrid is a square gridworld with per-cell cost and risk fields. The
// agent starts each episode in the top left cell and must reach the goal.
//
// Each step the agent receives the negative weighted cost and risk of the
// cell it ends up in, minus a step penalty. Moves off the grid leave the
// agent in place. Reaching the goal ends the episode with a bonus, and
// episodes are truncated after a fixed number of steps.
type RiskGrid struct {
	config   Config
	m        Map
	fixedMap bool
	src      rand.Source

	position    Position
	visited     []bool
	ender       environment.StepLimit
	currentStep timestep.TimeStep
}

// New creates a new RiskGrid whose maps are regenerated from a source
// seeded with seed on each Reset
func New(c Config, seed uint64) (*RiskGrid, timestep.TimeStep, error) {
	if err := c.Validate(); err != nil {
		return nil, timestep.TimeStep{}, fmt.Errorf("new: %v", err)
	}

	g := &RiskGrid{
		config: c,
		src:    rand.NewSource(seed),
		ender:  environment.NewStepLimit(c.MaxSteps),
	}
	return g, g.Reset(), nil
}

// NewFromMap creates a new RiskGrid that uses the map m for every episode.
// The size in c is replaced by the size of the map.
func NewFromMap(m Map, c Config, seed uint64) (*RiskGrid, timestep.TimeStep,
	error) {
	if err := m.Validate(); err != nil {
		return nil, timestep.TimeStep{}, fmt.Errorf("newFromMap: %v", err)
	}
	c.Size = m.Size
	if err := c.Validate(); err != nil {
		return nil, timestep.TimeStep{}, fmt.Errorf("newFromMap: %v", err)
	}

	g := &RiskGrid{
		config:   c,
		m:        m.Clone(),
		fixedMap: true,
		src:      rand.NewSource(seed),
		ender:    environment.NewStepLimit(c.MaxSteps),
	}
	return g, g.Reset(), nil
}

// Reset starts a new episode. Unless the map is fixed, new cost and risk
// fields are drawn. The agent is placed at the origin.
func (g *RiskGrid) Reset() timestep.TimeStep {
	if !g.fixedMap {
		g.m = GenerateMap(g.config.Size, g.src)
	}

	g.position = Position{0, 0}
	g.visited = make([]bool, g.config.Size*g.config.Size)
	g.visited[g.position.Index(g.config.Size)] = true

	g.currentStep = timestep.New(timestep.First, 0, g.observation(), 0)
	return g.currentStep
}

// Step implements the environment.Environment interface
func (g *RiskGrid) Step(action int) (timestep.TimeStep, error) {
	step, _, err := g.Move(Action(action))
	return step, err
}

// Move takes one action in the environment. A move that would leave the
// grid keeps the agent in its current cell, and the agent pays for that
// cell again. Only an action outside of the four moves is an error.
func (g *RiskGrid) Move(a Action) (timestep.TimeStep, Info, error) {
	if !a.Valid() {
		return timestep.TimeStep{}, Info{}, fmt.Errorf("move: invalid "+
			"action %d", int(a))
	}
	if g.currentStep.Last() {
		return timestep.TimeStep{}, Info{}, fmt.Errorf("move: episode has " +
			"ended, call Reset first")
	}

	next := g.position.Move(a)
	moved := next.In(g.config.Size)
	if moved {
		g.position = next
	}
	g.visited[g.position.Index(g.config.Size)] = true

	cost := g.CostAt(g.position)
	risk := g.RiskAt(g.position)
	reward := -(g.config.RewardCostWeight*cost +
		g.config.RewardRiskWeight*risk) - g.config.StepPenalty

	step := timestep.New(timestep.Mid, reward, nil,
		g.currentStep.Number+1)
	if g.position == g.m.Goal {
		step.Reward += g.config.GoalReward
		step.StepType = timestep.Last
		step.EndType = timestep.Terminated
	} else {
		g.ender.End(&step)
	}
	step.Observation = g.observation()
	g.currentStep = step

	info := Info{
		Position:   g.position,
		Moved:      moved,
		Cost:       cost,
		Risk:       risk,
		Terminated: step.Terminated(),
		Truncated:  step.Number >= g.ender.Limit(),
	}
	return step, info, nil
}

// observation builds the stacked channel observation of the current state
func (g *RiskGrid) observation() *mat.VecDense {
	n := g.config.Size
	cells := n * n
	obs := mat.NewVecDense(NumChannels*cells, nil)

	obs.SetVec(AgentChannel*cells+g.position.Index(n), 1.0)
	obs.SetVec(GoalChannel*cells+g.m.Goal.Index(n), 1.0)

	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			i := Position{r, c}.Index(n)
			obs.SetVec(CostChannel*cells+i, g.m.Cost.At(r, c))
			obs.SetVec(RiskChannel*cells+i, g.m.Risk.At(r, c))
			if g.visited[i] {
				obs.SetVec(VisitedChannel*cells+i, 1.0)
			}
		}
	}
	return obs
}

// SetMap replaces the cost and risk fields and the goal of the current
// episode without moving the agent. The map must have the same size as
// the environment.
func (g *RiskGrid) SetMap(m Map) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("setMap: %v", err)
	}
	if m.Size != g.config.Size {
		return fmt.Errorf("setMap: map size %d does not match grid size %d",
			m.Size, g.config.Size)
	}
	g.m = m.Clone()
	g.currentStep.Observation = g.observation()
	return nil
}

// Map returns a copy of the current map
func (g *RiskGrid) Map() Map {
	return g.m.Clone()
}

// Size returns the number of rows (and columns) of the grid
func (g *RiskGrid) Size() int {
	return g.config.Size
}

// MaxSteps returns the number of steps after which episodes are truncated
func (g *RiskGrid) MaxSteps() int {
	return g.ender.Limit()
}

// CostAt returns the cost of the cell at p
func (g *RiskGrid) CostAt(p Position) float64 {
	return g.m.Cost.At(p.Row, p.Col)
}

// RiskAt returns the risk of the cell at p
func (g *RiskGrid) RiskAt(p Position) float64 {
	return g.m.Risk.At(p.Row, p.Col)
}

// GoalPosition returns the goal cell
func (g *RiskGrid) GoalPosition() Position {
	return g.m.Goal
}

// Position returns the current position of the agent
func (g *RiskGrid) Position() Position {
	return g.position
}

// Visited returns whether the agent has entered p during this episode
func (g *RiskGrid) Visited(p Position) bool {
	return g.visited[p.Index(g.config.Size)]
}

// CurrentTimeStep returns the last timestep of the environment
func (g *RiskGrid) CurrentTimeStep() timestep.TimeStep {
	return g.currentStep
}

// ObservationSpec returns the observation specification of the environment
func (g *RiskGrid) ObservationSpec() environment.Spec {
	size := NumChannels * g.config.Size * g.config.Size
	return environment.NewSpec(environment.Observation, size, 0,
		math.Inf(1), environment.Continuous)
}

// ActionSpec returns the action specification of the environment
func (g *RiskGrid) ActionSpec() environment.Spec {
	return environment.NewSpec(environment.Action, NumActions, 0,
		NumActions-1, environment.Discrete)
}

func (g *RiskGrid) String() string {
	return fmt.Sprintf("RiskGrid | Size: %d  |  Agent: %v  |  Goal: %v",
		g.config.Size, g.position, g.m.Goal)
}
