// Package planner implements a non-learned, greedy safety planner that
// suggests low cost, low risk moves towards the goal of a RiskGrid
package planner

import (
	"math"

	"github.com/samuelfneumann/curiogrid/environment/gridworld"
	"golang.org/x/exp/rand"
)

// Grid is a read-only view of a gridworld that the planner scores moves in
type Grid interface {
	Size() int
	CostAt(gridworld.Position) float64
	RiskAt(gridworld.Position) float64
	GoalPosition() gridworld.Position
}

// Config holds the weights of the planner's scoring function
type Config struct {
	CostWeight     float64
	RiskWeight     float64
	GoalWeight     float64
	RevisitPenalty float64
}

// DefaultConfig returns the default planner weights
func DefaultConfig() Config {
	return Config{
		CostWeight:     2.0,
		RiskWeight:     3.0,
		GoalWeight:     0.5,
		RevisitPenalty: 1.0,
	}
}

// Symbolic is a one-step lookahead planner. For each in-bounds neighbour of
// the agent it computes
//
//	CostWeight*cost + RiskWeight*risk + GoalWeight*dist(goal) +
//	RevisitPenalty*visited
//
// and suggests the move with the smallest score. Ties go to the earlier
// action in Up, Down, Left, Right order. The planner keeps its own record
// of visited cells, which is independent of the environment's.
type Symbolic struct {
	Config
	grid    Grid
	visited map[gridworld.Position]bool
	rng     *rand.Rand
}

// New returns a new planner reading the grid g. The seed drives the
// planner's random fallback for positions with no in-bounds neighbour.
func New(g Grid, c Config, seed uint64) *Symbolic {
	return &Symbolic{
		Config:  c,
		grid:    g,
		visited: make(map[gridworld.Position]bool),
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// SafeSubgoal returns the suggested action from position pos and marks
// pos as visited
func (s *Symbolic) SafeSubgoal(pos gridworld.Position) int {
	size := s.grid.Size()
	goal := s.grid.GoalPosition()

	bestScore := math.Inf(1)
	bestAction := -1
	for _, a := range gridworld.Actions {
		next := pos.Move(a)
		if !next.In(size) {
			continue
		}

		score := s.score(next, goal)
		if score < bestScore {
			bestScore = score
			bestAction = int(a)
		}
	}

	s.visited[pos] = true
	if bestAction < 0 {
		return s.rng.Intn(gridworld.NumActions)
	}
	return bestAction
}

func (s *Symbolic) score(p, goal gridworld.Position) float64 {
	score := s.CostWeight*s.grid.CostAt(p) +
		s.RiskWeight*s.grid.RiskAt(p) +
		s.GoalWeight*p.Distance(goal)
	if s.visited[p] {
		score += s.RevisitPenalty
	}
	return score
}

// Visited returns whether the planner has been queried from p
func (s *Symbolic) Visited(p gridworld.Position) bool {
	return s.visited[p]
}

// Reset forgets all visited cells
func (s *Symbolic) Reset() {
	s.visited = make(map[gridworld.Position]bool)
}
