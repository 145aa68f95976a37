// Package solver wraps Gorgonia Solvers together with the configuration
// that created them, so that solvers can be selected by name.
package solver

import (
	"fmt"
	"strings"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of solvers that are available
type Type string

// Available solver types
const (
	Adam    Type = "Adam"
	Vanilla Type = "Vanilla"
	RMSProp Type = "RMSProp"
)

// ParseType returns the solver type with the given case-insensitive name
func ParseType(name string) (Type, error) {
	for _, t := range []Type{Adam, Vanilla, RMSProp} {
		if strings.EqualFold(name, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("parseType: unknown solver %q", name)
}

// Solver wraps a Gorgonia Solver with its type and configuration
type Solver struct {
	G.Solver `json:"-"`
	Type
	Config
}

// New returns a solver of type t with learning rate stepSize and default
// values for its other hyperparameters. Gradients are clipped to
// [-clip, clip] if clip > 0.
func New(t Type, stepSize, clip float64) (*Solver, error) {
	switch t {
	case Adam:
		return NewAdam(stepSize, 1e-8, 0.9, 0.999, 1, clip)
	case Vanilla:
		return NewVanilla(stepSize, 1, clip)
	case RMSProp:
		return NewRMSProp(stepSize, 1e-8, 0.999, 1, clip)
	}
	return nil, fmt.Errorf("new: unknown solver type %v", t)
}

// newSolver returns a new solver with the given type and configuration.
func newSolver(t Type, c Config) (*Solver, error) {
	if !c.ValidType(t) {
		return nil, fmt.Errorf("newSolver: invalid solver type %v for "+
			"configuration %T", t, c)
	}
	solver := Solver{Type: t, Config: c}
	solver.Solver = solver.Config.Create()

	return &solver, nil
}

// Config implements a Gorgonia Solver configuration and can be used to
// create Gorgonia Solvers they describe.
type Config interface {
	Create() G.Solver

	// ValidType returns whether a specific Solver type can be created
	// with the Config
	ValidType(Type) bool
}

// commonOpts returns the solver options shared by all solvers
func commonOpts(stepSize float64, batch int, clip float64) []G.SolverOpt {
	opts := []G.SolverOpt{
		G.WithLearnRate(stepSize),
		G.WithBatchSize(float64(batch)),
	}
	if clip > 0 {
		opts = append(opts, G.WithClip(clip))
	}
	return opts
}
