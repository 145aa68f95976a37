// Package initwfn implements seeded weight initializers for Gorgonia that
// can be selected by name in configuration files.
//
// Gorgonia's own initializers draw from the global random source, which
// makes two networks built from the same configuration differ. The
// initializers here draw from their own seeded source instead, so that a
// network is fully determined by its configuration.
package initwfn

import (
	"fmt"
	"strings"

	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Type describes different types of InitWFn that are available.
// Type is used to implement a basic type system of InitWFn's.
type Type string

// Available InitWFn types
const (
	GlorotU  Type = "GlorotU"
	GlorotN  Type = "GlorotN"
	HeU      Type = "HeU"
	Uniform  Type = "Uniform"
	Zeroes   Type = "Zeroes"
	Constant Type = "Constant"
)

// InitWFn wraps a seeded Gorgonia InitWFn. Every call to the wrapped InitWFn advances
// the same random source, so consecutive weight matrices differ while the
// whole sequence is reproducible from Seed.
type InitWFn struct {
	Type
	Config
	Seed uint64

	src rand.Source
}

// ParseType returns the initializer type with the given case-insensitive
// name
func ParseType(name string) (Type, error) {
	for _, t := range []Type{GlorotU, GlorotN, HeU, Uniform, Zeroes,
		Constant} {
		if strings.EqualFold(name, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("parseType: unknown initializer %q", name)
}

// New returns an initializer of type t. The gain scales the Glorot and He
// initializers, bounds the Uniform initializer to [-gain, gain], and is
// the value of the Constant initializer.
func New(t Type, gain float64, seed uint64) (*InitWFn, error) {
	switch t {
	case GlorotU:
		return NewGlorotU(gain, seed)
	case GlorotN:
		return NewGlorotN(gain, seed)
	case HeU:
		return NewHeU(gain, seed)
	case Uniform:
		return NewUniform(-gain, gain, seed)
	case Zeroes:
		return NewZeroes()
	case Constant:
		return NewConstant(gain)
	}
	return nil, fmt.Errorf("new: unknown initializer %q", t)
}

// newInitWFn returns a new InitWFn
func newInitWFn(c Config, seed uint64) (*InitWFn, error) {
	if c == nil {
		return nil, fmt.Errorf("newInitWFn: nil config")
	}
	return &InitWFn{
		Type:   c.Type(),
		Config: c,
		Seed:   seed,
		src:    rand.NewSource(seed),
	}, nil
}

// InitWFn returns the wrapped Gorgonia InitWFn
func (i *InitWFn) InitWFn() G.InitWFn {
	return i.Config.Create(i.src)
}

// String implements the fmt.Stringer interface
func (i *InitWFn) String() string {
	return fmt.Sprintf("{%v InitWFn: %v (seed %v)}", i.Type, i.Config, i.Seed)
}

// Config implements a Gorgonia InitWFn configuration and can be used to
// create the described Gorgonia InitWFn's.
type Config interface {
	// Create returns the Gorgonia InitWFn that the Config describes,
	// drawing any random numbers from src
	Create(src rand.Source) G.InitWFn

	// Type returns the type of Gorgonia InitWFn that is returned
	Type() Type
}

// fans returns the fan in and fan out of a weight of shape s. Weights
// are (in, out) matrices and biases are vectors.
func fans(s ...int) (float64, float64) {
	switch len(s) {
	case 0:
		return 1, 1
	case 1:
		return float64(s[0]), float64(s[0])
	default:
		in := 1
		for _, d := range s[:len(s)-1] {
			in *= d
		}
		return float64(in), float64(s[len(s)-1])
	}
}

// fill returns a backing slice of the given dtype and shape with entries
// produced by draw
func fill(dt tensor.Dtype, draw func() float64, s ...int) interface{} {
	n := tensor.Shape(s).TotalSize()

	switch dt {
	case tensor.Float64:
		backing := make([]float64, n)
		for i := range backing {
			backing[i] = draw()
		}
		return backing

	case tensor.Float32:
		backing := make([]float32, n)
		for i := range backing {
			backing[i] = float32(draw())
		}
		return backing

	default:
		panic(fmt.Sprintf("fill: unsupported dtype %v", dt))
	}
}
