package initwfn

import (
	"math"
	"testing"

	"gorgonia.org/tensor"
)

func TestSeededInitializersReproducible(t *testing.T) {
	constructors := map[string]func(uint64) (*InitWFn, error){
		"GlorotU": func(s uint64) (*InitWFn, error) { return NewGlorotU(1, s) },
		"GlorotN": func(s uint64) (*InitWFn, error) { return NewGlorotN(1, s) },
		"HeU":     func(s uint64) (*InitWFn, error) { return NewHeU(1, s) },
		"Uniform": func(s uint64) (*InitWFn, error) {
			return NewUniform(-1, 1, s)
		},
	}

	for name, construct := range constructors {
		a, err := construct(5)
		if err != nil {
			t.Fatalf("%v: %v", name, err)
		}
		b, err := construct(5)
		if err != nil {
			t.Fatalf("%v: %v", name, err)
		}

		wa := a.InitWFn()(tensor.Float64, 4, 3).([]float64)
		wb := b.InitWFn()(tensor.Float64, 4, 3).([]float64)
		if len(wa) != 12 {
			t.Fatalf("%v: got %d weights, want 12", name, len(wa))
		}
		for i := range wa {
			if wa[i] != wb[i] {
				t.Fatalf("%v: equal seeds produced different weights", name)
			}
		}

		// A second draw from the same initializer continues the stream
		next := a.InitWFn()(tensor.Float64, 4, 3).([]float64)
		same := true
		for i := range wa {
			same = same && wa[i] == next[i]
		}
		if same {
			t.Errorf("%v: consecutive draws should differ", name)
		}
	}
}

func TestGlorotULimit(t *testing.T) {
	init, _ := NewGlorotU(1, 0)
	weights := init.InitWFn()(tensor.Float64, 10, 20).([]float64)

	limit := math.Sqrt(6.0 / 30.0)
	for _, w := range weights {
		if math.Abs(w) > limit {
			t.Fatalf("weight %v outside [-%v, %v]", w, limit, limit)
		}
	}
}

func TestConstant(t *testing.T) {
	zero, _ := NewZeroes()
	for _, w := range zero.InitWFn()(tensor.Float64, 3).([]float64) {
		if w != 0 {
			t.Fatalf("zeroes initializer produced %v", w)
		}
	}

	c, _ := NewConstant(0.5)
	for _, w := range c.InitWFn()(tensor.Float32, 2, 2).([]float32) {
		if w != 0.5 {
			t.Fatalf("constant initializer produced %v", w)
		}
	}
}

func TestNewMatchesConstructor(t *testing.T) {
	a, err := NewGlorotU(math.Sqrt(2), 17)
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(GlorotU, math.Sqrt(2), 17)
	if err != nil {
		t.Fatal(err)
	}
	if b.Seed != 17 || b.Config.(GlorotUConfig).Gain != math.Sqrt(2) {
		t.Fatalf("new by type returned %v", b)
	}

	for k := 0; k < 2; k++ {
		want := a.InitWFn()(tensor.Float64, 2, 2).([]float64)
		have := b.InitWFn()(tensor.Float64, 2, 2).([]float64)
		for i := range want {
			if want[i] != have[i] {
				t.Fatalf("draw %d: initializers with equal seeds differ", k)
			}
		}
	}
}

func TestNewByType(t *testing.T) {
	for _, name := range []string{"glorotu", "GlorotN", "HEU", "uniform",
		"zeroes", "constant"} {
		ty, err := ParseType(name)
		if err != nil {
			t.Fatalf("parseType(%q): %v", name, err)
		}
		init, err := New(ty, 0.5, 3)
		if err != nil {
			t.Fatalf("new(%v): %v", ty, err)
		}
		if init.Type != ty {
			t.Errorf("new(%v) returned type %v", ty, init.Type)
		}
	}

	u, _ := New(Uniform, 0.5, 3)
	for _, w := range u.InitWFn()(tensor.Float64, 5, 5).([]float64) {
		if math.Abs(w) > 0.5 {
			t.Fatalf("uniform weight %v outside [-0.5, 0.5]", w)
		}
	}

	if _, err := ParseType("orthogonal"); err == nil {
		t.Error("expected error for unknown initializer")
	}
	if _, err := New("orthogonal", 1, 0); err == nil {
		t.Error("expected error for unknown initializer")
	}
}
