package stats

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
)

var (
	baseline = []float64{1.0, 1.1, 0.9, 1.2}
	method1  = []float64{2.0, 2.1, 1.9, 2.2}
	method2  = []float64{3.0, 3.1, 2.9, 3.2}
)

func TestWelchANOVA(t *testing.T) {
	res, err := WelchANOVA(baseline, method1, method2)
	if err != nil {
		t.Fatalf("welchANOVA: %v", err)
	}
	if res.P >= 0.05 {
		t.Errorf("expected significant difference, p = %v", res.P)
	}
	if res.DF1 != 2 {
		t.Errorf("df1: want(2) have(%v)", res.DF1)
	}

	// Equal means give F = 0 and p = 1
	shifted := []float64{1.1, 1.0, 1.2, 0.9}
	res, err = WelchANOVA(baseline, shifted)
	if err != nil {
		t.Fatalf("welchANOVA: %v", err)
	}
	if math.Abs(res.F) > 1e-12 || math.Abs(res.P-1) > 1e-9 {
		t.Errorf("equal means: F = %v, p = %v", res.F, res.P)
	}
}

func TestWelchANOVAErrors(t *testing.T) {
	if _, err := WelchANOVA(baseline); err == nil {
		t.Errorf("expected error for a single group")
	}
	if _, err := WelchANOVA(baseline, []float64{1}); err == nil {
		t.Errorf("expected error for a group of one")
	}
	if _, err := WelchANOVA(baseline, []float64{2, 2, 2}); err == nil {
		t.Errorf("expected error for zero variance")
	}
}

func TestWelchTTest(t *testing.T) {
	res, err := WelchTTest(baseline, method1)
	if err != nil {
		t.Fatalf("welchTTest: %v", err)
	}

	// Equal variances and sizes: t = -1 / sqrt(2 * var / 4), df = 6
	wantT := -1 / math.Sqrt(2*(0.05/3)/4)
	if math.Abs(res.T-wantT) > 1e-9 {
		t.Errorf("t: want(%v) have(%v)", wantT, res.T)
	}
	if math.Abs(res.DF-6) > 1e-9 {
		t.Errorf("df: want(6) have(%v)", res.DF)
	}
	if res.P >= 0.001 {
		t.Errorf("expected p < 0.001, got %v", res.P)
	}

	same, err := WelchTTest(baseline, baseline)
	if err != nil {
		t.Fatal(err)
	}
	if same.T != 0 || math.Abs(same.P-1) > 1e-9 {
		t.Errorf("identical samples: t = %v, p = %v", same.T, same.P)
	}
}

func TestHolm(t *testing.T) {
	p := []float64{0.01, 0.04, 0.03, 0.005}
	// Sorted: 0.005*4, 0.01*3, 0.03*2, 0.04*1, made monotone
	want := []float64{0.03, 0.06, 0.06, 0.02}
	if got := Holm(p); !floats.EqualApprox(got, want, 1e-12) {
		t.Errorf("want(%v) have(%v)", want, got)
	}

	if got := Holm([]float64{0.6, 0.9}); !floats.Equal(got,
		[]float64{1, 1}) {
		t.Errorf("adjusted p-values should be capped at 1, got %v", got)
	}
	if len(Holm(nil)) != 0 {
		t.Errorf("expected no adjusted p-values")
	}
}

func TestFriedman(t *testing.T) {
	chi2, p, err := Friedman(
		[]float64{1, 2, 3, 4, 5},
		[]float64{2, 3, 4, 5, 6},
		[]float64{3, 4, 5, 6, 7},
	)
	if err != nil {
		t.Fatalf("friedman: %v", err)
	}
	if math.Abs(chi2-10) > 1e-9 {
		t.Errorf("χ²: want(10) have(%v)", chi2)
	}
	if math.Abs(p-math.Exp(-5)) > 1e-9 {
		t.Errorf("p: want(%v) have(%v)", math.Exp(-5), p)
	}
	if p >= 0.05 {
		t.Errorf("expected p < 0.05")
	}
}

func TestFriedmanTies(t *testing.T) {
	// Treatments tied in every block have equal rank sums
	chi2, p, err := Friedman(
		[]float64{1, 5, 2},
		[]float64{1, 5, 2},
		[]float64{3, 6, 4},
	)
	if err != nil {
		t.Fatalf("friedman: %v", err)
	}
	// Ranks per block: 1.5, 1.5, 3; sums 4.5, 4.5, 9; tie term 6 per block
	raw := 12/(3.0*3*4)*(4.5*4.5*2+81) - 3*3*4
	want := raw / (1 - 18/(3.0*3*8))
	if math.Abs(chi2-want) > 1e-9 {
		t.Errorf("χ²: want(%v) have(%v)", want, chi2)
	}
	if p <= 0 || p > 1 {
		t.Errorf("invalid p-value %v", p)
	}

	if _, _, err := Friedman([]float64{1, 2}, []float64{1, 2}); err == nil {
		t.Errorf("expected error when all observations are tied")
	}
	if _, _, err := Friedman([]float64{1, 2}, []float64{1}); err == nil {
		t.Errorf("expected error for unequal group sizes")
	}
}

func TestCompareToBaseline(t *testing.T) {
	c, err := CompareToBaseline(baseline, method1, method2)
	if err != nil {
		t.Fatalf("compareToBaseline: %v", err)
	}
	if c.ANOVA.P >= 0.05 {
		t.Errorf("ANOVA not significant: p = %v", c.ANOVA.P)
	}
	if len(c.Tests) != 2 || len(c.Adjusted) != 2 {
		t.Fatalf("expected two tests")
	}
	for i := range c.Adjusted {
		if !c.Significant(i, 0.05) {
			t.Errorf("method %d not significant: p = %v", i, c.Adjusted[i])
		}
		if c.Adjusted[i] < c.Tests[i].P {
			t.Errorf("adjusted p-value smaller than raw p-value")
		}
	}

	if _, err := CompareToBaseline(baseline); err == nil {
		t.Errorf("expected error without methods")
	}
}
