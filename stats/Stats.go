// Package stats implements the hypothesis tests used to compare the
// per-episode metrics of training runs across conditions
package stats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ANOVAResult is the result of a one-way analysis of variance
type ANOVAResult struct {
	F   float64
	DF1 float64
	DF2 float64
	P   float64
}

// TTestResult is the result of a two-sided two-sample t-test
type TTestResult struct {
	T  float64
	DF float64
	P  float64
}

// WelchANOVA performs Welch's one-way analysis of variance, which does
// not assume equal group variances. Each group needs at least two
// observations and a non-zero variance.
func WelchANOVA(groups ...[]float64) (ANOVAResult, error) {
	k := float64(len(groups))
	if len(groups) < 2 {
		return ANOVAResult{}, fmt.Errorf("welchANOVA: need at least two " +
			"groups")
	}

	means := make([]float64, len(groups))
	weights := make([]float64, len(groups))
	counts := make([]float64, len(groups))
	sumW, weightedMean := 0.0, 0.0
	for i, g := range groups {
		if len(g) < 2 {
			return ANOVAResult{}, fmt.Errorf("welchANOVA: group %d has "+
				"fewer than two observations", i)
		}
		mean, variance := stat.MeanVariance(g, nil)
		if variance == 0 {
			return ANOVAResult{}, fmt.Errorf("welchANOVA: group %d has "+
				"zero variance", i)
		}
		counts[i] = float64(len(g))
		means[i] = mean
		weights[i] = counts[i] / variance
		sumW += weights[i]
		weightedMean += weights[i] * mean
	}
	weightedMean /= sumW

	between, tmp := 0.0, 0.0
	for i := range groups {
		between += weights[i] * (means[i] - weightedMean) *
			(means[i] - weightedMean)
		tmp += (1 - weights[i]/sumW) * (1 - weights[i]/sumW) /
			(counts[i] - 1)
	}
	between /= k - 1
	denom := 1 + 2*(k-2)/(k*k-1)*tmp

	f := between / denom
	df1 := k - 1
	df2 := (k*k - 1) / (3 * tmp)
	p := distuv.F{D1: df1, D2: df2}.Survival(f)

	return ANOVAResult{F: f, DF1: df1, DF2: df2, P: p}, nil
}

// WelchTTest performs Welch's two-sided t-test for a difference in means
// between two samples with possibly unequal variances
func WelchTTest(a, b []float64) (TTestResult, error) {
	if len(a) < 2 || len(b) < 2 {
		return TTestResult{}, fmt.Errorf("welchTTest: samples need at " +
			"least two observations")
	}

	meanA, varA := stat.MeanVariance(a, nil)
	meanB, varB := stat.MeanVariance(b, nil)
	na, nb := float64(len(a)), float64(len(b))

	seA, seB := varA/na, varB/nb
	se := seA + seB
	if se == 0 {
		return TTestResult{}, fmt.Errorf("welchTTest: both samples have " +
			"zero variance")
	}

	t := (meanA - meanB) / math.Sqrt(se)
	df := se * se / (seA*seA/(na-1) + seB*seB/(nb-1))
	p := 2 * distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}.Survival(math.Abs(t))

	return TTestResult{T: t, DF: df, P: math.Min(p, 1)}, nil
}

// Holm returns the Holm-Bonferroni adjusted p-values of pValues, in the
// order given
func Holm(pValues []float64) []float64 {
	m := len(pValues)
	order := make([]int, m)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return pValues[order[i]] < pValues[order[j]]
	})

	adjusted := make([]float64, m)
	running := 0.0
	for rank, idx := range order {
		adj := math.Min(1, float64(m-rank)*pValues[idx])
		running = math.Max(running, adj)
		adjusted[idx] = running
	}
	return adjusted
}

// Friedman performs the Friedman test for differences between k
// treatments measured on the same n blocks. Each group holds the
// measurements of one treatment, one per block. Ties within a block are
// given their average rank, and the statistic is corrected for ties.
func Friedman(groups ...[]float64) (chi2, p float64, err error) {
	k := len(groups)
	if k < 2 {
		return 0, 0, fmt.Errorf("friedman: need at least two groups")
	}
	n := len(groups[0])
	if n < 1 {
		return 0, 0, fmt.Errorf("friedman: groups are empty")
	}
	for i, g := range groups {
		if len(g) != n {
			return 0, 0, fmt.Errorf("friedman: group %d has %d "+
				"observations, want %d", i, len(g), n)
		}
	}

	rankSums := make([]float64, k)
	ties := 0.0
	block := make([]float64, k)
	for b := 0; b < n; b++ {
		for j := range groups {
			block[j] = groups[j][b]
		}
		ranks, t := rank(block)
		ties += t
		for j, r := range ranks {
			rankSums[j] += r
		}
	}

	nf, kf := float64(n), float64(k)
	sumSq := 0.0
	for _, r := range rankSums {
		sumSq += r * r
	}
	chi2 = 12/(nf*kf*(kf+1))*sumSq - 3*nf*(kf+1)

	correction := 1 - ties/(nf*kf*(kf*kf-1))
	if correction <= 0 {
		return 0, 0, fmt.Errorf("friedman: all observations are tied")
	}
	chi2 /= correction

	p = distuv.ChiSquared{K: kf - 1}.Survival(chi2)
	return chi2, p, nil
}

// rank returns the 1-based ranks of x, averaging the ranks of ties, and
// the tie term Σ(t³ - t) over groups of t tied values
func rank(x []float64) ([]float64, float64) {
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return x[idx[i]] < x[idx[j]] })

	ranks := make([]float64, len(x))
	ties := 0.0
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && x[idx[j+1]] == x[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for l := i; l <= j; l++ {
			ranks[idx[l]] = avg
		}
		t := float64(j - i + 1)
		ties += t*t*t - t
		i = j + 1
	}
	return ranks, ties
}

// Comparison compares several methods to a baseline
type Comparison struct {
	ANOVA    ANOVAResult   // Welch ANOVA over the baseline and all methods
	Tests    []TTestResult // Welch t-test of each method against the baseline
	Adjusted []float64     // Holm adjusted p-values of Tests
}

// Significant returns whether the i-th method differs from the baseline
// at level alpha after correction
func (c Comparison) Significant(i int, alpha float64) bool {
	return c.Adjusted[i] < alpha
}

// CompareToBaseline runs a Welch ANOVA over all groups followed by
// Welch t-tests of each method against the baseline with Holm correction
func CompareToBaseline(baseline []float64,
	methods ...[]float64) (Comparison, error) {
	if len(methods) == 0 {
		return Comparison{}, fmt.Errorf("compareToBaseline: no methods")
	}

	groups := append([][]float64{baseline}, methods...)
	anova, err := WelchANOVA(groups...)
	if err != nil {
		return Comparison{}, fmt.Errorf("compareToBaseline: %v", err)
	}

	tests := make([]TTestResult, len(methods))
	pValues := make([]float64, len(methods))
	for i, m := range methods {
		if tests[i], err = WelchTTest(baseline, m); err != nil {
			return Comparison{}, fmt.Errorf("compareToBaseline: method "+
				"%d: %v", i, err)
		}
		pValues[i] = tests[i].P
	}

	return Comparison{
		ANOVA:    anova,
		Tests:    tests,
		Adjusted: Holm(pValues),
	}, nil
}
