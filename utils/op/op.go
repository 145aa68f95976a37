// Package op provides extended Gorgonia graph operations.
package op

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// LogSumExp calculates the log of the summation of exponentials of
// all logits along the given axis.
//
// Use this in place of Gorgonia's LogSumExp, which has the final sum
// and log interchanged, which is incorrect.
func LogSumExp(logits *G.Node, along int) *G.Node {
	max := G.Must(G.Max(logits, along))

	exponent := G.Must(G.BroadcastSub(logits, max, nil, []byte{1}))
	exponent = G.Must(G.Exp(exponent))

	sum := G.Must(G.Sum(exponent, along))
	log := G.Must(G.Log(sum))

	return G.Must(G.Add(max, log))
}

// LogSoftmax returns the log probabilities of a (batch, classes) matrix
// of logits, normalized along the class dimension
func LogSoftmax(logits *G.Node) (*G.Node, error) {
	if !logits.IsMatrix() {
		return nil, fmt.Errorf("logSoftmax: logits must be a matrix")
	}
	lse := LogSumExp(logits, 1)
	return G.BroadcastSub(logits, lse, nil, []byte{1})
}

// Scale multiplies every element of x by the constant c
func Scale(x *G.Node, c float64) (*G.Node, error) {
	return G.Mul(G.NewConstant(c), x)
}

// Minimum returns the element-wise minimum of two nodes of equal shape.
//
// The minimum is computed as (a + b - |a - b|) / 2 so that gradients flow
// to whichever argument is smaller. At ties both arguments receive half
// of the gradient.
func Minimum(a, b *G.Node) (*G.Node, error) {
	return extremum(a, b, -0.5)
}

// Maximum returns the element-wise maximum of two nodes of equal shape,
// computed as (a + b + |a - b|) / 2
func Maximum(a, b *G.Node) (*G.Node, error) {
	return extremum(a, b, 0.5)
}

func extremum(a, b *G.Node, sign float64) (*G.Node, error) {
	if !a.Shape().Eq(b.Shape()) {
		return nil, fmt.Errorf("extremum: shapes %v and %v differ", a.Shape(),
			b.Shape())
	}

	sum, err := G.Add(a, b)
	if err != nil {
		return nil, err
	}
	diff, err := G.Sub(a, b)
	if err != nil {
		return nil, err
	}
	diff, err = G.Abs(diff)
	if err != nil {
		return nil, err
	}

	half, err := Scale(sum, 0.5)
	if err != nil {
		return nil, err
	}
	spread, err := Scale(diff, sign)
	if err != nil {
		return nil, err
	}
	return G.Add(half, spread)
}

// Clip clips the elements of a node to [min, max]. Gradients are zero
// wherever the value was clipped.
func Clip(value *G.Node, min, max float64) (*G.Node, error) {
	if min > max {
		return nil, fmt.Errorf("clip: min %v > max %v", min, max)
	}

	// max(x, min) = (x + min + |x - min|) / 2, likewise for the upper bound
	lower, err := scalarExtremum(value, min, 0.5)
	if err != nil {
		return nil, fmt.Errorf("clip: %v", err)
	}
	clipped, err := scalarExtremum(lower, max, -0.5)
	if err != nil {
		return nil, fmt.Errorf("clip: %v", err)
	}
	return clipped, nil
}

func scalarExtremum(x *G.Node, c, sign float64) (*G.Node, error) {
	shifted, err := G.Sub(x, G.NewConstant(c))
	if err != nil {
		return nil, err
	}
	abs, err := G.Abs(shifted)
	if err != nil {
		return nil, err
	}
	spread, err := Scale(abs, sign)
	if err != nil {
		return nil, err
	}

	// (x + c)/2 + sign*|x - c|
	half, err := G.Add(x, G.NewConstant(c))
	if err != nil {
		return nil, err
	}
	if half, err = Scale(half, 0.5); err != nil {
		return nil, err
	}
	return G.Add(half, spread)
}
