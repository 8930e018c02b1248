// Package op provides extended Gorgonia graph operations.
//
// Adapted from aunum/G.ld on GitHub
package op

import (
	G "gorgonia.org/gorgonia"
)

// NegRectifyNeg computes -relu(-x) elementwise, which equals
// min(x, 0).
func NegRectifyNeg(x *G.Node) (retVal *G.Node, err error) {
	neg, err := G.Neg(x)
	if err != nil {
		return nil, err
	}
	rect, err := G.Rectify(neg)
	if err != nil {
		return nil, err
	}
	return G.Neg(rect)
}

// Softplus computes log(1 + exp(x)) elementwise. The computation uses
// the identity softplus(x) = max(x, 0) + log(1 + exp(-|x|)) so that
// large positive inputs do not overflow the intermediate exponential.
func Softplus(x *G.Node) (retVal *G.Node, err error) {
	pos, err := G.Rectify(x)
	if err != nil {
		return nil, err
	}

	abs, err := G.Abs(x)
	if err != nil {
		return nil, err
	}
	neg, err := G.Neg(abs)
	if err != nil {
		return nil, err
	}
	exp, err := G.Exp(neg)
	if err != nil {
		return nil, err
	}

	one := G.NewConstant(1.0)
	sum, err := G.Add(one, exp)
	if err != nil {
		return nil, err
	}
	log, err := G.Log(sum)
	if err != nil {
		return nil, err
	}

	return G.Add(pos, log)
}
