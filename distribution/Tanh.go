package distribution

import (
	"math"

	"github.com/samuelfneumann/godreamer/utils/floatutils"
	"gorgonia.org/tensor"
)

// tanhBound keeps inputs to the inverse transform strictly inside
// (-1, 1). Inverting the tanh becomes numerically unstable in highly
// saturated regions.
const tanhBound float64 = 1e-6

// Tanh transforms a base distribution by the hyperbolic tangent,
// bounding its samples into (-1, 1). Log densities account for the
// change of variables:
//
//	log p(y) = log p_base(atanh(y)) - log(1 - y²)
type Tanh struct {
	base Distribution
}

// NewTanh returns a Tanh-transformed version of base
func NewTanh(base Distribution) *Tanh {
	return &Tanh{base: base}
}

// Sample draws a reparameterized sample from the base distribution and
// squashes it elementwise through tanh.
func (t *Tanh) Sample() *tensor.Dense {
	sample := t.base.Sample()
	data := sample.Data().([]float64)

	out := make([]float64, len(data))
	for i := range out {
		out[i] = math.Tanh(data[i])
	}

	return tensor.New(
		tensor.WithBacking(out),
		tensor.WithShape(sample.Shape()...),
	)
}

// LogProb returns the elementwise log density of y under the
// transformed distribution. Inputs are clipped away from ±1 before the
// inverse transform.
func (t *Tanh) LogProb(y *tensor.Dense) (*tensor.Dense, error) {
	data := y.Data().([]float64)

	pre := make([]float64, len(data))
	jacobian := make([]float64, len(data))
	for i := range data {
		clipped := floatutils.Clip(data[i], -1+tanhBound, 1-tanhBound)
		pre[i] = math.Atanh(clipped)
		jacobian[i] = math.Log(1 - clipped*clipped)
	}

	preTensor := tensor.New(
		tensor.WithBacking(pre),
		tensor.WithShape(y.Shape()...),
	)
	logProb, err := t.base.LogProb(preTensor)
	if err != nil {
		return nil, err
	}

	out := logProb.Data().([]float64)
	for i := range out {
		out[i] -= jacobian[i]
	}

	return logProb, nil
}

// Shape returns the shape of samples drawn from the distribution
func (t *Tanh) Shape() tensor.Shape {
	return t.base.Shape()
}
