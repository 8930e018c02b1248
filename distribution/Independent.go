package distribution

import (
	"fmt"

	"gorgonia.org/tensor"
)

// Independent reinterprets the trailing feature axis of an elementwise
// distribution as a single joint event, so that the log density of a
// (batch, dims) sample is the sum of its per-dimension log densities,
// one value per batch element. This is the only place dependence
// between the dimensions of a sampled vector is introduced.
type Independent struct {
	base Distribution
}

// NewIndependent returns a joint version of base
func NewIndependent(base Distribution) *Independent {
	return &Independent{base: base}
}

// Sample draws a reparameterized sample from the base distribution
func (ind *Independent) Sample() *tensor.Dense {
	return ind.base.Sample()
}

// LogProb returns the joint log density of x, a vector with one entry
// per batch element.
func (ind *Independent) LogProb(x *tensor.Dense) (*tensor.Dense, error) {
	elementwise, err := ind.base.LogProb(x)
	if err != nil {
		return nil, err
	}

	shape := elementwise.Shape()
	if len(shape) != 2 {
		return nil, fmt.Errorf("logprob: base log density must be a "+
			"matrix \n\thave(%v)", shape)
	}

	batch, dims := shape[0], shape[1]
	data := elementwise.Data().([]float64)
	out := make([]float64, batch)
	for b := 0; b < batch; b++ {
		total := 0.0
		for d := 0; d < dims; d++ {
			total += data[b*dims+d]
		}
		out[b] = total
	}

	return tensor.New(
		tensor.WithBacking(out),
		tensor.WithShape(batch),
	), nil
}

// Shape returns the shape of samples drawn from the distribution
func (ind *Independent) Shape() tensor.Shape {
	return ind.base.Shape()
}
