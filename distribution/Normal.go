package distribution

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	"gorgonia.org/tensor"
)

// Normal implements a diagonal Gaussian distribution over a batch of
// vectors. The mean and standard deviation are matrices of shape
// (batch, dims); row b holds the parameters of the b'th independent
// Gaussian in the batch.
type Normal struct {
	mean      *tensor.Dense
	stddev    *tensor.Dense
	stdNormal distuv.Normal
}

// NewNormal returns a new Normal with the given mean and standard
// deviation. Standard normal noise for sampling is drawn from src.
// The standard deviation must be elementwise strictly positive.
func NewNormal(mean, stddev *tensor.Dense,
	src rand.Source) (*Normal, error) {
	if len(mean.Shape()) != 2 {
		return nil, fmt.Errorf("newnormal: mean must be a matrix "+
			"\n\thave(%v)", mean.Shape())
	}
	if !mean.Shape().Eq(stddev.Shape()) {
		return nil, fmt.Errorf("newnormal: mean and stddev shapes differ"+
			"\n\twant(%v) \n\thave(%v)", mean.Shape(), stddev.Shape())
	}
	for _, sigma := range stddev.Data().([]float64) {
		if sigma <= 0 {
			return nil, fmt.Errorf("newnormal: stddev must be strictly "+
				"positive \n\thave(%v)", sigma)
		}
	}

	return &Normal{
		mean:      mean,
		stddev:    stddev,
		stdNormal: distuv.Normal{Mu: 0.0, Sigma: 1.0, Src: src},
	}, nil
}

// Mean returns the mean of the distribution
func (n *Normal) Mean() *tensor.Dense {
	return n.mean
}

// StdDev returns the standard deviation of the distribution
func (n *Normal) StdDev() *tensor.Dense {
	return n.stddev
}

// Sample draws a reparameterized sample μ + σ ⊙ ε with ε ~ N(0, 1).
// Noise is drawn elementwise in row-major order.
func (n *Normal) Sample() *tensor.Dense {
	mean := n.mean.Data().([]float64)
	stddev := n.stddev.Data().([]float64)

	out := make([]float64, len(mean))
	for i := range out {
		out[i] = mean[i] + stddev[i]*n.stdNormal.Rand()
	}

	return tensor.New(
		tensor.WithBacking(out),
		tensor.WithShape(n.mean.Shape()...),
	)
}

// LogProb returns the elementwise log density of x:
//
//	-½((x - μ)/σ)² - ln(σ) - ln(√(2π))
//
// The result has the same shape as x.
func (n *Normal) LogProb(x *tensor.Dense) (*tensor.Dense, error) {
	if !x.Shape().Eq(n.mean.Shape()) {
		return nil, fmt.Errorf("logprob: invalid input shape"+
			"\n\twant(%v) \n\thave(%v)", n.mean.Shape(), x.Shape())
	}

	logSqrt2Pi := math.Log(math.Pow(2*math.Pi, 0.5))
	mean := n.mean.Data().([]float64)
	stddev := n.stddev.Data().([]float64)
	data := x.Data().([]float64)

	out := make([]float64, len(data))
	for i := range out {
		z := (data[i] - mean[i]) / stddev[i]
		out[i] = -0.5*z*z - math.Log(stddev[i]) - logSqrt2Pi
	}

	return tensor.New(
		tensor.WithBacking(out),
		tensor.WithShape(x.Shape()...),
	), nil
}

// Shape returns the shape of samples drawn from the distribution
func (n *Normal) Shape() tensor.Shape {
	return n.mean.Shape()
}
