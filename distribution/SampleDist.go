package distribution

import (
	"fmt"

	"gorgonia.org/tensor"
)

// DefaultSamples is the default number of Monte-Carlo draws used by a
// SampleDist to estimate moments.
const DefaultSamples int = 100

// SampleDist decorates a Distribution with Monte-Carlo estimates of
// moments that the wrapped distribution cannot compute in closed form.
// A tanh-transformed Gaussian, for example, has no analytic mean, mode,
// or entropy. All Distribution methods delegate to the wrapped
// distribution, so a SampleDist can be used anywhere its underlying
// distribution can.
//
// Mean, Mode, and Entropy are approximations: repeated calls draw
// fresh noise and so return values that differ within Monte-Carlo
// estimation error. Callers needing exact values, such as the log
// density of a chosen action, should use LogProb, which is exact.
type SampleDist struct {
	dist    Distribution
	samples int
}

// NewSampleDist returns a SampleDist estimating moments of dist with
// samples Monte-Carlo draws per estimate.
func NewSampleDist(dist Distribution, samples int) *SampleDist {
	if samples < 1 {
		panic(fmt.Sprintf("newsampledist: samples must be positive "+
			"\n\thave(%v)", samples))
	}
	return &SampleDist{
		dist:    dist,
		samples: samples,
	}
}

// Sample draws a reparameterized sample from the wrapped distribution
func (s *SampleDist) Sample() *tensor.Dense {
	return s.dist.Sample()
}

// LogProb returns the exact log density of x under the wrapped
// distribution.
func (s *SampleDist) LogProb(x *tensor.Dense) (*tensor.Dense, error) {
	return s.dist.LogProb(x)
}

// Shape returns the shape of samples drawn from the wrapped
// distribution.
func (s *SampleDist) Shape() tensor.Shape {
	return s.dist.Shape()
}

// Mean estimates the mean of the wrapped distribution as the
// elementwise arithmetic mean of Monte-Carlo draws.
func (s *SampleDist) Mean() *tensor.Dense {
	var sum []float64
	var shape tensor.Shape
	for i := 0; i < s.samples; i++ {
		sample := s.dist.Sample()
		data := sample.Data().([]float64)
		if sum == nil {
			sum = make([]float64, len(data))
			shape = sample.Shape()
		}
		for j := range data {
			sum[j] += data[j]
		}
	}

	for j := range sum {
		sum[j] /= float64(s.samples)
	}

	return tensor.New(
		tensor.WithBacking(sum),
		tensor.WithShape(shape...),
	)
}

// Mode estimates the mode of the wrapped distribution by drawing
// Monte-Carlo samples and returning, per batch element, the sample
// with the highest joint log density. The wrapped distribution must
// produce joint log densities of shape (batch,), as Independent does.
func (s *SampleDist) Mode() (*tensor.Dense, error) {
	shape := s.dist.Shape()
	if len(shape) != 2 {
		return nil, fmt.Errorf("mode: samples must be matrices "+
			"\n\thave(%v)", shape)
	}
	batch, dims := shape[0], shape[1]

	best := make([]float64, batch*dims)
	bestLogProb := make([]float64, batch)
	for i := 0; i < s.samples; i++ {
		sample := s.dist.Sample()
		logProb, err := s.dist.LogProb(sample)
		if err != nil {
			return nil, fmt.Errorf("mode: could not compute log "+
				"density: %v", err)
		}
		if len(logProb.Shape()) != 1 || logProb.Shape()[0] != batch {
			return nil, fmt.Errorf("mode: log density must be a joint "+
				"density over batch elements \n\twant(%v) \n\thave(%v)",
				tensor.Shape{batch}, logProb.Shape())
		}

		sampleData := sample.Data().([]float64)
		logProbData := logProb.Data().([]float64)
		for b := 0; b < batch; b++ {
			if i == 0 || logProbData[b] > bestLogProb[b] {
				bestLogProb[b] = logProbData[b]
				copy(best[b*dims:(b+1)*dims], sampleData[b*dims:(b+1)*dims])
			}
		}
	}

	return tensor.New(
		tensor.WithBacking(best),
		tensor.WithShape(batch, dims),
	), nil
}

// Entropy estimates the entropy of the wrapped distribution as the
// negated Monte-Carlo mean of the log density of its own samples. The
// result has the shape of the wrapped distribution's log density.
func (s *SampleDist) Entropy() (*tensor.Dense, error) {
	var sum []float64
	var shape tensor.Shape
	for i := 0; i < s.samples; i++ {
		sample := s.dist.Sample()
		logProb, err := s.dist.LogProb(sample)
		if err != nil {
			return nil, fmt.Errorf("entropy: could not compute log "+
				"density: %v", err)
		}

		data := logProb.Data().([]float64)
		if sum == nil {
			sum = make([]float64, len(data))
			shape = logProb.Shape()
		}
		for j := range data {
			sum[j] += data[j]
		}
	}

	for j := range sum {
		sum[j] = -sum[j] / float64(s.samples)
	}

	return tensor.New(
		tensor.WithBacking(sum),
		tensor.WithShape(shape...),
	), nil
}
