// Package distribution implements sampleable probability distributions
// over batches of vectors. Distributions are composable: a base
// diagonal Normal can be transformed by Tanh, reinterpreted as a joint
// distribution by Independent, and decorated with Monte-Carlo moment
// estimates by SampleDist.
package distribution

import (
	"gorgonia.org/tensor"
)

// Distribution is the capability set shared by all distributions in
// this package: drawing samples, evaluating log densities, and
// querying the batch shape. Sampling is reparameterized, meaning a
// sample is computed as a deterministic function of the distribution
// parameters and independent standard normal noise.
type Distribution interface {
	// Sample draws a reparameterized sample from the distribution.
	Sample() *tensor.Dense

	// LogProb returns the log density of x under the distribution.
	// The shape of the result depends on the distribution: elementwise
	// distributions return the per-dimension log density with the same
	// shape as x, while joint distributions reduce over event
	// dimensions.
	LogProb(x *tensor.Dense) (*tensor.Dense, error)

	// Shape returns the shape of samples drawn from the distribution.
	Shape() tensor.Shape
}
