package model

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/godreamer/distribution"
	"github.com/samuelfneumann/godreamer/network"
	"github.com/samuelfneumann/godreamer/utils/floatutils"
	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// ActorModel is the policy head: a five-layer feed forward network
// over (belief, state) whose output parameterizes a tanh-transformed
// diagonal Gaussian over the action vector, so that sampled actions
// always lie in (-1, 1) componentwise.
//
// The raw predicted mean is squashed by meanScale·tanh(mean/meanScale),
// bounding the pre-transform mean into (-meanScale, meanScale).
// Computing log probabilities requires inverting the tanh transform,
// which is numerically unstable in highly saturated regions; bounding
// the mean keeps the distribution away from them. The standard
// deviation is softplus(raw + rawInitStd) + minStd, where
// rawInitStd = ln(exp(initStd) - 1) is a fixed offset placing the
// standard deviation near initStd when the network output is zero.
type ActorModel struct {
	*latentHead

	actionSize int
	meanScale  float64
	minStd     float64
	initStd    float64
	samples    int

	src rand.Source
}

// NewActorModel returns a new ActorModel for a fixed batch size. The
// samples parameter sets the number of Monte-Carlo draws used to
// approximate moments of the transformed action distribution; sampling
// noise is seeded with seed.
func NewActorModel(actionSize, beliefSize, stateSize, hiddenSize,
	batch int, act *network.Activation, meanScale, minStd,
	initStd float64, samples int, init G.InitWFn,
	seed uint64) (*ActorModel, error) {
	if meanScale <= 0 {
		return nil, fmt.Errorf("newactormodel: mean scale must be "+
			"strictly positive \n\thave(%v)", meanScale)
	}
	if minStd <= 0 || initStd <= 0 {
		return nil, fmt.Errorf("newactormodel: standard deviation "+
			"parameters must be strictly positive \n\thave(%v, %v)",
			minStd, initStd)
	}
	if samples < 1 {
		return nil, fmt.Errorf("newactormodel: samples must be positive"+
			" \n\thave(%v)", samples)
	}

	head, err := newLatentHead(beliefSize, stateSize, batch,
		2*actionSize, []int{hiddenSize, hiddenSize, hiddenSize,
			hiddenSize}, act, init)
	if err != nil {
		return nil, fmt.Errorf("newactormodel: %v", err)
	}

	return &ActorModel{
		latentHead: head,
		actionSize: actionSize,
		meanScale:  meanScale,
		minStd:     minStd,
		initStd:    initStd,
		samples:    samples,
		src:        rand.NewSource(seed),
	}, nil
}

// Policy returns the action distribution for a batch of (belief,
// state) pairs: a tanh-transformed diagonal Gaussian treated as a
// joint distribution over the action vector, wrapped in a Monte-Carlo
// moment approximator. Sample and LogProb on the result are exact;
// Mean, Mode, and Entropy are approximations.
func (a *ActorModel) Policy(belief,
	state *tensor.Dense) (*distribution.SampleDist, error) {
	out, err := a.forward(belief, state)
	if err != nil {
		return nil, err
	}

	// Split the network output into per-dimension raw mean and raw
	// standard deviation, then apply the bounding transforms
	rawInitStd := math.Log(math.Exp(a.initStd) - 1)
	mean := make([]float64, a.batchSize*a.actionSize)
	stddev := make([]float64, a.batchSize*a.actionSize)
	for b := 0; b < a.batchSize; b++ {
		for d := 0; d < a.actionSize; d++ {
			rawMean := out[b*2*a.actionSize+d]
			rawStd := out[b*2*a.actionSize+a.actionSize+d]

			mean[b*a.actionSize+d] = a.meanScale *
				math.Tanh(rawMean/a.meanScale)
			stddev[b*a.actionSize+d] = floatutils.Softplus(
				rawStd+rawInitStd) + a.minStd
		}
	}

	normal, err := distribution.NewNormal(
		tensor.New(
			tensor.WithBacking(mean),
			tensor.WithShape(a.batchSize, a.actionSize),
		),
		tensor.New(
			tensor.WithBacking(stddev),
			tensor.WithShape(a.batchSize, a.actionSize),
		),
		a.src,
	)
	if err != nil {
		return nil, fmt.Errorf("policy: could not create action "+
			"distribution: %v", err)
	}

	dist := distribution.NewIndependent(distribution.NewTanh(normal))
	return distribution.NewSampleDist(dist, a.samples), nil
}

// Forward selects actions for a batch of (belief, state) pairs. When
// deterministic is true, the action is the Monte-Carlo mean of the
// action distribution; otherwise it is a reparameterized sample. When
// withLogProb is true, the exact joint log probability of the selected
// actions is returned as a (batch,) vector; otherwise the second
// return value is nil.
func (a *ActorModel) Forward(belief, state *tensor.Dense, deterministic,
	withLogProb bool) (*tensor.Dense, *tensor.Dense, error) {
	dist, err := a.Policy(belief, state)
	if err != nil {
		return nil, nil, err
	}

	var action *tensor.Dense
	if deterministic {
		action = dist.Mean()
	} else {
		action = dist.Sample()
	}

	var logProb *tensor.Dense
	if withLogProb {
		logProb, err = dist.LogProb(action)
		if err != nil {
			return nil, nil, fmt.Errorf("forward: could not compute log "+
				"probability: %v", err)
		}
	}

	return action, logProb, nil
}

// ActionDims returns the dimensionality of the actions selected by the
// ActorModel.
func (a *ActorModel) ActionDims() int {
	return a.actionSize
}
