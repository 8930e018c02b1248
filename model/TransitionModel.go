// Package model implements the learned components of a latent world
// model: a recurrent state-space model fusing deterministic and
// stochastic latent dynamics, decoder heads over the latent space, and
// a bounded stochastic policy head. All components are synchronous
// forward computations over float64 tensors; training them is the
// caller's concern.
package model

import (
	"fmt"

	"github.com/samuelfneumann/godreamer/distribution"
	"github.com/samuelfneumann/godreamer/network"
	"github.com/samuelfneumann/godreamer/utils/op"
	"github.com/samuelfneumann/godreamer/utils/tensorutils"
	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Rollout holds the stacked latent sequences produced by a
// TransitionModel over L timesteps. Every field has a leading time
// axis of length L; the initial belief and state supplied to Forward
// are not included. The posterior fields are nil unless observation
// embeddings were supplied.
type Rollout struct {
	Beliefs      *tensor.Dense // (L, batch, beliefSize)
	PriorStates  *tensor.Dense // (L, batch, stateSize)
	PriorMeans   *tensor.Dense // (L, batch, stateSize)
	PriorStdDevs *tensor.Dense // (L, batch, stateSize)

	PosteriorStates  *tensor.Dense // (L, batch, stateSize)
	PosteriorMeans   *tensor.Dense // (L, batch, stateSize)
	PosteriorStdDevs *tensor.Dense // (L, batch, stateSize)
}

// TransitionModel implements a recurrent state-space model. Each
// timestep, a GRU cell updates a deterministic belief from the
// previous belief and an embedding of the previous stochastic state
// and action. The next stochastic state is then sampled, with
// reparameterization, from a diagonal Gaussian whose parameters are
// predicted from the new belief alone (the prior) and, when an
// observation embedding is available, from the belief and embedding
// together (the posterior).
//
// The model's computational graph covers a single timestep for a fixed
// batch size; Forward runs it once per step of the input sequence,
// carrying beliefs and states across steps. The time recursion is
// inherently sequential, while batch and feature dimensions are
// vectorized by the tensor runtime.
type TransitionModel struct {
	g  *G.ExprGraph
	vm G.VM

	embed       *network.FCLayer
	cell        *network.GRUCell
	priorHidden *network.FCLayer
	priorOut    *network.FCLayer
	postHidden  *network.FCLayer
	postOut     *network.FCLayer

	// Input nodes, set before each step's run
	prevState  *G.Node
	action     *G.Node
	prevBelief *G.Node
	embedding  *G.Node

	// Values captured from each step's run
	beliefVal    G.Value
	priorMeanVal G.Value
	priorStdVal  G.Value
	postMeanVal  G.Value
	postStdVal   G.Value

	beliefSize    int
	stateSize     int
	actionSize    int
	embeddingSize int
	batchSize     int
	minStdDev     float64

	src rand.Source
}

// NewTransitionModel returns a new TransitionModel for a fixed batch
// size. The act parameter is the pointwise nonlinearity applied to the
// state-action embedding and the prior/posterior hidden layers.
// Standard deviations are lower bounded by minStdDev through a
// softplus positivity constraint. Weights are initialized with init
// and sampling noise is seeded with seed.
func NewTransitionModel(beliefSize, stateSize, actionSize, hiddenSize,
	embeddingSize, batch int, act *network.Activation, minStdDev float64,
	init G.InitWFn, seed uint64) (*TransitionModel, error) {
	if minStdDev <= 0 {
		return nil, fmt.Errorf("newtransitionmodel: minimum standard "+
			"deviation must be strictly positive \n\thave(%v)", minStdDev)
	}

	g := G.NewGraph()
	t := &TransitionModel{
		g: g,

		embed: network.NewFCLayer(g, stateSize+actionSize, beliefSize,
			true, act, init, "EmbedStateAction"),
		cell: network.NewGRUCell(g, beliefSize, beliefSize, init, "Belief"),
		priorHidden: network.NewFCLayer(g, beliefSize, hiddenSize, true,
			act, init, "PriorHidden"),
		priorOut: network.NewFCLayer(g, hiddenSize, 2*stateSize, true,
			network.Identity(), init, "PriorOut"),
		postHidden: network.NewFCLayer(g, beliefSize+embeddingSize,
			hiddenSize, true, act, init, "PosteriorHidden"),
		postOut: network.NewFCLayer(g, hiddenSize, 2*stateSize, true,
			network.Identity(), init, "PosteriorOut"),

		beliefSize:    beliefSize,
		stateSize:     stateSize,
		actionSize:    actionSize,
		embeddingSize: embeddingSize,
		batchSize:     batch,
		minStdDev:     minStdDev,

		src: rand.NewSource(seed),
	}

	input := func(cols int, name string) *G.Node {
		return G.NewMatrix(g, tensor.Float64, G.WithShape(batch, cols),
			G.WithName(name), G.WithInit(G.Zeroes()))
	}
	t.prevState = input(stateSize, "prevState")
	t.action = input(actionSize, "action")
	t.prevBelief = input(beliefSize, "prevBelief")
	t.embedding = input(embeddingSize, "embedding")

	if err := t.fwd(); err != nil {
		return nil, fmt.Errorf("newtransitionmodel: could not compute "+
			"forward pass: %v", err)
	}
	t.vm = G.NewTapeMachine(g)

	return t, nil
}

// fwd adds the single-step forward pass to the computational graph
func (t *TransitionModel) fwd() error {
	// Deterministic belief update
	stateAction := G.Must(G.Concat(1, t.prevState, t.action))
	hidden, err := t.embed.Fwd(stateAction)
	if err != nil {
		return fmt.Errorf("fwd: could not embed state-action: %v", err)
	}
	belief, err := t.cell.Fwd(hidden, t.prevBelief)
	if err != nil {
		return fmt.Errorf("fwd: could not update belief: %v", err)
	}
	G.Read(belief, &t.beliefVal)

	// Prior from the belief alone
	priorMean, priorStd, err := t.stateHead(belief, t.priorHidden,
		t.priorOut)
	if err != nil {
		return fmt.Errorf("fwd: could not compute prior: %v", err)
	}
	G.Read(priorMean, &t.priorMeanVal)
	G.Read(priorStd, &t.priorStdVal)

	// Posterior from the belief and the observation embedding. The
	// posterior branch is always part of the graph; prior-only rollouts
	// run it on a zero embedding and discard the result.
	beliefEmbed := G.Must(G.Concat(1, belief, t.embedding))
	postMean, postStd, err := t.stateHead(beliefEmbed, t.postHidden,
		t.postOut)
	if err != nil {
		return fmt.Errorf("fwd: could not compute posterior: %v", err)
	}
	G.Read(postMean, &t.postMeanVal)
	G.Read(postStd, &t.postStdVal)

	return nil
}

// stateHead adds a stochastic state head to the graph: a hidden layer
// over in, a linear layer emitting 2*stateSize values split into mean
// and raw standard deviation, and the softplus positivity constraint
// with the configured floor.
func (t *TransitionModel) stateHead(in *G.Node, hidden,
	out *network.FCLayer) (*G.Node, *G.Node, error) {
	h, err := hidden.Fwd(in)
	if err != nil {
		return nil, nil, err
	}
	moments, err := out.Fwd(h)
	if err != nil {
		return nil, nil, err
	}

	// Slicing can collapse degenerate dimensions, so restore the
	// (batch, stateSize) shape explicitly
	mean := G.Must(G.Slice(moments, nil,
		tensorutils.NewSlice(0, t.stateSize, 1)))
	mean = G.Must(G.Reshape(mean, tensor.Shape{t.batchSize, t.stateSize}))
	rawStd := G.Must(G.Slice(moments, nil,
		tensorutils.NewSlice(t.stateSize, 2*t.stateSize, 1)))
	rawStd = G.Must(G.Reshape(rawStd,
		tensor.Shape{t.batchSize, t.stateSize}))

	std, err := op.Softplus(rawStd)
	if err != nil {
		return nil, nil, err
	}
	floor := G.NewConstant(t.minStdDev)
	std = G.Must(G.Add(std, floor))

	return mean, std, nil
}

// BatchSize returns the batch size the model was constructed for
func (t *TransitionModel) BatchSize() int {
	return t.batchSize
}

// Learnables returns the learnable nodes of the model
func (t *TransitionModel) Learnables() G.Nodes {
	learnables := G.Nodes{}
	for _, layer := range []*network.FCLayer{t.embed, t.priorHidden,
		t.priorOut, t.postHidden, t.postOut} {
		learnables = append(learnables, layer.Weights(), layer.Bias())
	}
	return append(learnables, t.cell.Learnables()...)
}

// Forward rolls the model forward through a sequence of actions,
// returning the latent sequences for steps 1..L where L is the number
// of actions. The initial belief and state seed the recursion but are
// not part of the returned sequences.
//
// Arguments:
//   - prevBelief (batch, beliefSize), prevState (batch, stateSize):
//     the latent state the rollout starts from.
//   - actions (L, batch, actionSize): actions[t] drives the transition
//     into step t.
//   - observations (L, batch, embeddingSize) or nil: observation
//     embeddings aligned with actions. When given, posterior states
//     are computed and the recurrence is driven by posterior rather
//     than prior states.
//   - nonterminals (L-1, batch, 1) or nil: episode-boundary mask.
//     Entry k zeroes the state carried into step k+1 when it is 0. The
//     first step always uses the supplied initial state unmasked.
//
// Shape mismatches are precondition violations and return an error
// without any computation having been performed.
func (t *TransitionModel) Forward(prevBelief, prevState, actions,
	observations, nonterminals *tensor.Dense) (*Rollout, error) {
	L, err := t.validate(prevBelief, prevState, actions, observations,
		nonterminals)
	if err != nil {
		return nil, err
	}

	batch := t.batchSize
	hasObs := observations != nil

	beliefData := copyFloats(prevBelief.Data().([]float64))
	stateData := copyFloats(prevState.Data().([]float64))
	actionData := actions.Data().([]float64)

	var obsData, maskData []float64
	if hasObs {
		obsData = observations.Data().([]float64)
	}
	if nonterminals != nil {
		maskData = nonterminals.Data().([]float64)
	}

	beliefs := make([]*tensor.Dense, L)
	priorStates := make([]*tensor.Dense, L)
	priorMeans := make([]*tensor.Dense, L)
	priorStds := make([]*tensor.Dense, L)
	postStates := make([]*tensor.Dense, L)
	postMeans := make([]*tensor.Dense, L)
	postStds := make([]*tensor.Dense, L)

	for step := 0; step < L; step++ {
		// Mask out state carried across an episode boundary. The very
		// first step always uses the caller's initial state unmasked.
		if step > 0 && maskData != nil {
			for b := 0; b < batch; b++ {
				m := maskData[(step-1)*batch+b]
				for d := 0; d < t.stateSize; d++ {
					stateData[b*t.stateSize+d] *= m
				}
			}
		}

		if err := t.setStepInputs(stateData, beliefData, actionData,
			obsData, step); err != nil {
			return nil, fmt.Errorf("forward: could not set step %v "+
				"inputs: %v", step, err)
		}

		if err := t.vm.RunAll(); err != nil {
			return nil, fmt.Errorf("forward: could not run step %v: %v",
				step, err)
		}

		beliefData = copyFloats(t.beliefVal.Data().([]float64))
		beliefs[step] = t.matrix(beliefData, t.beliefSize)

		priorMeans[step] = t.matrix(
			copyFloats(t.priorMeanVal.Data().([]float64)), t.stateSize)
		priorStds[step] = t.matrix(
			copyFloats(t.priorStdVal.Data().([]float64)), t.stateSize)
		priorStates[step], err = t.sampleState(priorMeans[step],
			priorStds[step])
		if err != nil {
			return nil, fmt.Errorf("forward: could not sample prior "+
				"state at step %v: %v", step, err)
		}

		if hasObs {
			postMeans[step] = t.matrix(
				copyFloats(t.postMeanVal.Data().([]float64)), t.stateSize)
			postStds[step] = t.matrix(
				copyFloats(t.postStdVal.Data().([]float64)), t.stateSize)
			postStates[step], err = t.sampleState(postMeans[step],
				postStds[step])
			if err != nil {
				return nil, fmt.Errorf("forward: could not sample "+
					"posterior state at step %v: %v", step, err)
			}
		}

		t.vm.Reset()

		// Select the state that drives the next belief update
		if hasObs {
			stateData = copyFloats(postStates[step].Data().([]float64))
		} else {
			stateData = copyFloats(priorStates[step].Data().([]float64))
		}
	}

	rollout := &Rollout{}
	if rollout.Beliefs, err = tensorutils.Stack(beliefs); err != nil {
		return nil, fmt.Errorf("forward: %v", err)
	}
	if rollout.PriorStates, err = tensorutils.Stack(priorStates); err != nil {
		return nil, fmt.Errorf("forward: %v", err)
	}
	if rollout.PriorMeans, err = tensorutils.Stack(priorMeans); err != nil {
		return nil, fmt.Errorf("forward: %v", err)
	}
	if rollout.PriorStdDevs, err = tensorutils.Stack(priorStds); err != nil {
		return nil, fmt.Errorf("forward: %v", err)
	}
	if hasObs {
		if rollout.PosteriorStates, err = tensorutils.Stack(postStates); err != nil {
			return nil, fmt.Errorf("forward: %v", err)
		}
		if rollout.PosteriorMeans, err = tensorutils.Stack(postMeans); err != nil {
			return nil, fmt.Errorf("forward: %v", err)
		}
		if rollout.PosteriorStdDevs, err = tensorutils.Stack(postStds); err != nil {
			return nil, fmt.Errorf("forward: %v", err)
		}
	}

	return rollout, nil
}

// validate checks the shapes of Forward's arguments, returning the
// sequence length.
func (t *TransitionModel) validate(prevBelief, prevState, actions,
	observations, nonterminals *tensor.Dense) (int, error) {
	wantBelief := tensor.Shape{t.batchSize, t.beliefSize}
	if !prevBelief.Shape().Eq(wantBelief) {
		return 0, fmt.Errorf("forward: invalid initial belief shape"+
			"\n\twant(%v) \n\thave(%v)", wantBelief, prevBelief.Shape())
	}

	wantState := tensor.Shape{t.batchSize, t.stateSize}
	if !prevState.Shape().Eq(wantState) {
		return 0, fmt.Errorf("forward: invalid initial state shape"+
			"\n\twant(%v) \n\thave(%v)", wantState, prevState.Shape())
	}

	actionShape := actions.Shape()
	if len(actionShape) != 3 || actionShape[1] != t.batchSize ||
		actionShape[2] != t.actionSize || actionShape[0] < 1 {
		return 0, fmt.Errorf("forward: invalid action sequence shape"+
			"\n\twant(L, %v, %v) \n\thave(%v)", t.batchSize, t.actionSize,
			actionShape)
	}
	L := actionShape[0]

	if observations != nil {
		wantObs := tensor.Shape{L, t.batchSize, t.embeddingSize}
		if !observations.Shape().Eq(wantObs) {
			return 0, fmt.Errorf("forward: invalid observation sequence "+
				"shape\n\twant(%v) \n\thave(%v)", wantObs,
				observations.Shape())
		}
	}

	if nonterminals != nil {
		if L < 2 {
			return 0, fmt.Errorf("forward: nonterminal mask requires at " +
				"least two timesteps")
		}
		wantMask := tensor.Shape{L - 1, t.batchSize, 1}
		if !nonterminals.Shape().Eq(wantMask) {
			return 0, fmt.Errorf("forward: invalid nonterminal mask shape"+
				"\n\twant(%v) \n\thave(%v)", wantMask,
				nonterminals.Shape())
		}
	}

	return L, nil
}

// setStepInputs binds the graph's input nodes for one timestep
func (t *TransitionModel) setStepInputs(stateData, beliefData,
	actionData, obsData []float64, step int) error {
	batch := t.batchSize

	let := func(node *G.Node, data []float64, cols int) error {
		return G.Let(node, tensor.New(
			tensor.WithBacking(copyFloats(data)),
			tensor.WithShape(batch, cols),
		))
	}

	if err := let(t.prevState, stateData, t.stateSize); err != nil {
		return err
	}
	if err := let(t.prevBelief, beliefData, t.beliefSize); err != nil {
		return err
	}

	stride := batch * t.actionSize
	if err := let(t.action, actionData[step*stride:(step+1)*stride],
		t.actionSize); err != nil {
		return err
	}

	embedStride := batch * t.embeddingSize
	if obsData != nil {
		return let(t.embedding, obsData[step*embedStride:(step+1)*embedStride],
			t.embeddingSize)
	}
	return let(t.embedding, make([]float64, embedStride), t.embeddingSize)
}

// sampleState draws a reparameterized state sample from the diagonal
// Gaussian with the given moments. Noise is drawn elementwise in
// row-major order, prior before posterior within a step.
func (t *TransitionModel) sampleState(mean,
	stddev *tensor.Dense) (*tensor.Dense, error) {
	dist, err := distribution.NewNormal(mean, stddev, t.src)
	if err != nil {
		return nil, err
	}
	return dist.Sample(), nil
}

// matrix wraps data as a (batch, cols) tensor
func (t *TransitionModel) matrix(data []float64, cols int) *tensor.Dense {
	return tensor.New(
		tensor.WithBacking(data),
		tensor.WithShape(t.batchSize, cols),
	)
}

// copyFloats returns a copy of x
func copyFloats(x []float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	return out
}
