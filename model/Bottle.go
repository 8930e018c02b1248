package model

import (
	"fmt"

	"gorgonia.org/tensor"
)

// Bottle applies a per-timestep head across a full latent sequence.
// The decoder heads map rank-2 (batch, feature) inputs, while the
// TransitionModel produces rank-3 (T, batch, feature) sequences;
// Bottle flattens the time and batch axes into a single batch of size
// T*batch, applies f once, and restores the time axis on the result.
//
// The head called by f must have been constructed with batch size
// T*batch. Outputs of shape (T*batch, k) are returned as (T, batch, k)
// and vector outputs of shape (T*batch,) as (T, batch).
func Bottle(f func(belief, state *tensor.Dense) (*tensor.Dense, error),
	beliefs, states *tensor.Dense) (*tensor.Dense, error) {
	beliefShape, stateShape := beliefs.Shape(), states.Shape()
	if len(beliefShape) != 3 || len(stateShape) != 3 {
		return nil, fmt.Errorf("bottle: inputs must be sequences of "+
			"matrices \n\thave(%v and %v)", beliefShape, stateShape)
	}
	if beliefShape[0] != stateShape[0] || beliefShape[1] != stateShape[1] {
		return nil, fmt.Errorf("bottle: inconsistent sequence and batch "+
			"dimensions \n\twant(%v, %v) \n\thave(%v, %v)", beliefShape[0],
			beliefShape[1], stateShape[0], stateShape[1])
	}

	T, batch := beliefShape[0], beliefShape[1]
	flatBeliefs := tensor.New(
		tensor.WithBacking(beliefs.Data().([]float64)),
		tensor.WithShape(T*batch, beliefShape[2]),
	)
	flatStates := tensor.New(
		tensor.WithBacking(states.Data().([]float64)),
		tensor.WithShape(T*batch, stateShape[2]),
	)

	out, err := f(flatBeliefs, flatStates)
	if err != nil {
		return nil, fmt.Errorf("bottle: %v", err)
	}

	outShape := out.Shape()
	switch len(outShape) {
	case 1:
		if outShape[0] != T*batch {
			return nil, fmt.Errorf("bottle: invalid output length"+
				"\n\twant(%v) \n\thave(%v)", T*batch, outShape[0])
		}
		return tensor.New(
			tensor.WithBacking(out.Data().([]float64)),
			tensor.WithShape(T, batch),
		), nil
	case 2:
		if outShape[0] != T*batch {
			return nil, fmt.Errorf("bottle: invalid output batch size"+
				"\n\twant(%v) \n\thave(%v)", T*batch, outShape[0])
		}
		return tensor.New(
			tensor.WithBacking(out.Data().([]float64)),
			tensor.WithShape(T, batch, outShape[1]),
		), nil
	}
	return nil, fmt.Errorf("bottle: invalid output shape \n\thave(%v)",
		outShape)
}
