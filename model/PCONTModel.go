package model

import (
	"fmt"

	"github.com/samuelfneumann/godreamer/network"
	"github.com/samuelfneumann/godreamer/utils/floatutils"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// PCONTModel predicts the probability that an episode continues from a
// (belief, state) pair: three activated hidden layers, a linear scalar
// output squeezed of its trailing singleton axis, and a logistic
// sigmoid mapping the result into [0, 1].
type PCONTModel struct {
	*latentHead
}

// NewPCONTModel returns a new PCONTModel for a fixed batch size
func NewPCONTModel(beliefSize, stateSize, hiddenSize, batch int,
	act *network.Activation, init G.InitWFn) (*PCONTModel, error) {
	head, err := newLatentHead(beliefSize, stateSize, batch, 1,
		[]int{hiddenSize, hiddenSize, hiddenSize}, act, init)
	if err != nil {
		return nil, fmt.Errorf("newpcontmodel: %v", err)
	}
	return &PCONTModel{latentHead: head}, nil
}

// Forward predicts the continuation probabilities of a batch of
// (belief, state) pairs. The result is a vector of shape (batch,) with
// entries in [0, 1].
func (p *PCONTModel) Forward(belief, state *tensor.Dense) (*tensor.Dense,
	error) {
	out, err := p.forward(belief, state)
	if err != nil {
		return nil, err
	}

	for i := range out {
		out[i] = floatutils.Sigmoid(out[i])
	}

	return tensor.New(
		tensor.WithBacking(out),
		tensor.WithShape(p.batchSize),
	), nil
}
