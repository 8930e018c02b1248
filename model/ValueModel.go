package model

import (
	"fmt"

	"github.com/samuelfneumann/godreamer/network"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// ValueModel predicts the scalar value of a (belief, state) pair:
// three activated hidden layers followed by a linear scalar output,
// with the trailing singleton axis squeezed away.
type ValueModel struct {
	*latentHead
}

// NewValueModel returns a new ValueModel for a fixed batch size
func NewValueModel(beliefSize, stateSize, hiddenSize, batch int,
	act *network.Activation, init G.InitWFn) (*ValueModel, error) {
	head, err := newLatentHead(beliefSize, stateSize, batch, 1,
		[]int{hiddenSize, hiddenSize, hiddenSize}, act, init)
	if err != nil {
		return nil, fmt.Errorf("newvaluemodel: %v", err)
	}
	return &ValueModel{latentHead: head}, nil
}

// Forward predicts the values of a batch of (belief, state) pairs.
// The result is a vector of shape (batch,).
func (v *ValueModel) Forward(belief, state *tensor.Dense) (*tensor.Dense,
	error) {
	out, err := v.forward(belief, state)
	if err != nil {
		return nil, err
	}
	return tensor.New(
		tensor.WithBacking(out),
		tensor.WithShape(v.batchSize),
	), nil
}
