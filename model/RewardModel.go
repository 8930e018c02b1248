package model

import (
	"fmt"

	"github.com/samuelfneumann/godreamer/network"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// RewardModel predicts the scalar reward of a (belief, state) pair:
// two activated hidden layers followed by a linear scalar output, with
// the trailing singleton axis squeezed away.
type RewardModel struct {
	*latentHead
}

// NewRewardModel returns a new RewardModel for a fixed batch size
func NewRewardModel(beliefSize, stateSize, hiddenSize, batch int,
	act *network.Activation, init G.InitWFn) (*RewardModel, error) {
	head, err := newLatentHead(beliefSize, stateSize, batch, 1,
		[]int{hiddenSize, hiddenSize}, act, init)
	if err != nil {
		return nil, fmt.Errorf("newrewardmodel: %v", err)
	}
	return &RewardModel{latentHead: head}, nil
}

// Forward predicts the rewards of a batch of (belief, state) pairs.
// The result is a vector of shape (batch,).
func (r *RewardModel) Forward(belief, state *tensor.Dense) (*tensor.Dense,
	error) {
	out, err := r.forward(belief, state)
	if err != nil {
		return nil, err
	}
	return tensor.New(
		tensor.WithBacking(out),
		tensor.WithShape(r.batchSize),
	), nil
}
