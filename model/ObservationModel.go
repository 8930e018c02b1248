package model

import (
	"fmt"

	"github.com/samuelfneumann/godreamer/network"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// ObservationModel reconstructs observation vectors from (belief,
// state) pairs: two activated layers of the embedding size followed by
// a linear output layer.
type ObservationModel struct {
	*latentHead
	observationSize int
}

// NewObservationModel returns a new ObservationModel for a fixed batch
// size.
func NewObservationModel(observationSize, beliefSize, stateSize,
	embeddingSize, batch int, act *network.Activation,
	init G.InitWFn) (*ObservationModel, error) {
	head, err := newLatentHead(beliefSize, stateSize, batch,
		observationSize, []int{embeddingSize, embeddingSize}, act, init)
	if err != nil {
		return nil, fmt.Errorf("newobservationmodel: %v", err)
	}
	return &ObservationModel{
		latentHead:      head,
		observationSize: observationSize,
	}, nil
}

// Forward reconstructs the observations of a batch of (belief, state)
// pairs. The result has shape (batch, observationSize).
func (o *ObservationModel) Forward(belief,
	state *tensor.Dense) (*tensor.Dense, error) {
	out, err := o.forward(belief, state)
	if err != nil {
		return nil, err
	}
	return tensor.New(
		tensor.WithBacking(out),
		tensor.WithShape(o.batchSize, o.observationSize),
	), nil
}
