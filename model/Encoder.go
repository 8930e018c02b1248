package model

import (
	"fmt"

	"github.com/samuelfneumann/godreamer/network"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Encoder maps raw observation vectors to fixed-size embeddings
// consumed by the posterior branch of the TransitionModel. The
// embedding is produced by a three-layer feed forward network whose
// final layer is linear, preserving the embedding's range for
// downstream use.
type Encoder struct {
	net network.NeuralNet
	vm  G.VM

	observationSize int
	embeddingSize   int
	batchSize       int
}

// NewEncoder returns a new Encoder for a fixed batch size
func NewEncoder(observationSize, embeddingSize, batch int,
	act *network.Activation, init G.InitWFn) (*Encoder, error) {
	g := G.NewGraph()
	net, err := network.NewMLP(
		observationSize,
		batch,
		embeddingSize,
		g,
		[]int{embeddingSize, embeddingSize},
		[]bool{true, true},
		init,
		[]*network.Activation{act, act},
	)
	if err != nil {
		return nil, fmt.Errorf("newencoder: could not create network: %v",
			err)
	}

	return &Encoder{
		net:             net,
		vm:              G.NewTapeMachine(g),
		observationSize: observationSize,
		embeddingSize:   embeddingSize,
		batchSize:       batch,
	}, nil
}

// Forward computes the embedding of a batch of observations of shape
// (batch, observationSize). The result has shape
// (batch, embeddingSize).
func (e *Encoder) Forward(observation *tensor.Dense) (*tensor.Dense,
	error) {
	want := tensor.Shape{e.batchSize, e.observationSize}
	if !observation.Shape().Eq(want) {
		return nil, fmt.Errorf("forward: invalid observation shape"+
			"\n\twant(%v) \n\thave(%v)", want, observation.Shape())
	}

	input := make([]float64, e.batchSize*e.observationSize)
	copy(input, observation.Data().([]float64))
	if err := e.net.SetInput(input); err != nil {
		return nil, fmt.Errorf("forward: could not set input: %v", err)
	}

	if err := e.vm.RunAll(); err != nil {
		return nil, fmt.Errorf("forward: could not run network: %v", err)
	}
	defer e.vm.Reset()

	out := make([]float64, e.batchSize*e.embeddingSize)
	copy(out, e.net.Output().Data().([]float64))

	return tensor.New(
		tensor.WithBacking(out),
		tensor.WithShape(e.batchSize, e.embeddingSize),
	), nil
}

// BatchSize returns the batch size the Encoder was constructed for
func (e *Encoder) BatchSize() int {
	return e.batchSize
}

// Network returns the network of the Encoder
func (e *Encoder) Network() network.NeuralNet {
	return e.net
}
