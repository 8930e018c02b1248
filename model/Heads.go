package model

import (
	"fmt"

	"github.com/samuelfneumann/godreamer/network"
	"github.com/samuelfneumann/godreamer/utils/tensorutils"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// latentHead is the machinery shared by the decoder heads: a feed
// forward network over the concatenated (belief, state) pair, run by
// its own tape machine at a fixed batch size.
type latentHead struct {
	net network.NeuralNet
	vm  G.VM

	beliefSize int
	stateSize  int
	batchSize  int
	outputs    int
}

// newLatentHead returns a latentHead whose network has hidden layers
// of the given sizes, each followed by act, and a final linear layer
// of size outputs.
func newLatentHead(beliefSize, stateSize, batch, outputs int,
	hiddenSizes []int, act *network.Activation,
	init G.InitWFn) (*latentHead, error) {
	biases := make([]bool, len(hiddenSizes))
	activations := make([]*network.Activation, len(hiddenSizes))
	for i := range hiddenSizes {
		biases[i] = true
		activations[i] = act
	}

	g := G.NewGraph()
	net, err := network.NewMLP(beliefSize+stateSize, batch, outputs, g,
		hiddenSizes, biases, init, activations)
	if err != nil {
		return nil, err
	}

	return &latentHead{
		net:        net,
		vm:         G.NewTapeMachine(g),
		beliefSize: beliefSize,
		stateSize:  stateSize,
		batchSize:  batch,
		outputs:    outputs,
	}, nil
}

// forward runs the head on a (batch, beliefSize) belief and a
// (batch, stateSize) state, returning the raw (batch * outputs)
// output values.
func (l *latentHead) forward(belief, state *tensor.Dense) ([]float64,
	error) {
	wantBelief := tensor.Shape{l.batchSize, l.beliefSize}
	if !belief.Shape().Eq(wantBelief) {
		return nil, fmt.Errorf("forward: invalid belief shape"+
			"\n\twant(%v) \n\thave(%v)", wantBelief, belief.Shape())
	}
	wantState := tensor.Shape{l.batchSize, l.stateSize}
	if !state.Shape().Eq(wantState) {
		return nil, fmt.Errorf("forward: invalid state shape"+
			"\n\twant(%v) \n\thave(%v)", wantState, state.Shape())
	}

	input, err := tensorutils.ConcatFeatures(belief, state)
	if err != nil {
		return nil, fmt.Errorf("forward: %v", err)
	}
	if err := l.net.SetInput(input); err != nil {
		return nil, fmt.Errorf("forward: could not set input: %v", err)
	}

	if err := l.vm.RunAll(); err != nil {
		return nil, fmt.Errorf("forward: could not run network: %v", err)
	}
	defer l.vm.Reset()

	out := make([]float64, l.batchSize*l.outputs)
	copy(out, l.net.Output().Data().([]float64))
	return out, nil
}

// BatchSize returns the batch size the head was constructed for
func (l *latentHead) BatchSize() int {
	return l.batchSize
}

// Network returns the network of the head
func (l *latentHead) Network() network.NeuralNet {
	return l.net
}
