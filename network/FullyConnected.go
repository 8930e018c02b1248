package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Layer implements a single layer of a neural network
type Layer interface {
	Fwd(*G.Node) (*G.Node, error)
	CloneTo(g *G.ExprGraph) Layer
	Weights() *G.Node
	Bias() *G.Node
	Activation() *Activation
}

// FCLayer implements a fully connected layer of a feed forward neural
// network
type FCLayer struct {
	weights *G.Node
	bias    *G.Node
	act     *Activation
}

// NewFCLayer returns a new fully connected layer on graph g mapping
// features inputs to outputs outputs. Weights are initialized with
// init; the bias, if used, starts at zero. The name parameter is used
// to prefix the names of the layer's nodes in the graph, which must be
// unique per graph.
func NewFCLayer(g *G.ExprGraph, features, outputs int, bias bool,
	act *Activation, init G.InitWFn, name string) *FCLayer {
	weights := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(features, outputs),
		G.WithName(fmt.Sprintf("%vWeights", name)),
		G.WithInit(init),
	)

	var biasNode *G.Node
	if bias {
		biasNode = G.NewMatrix(
			g,
			tensor.Float64,
			G.WithShape(1, outputs),
			G.WithName(fmt.Sprintf("%vBias", name)),
			G.WithInit(G.Zeroes()),
		)
	}

	return &FCLayer{
		weights: weights,
		bias:    biasNode,
		act:     act,
	}
}

// Fwd adds the forward pass of the FCLayer to the computational graph
func (f *FCLayer) Fwd(x *G.Node) (*G.Node, error) {
	if f.Weights() != nil {
		x = G.Must(G.Mul(x, f.Weights()))
	}
	if f.Bias() != nil {
		// Broadcast the bias weights to all samples along the batch
		// dimension
		x = G.Must(G.BroadcastAdd(x, f.Bias(), nil, []byte{0}))
	}
	if f.Activation() == nil || f.Activation().IsNil() ||
		f.Activation().IsIdentity() {
		return x, nil
	}
	return f.Activation().fwd(x)
}

// CloneTo clones an FCLayer to a new computational graph
func (f *FCLayer) CloneTo(g *G.ExprGraph) Layer {
	var newWeights, newBias *G.Node

	if f.Weights() != nil {
		newWeights = f.Weights().CloneTo(g)
	}
	if f.Bias() != nil {
		newBias = f.Bias().CloneTo(g)
	}

	return &FCLayer{
		weights: newWeights,
		bias:    newBias,
		act:     f.act,
	}
}

// Activation returns the activation of the layer
func (f *FCLayer) Activation() *Activation {
	return f.act
}

// Bias returns the bias node of the layer
func (f *FCLayer) Bias() *G.Node {
	return f.bias
}

// Weights returns the weight node of the layer
func (f *FCLayer) Weights() *G.Node {
	return f.weights
}

// addFCLayers creates the fully connected layers described by
// hiddenSizes, biases, and activations on graph g. For index i,
// hiddenSizes[i] is the number of units in layer i, biases[i]
// determines whether layer i has a bias unit, and activations[i] is
// the activation function of layer i. The features parameter is the
// number of inputs to the first layer. Layer node names are prefixed
// with prefix and suffixed with suffix.
func addFCLayers(g *G.ExprGraph, hiddenSizes []int, biases []bool,
	activations []*Activation, init G.InitWFn, features int,
	prefix, suffix string) []Layer {
	layers := make([]Layer, len(hiddenSizes))

	inputs := features
	for i := range hiddenSizes {
		name := fmt.Sprintf("%vL%d%v", prefix, i, suffix)
		layers[i] = NewFCLayer(g, inputs, hiddenSizes[i], biases[i],
			activations[i], init, name)
		inputs = hiddenSizes[i]
	}

	return layers
}
