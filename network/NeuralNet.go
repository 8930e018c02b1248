package network

import (
	G "gorgonia.org/gorgonia"
)

// NeuralNet implements a feed forward neural network on a Gorgonia
// computational graph. A NeuralNet is constructed for a fixed batch
// size; SetInput sets the value of the network's input node before a
// virtual machine runs the graph, and Output holds the value of the
// network's prediction after the run.
type NeuralNet interface {
	Graph() *G.ExprGraph
	Clone() (NeuralNet, error)
	CloneWithBatch(int) (NeuralNet, error)
	BatchSize() int
	Features() int
	Outputs() int
	SetInput([]float64) error
	Set(NeuralNet) error
	Learnables() G.Nodes
	Model() []G.ValueGrad
	Output() G.Value
	Prediction() *G.Node
}
