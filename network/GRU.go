package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// GRUCell implements a single gated recurrent unit cell on a Gorgonia
// computational graph. Given an input x of shape (batch, features) and
// a hidden state h of shape (batch, hidden), the cell computes
//
//	r  = σ(x·Wr + h·Ur + br)
//	z  = σ(x·Wz + h·Uz + bz)
//	n  = tanh(x·Wn + r ⊙ (h·Un) + bn)
//	h' = z ⊙ h + (1 - z) ⊙ n
//
// This is the single-bias GRU variant: each gate carries one bias
// vector rather than separate input and recurrent biases.
type GRUCell struct {
	wr, ur, br *G.Node
	wz, uz, bz *G.Node
	wn, un, bn *G.Node
}

// NewGRUCell returns a new GRUCell on graph g with features input
// units and hidden hidden units. Weight matrices are initialized with
// init and biases start at zero. The name parameter prefixes the names
// of the cell's nodes in the graph, which must be unique per graph.
func NewGRUCell(g *G.ExprGraph, features, hidden int, init G.InitWFn,
	name string) *GRUCell {
	weight := func(rows, cols int, suffix string) *G.Node {
		return G.NewMatrix(
			g,
			tensor.Float64,
			G.WithShape(rows, cols),
			G.WithName(fmt.Sprintf("%v%v", name, suffix)),
			G.WithInit(init),
		)
	}
	bias := func(suffix string) *G.Node {
		return G.NewMatrix(
			g,
			tensor.Float64,
			G.WithShape(1, hidden),
			G.WithName(fmt.Sprintf("%v%v", name, suffix)),
			G.WithInit(G.Zeroes()),
		)
	}

	return &GRUCell{
		wr: weight(features, hidden, "Wr"),
		ur: weight(hidden, hidden, "Ur"),
		br: bias("Br"),
		wz: weight(features, hidden, "Wz"),
		uz: weight(hidden, hidden, "Uz"),
		bz: bias("Bz"),
		wn: weight(features, hidden, "Wn"),
		un: weight(hidden, hidden, "Un"),
		bn: bias("Bn"),
	}
}

// gate computes σ(x·w + h·u + b) where σ is the given activation.
func (c *GRUCell) gate(x, h, w, u, b *G.Node,
	act func(*G.Node) (*G.Node, error)) (*G.Node, error) {
	xw, err := G.Mul(x, w)
	if err != nil {
		return nil, err
	}
	hu, err := G.Mul(h, u)
	if err != nil {
		return nil, err
	}
	sum, err := G.Add(xw, hu)
	if err != nil {
		return nil, err
	}
	sum, err = G.BroadcastAdd(sum, b, nil, []byte{0})
	if err != nil {
		return nil, err
	}
	return act(sum)
}

// Fwd adds the forward pass of the GRUCell to the computational graph,
// returning the node holding the next hidden state.
func (c *GRUCell) Fwd(x, h *G.Node) (*G.Node, error) {
	r, err := c.gate(x, h, c.wr, c.ur, c.br, G.Sigmoid)
	if err != nil {
		return nil, fmt.Errorf("fwd: could not compute reset gate: %v", err)
	}

	z, err := c.gate(x, h, c.wz, c.uz, c.bz, G.Sigmoid)
	if err != nil {
		return nil, fmt.Errorf("fwd: could not compute update gate: %v", err)
	}

	// Candidate state: tanh(x·Wn + r ⊙ (h·Un) + bn)
	xw := G.Must(G.Mul(x, c.wn))
	hu := G.Must(G.Mul(h, c.un))
	gated := G.Must(G.HadamardProd(r, hu))
	cand := G.Must(G.Add(xw, gated))
	cand = G.Must(G.BroadcastAdd(cand, c.bn, nil, []byte{0}))
	n := G.Must(G.Tanh(cand))

	// h' = z ⊙ h + (1 - z) ⊙ n
	keep := G.Must(G.HadamardProd(z, h))
	one := G.NewConstant(1.0)
	gain := G.Must(G.Sub(one, z))
	update := G.Must(G.HadamardProd(gain, n))

	return G.Add(keep, update)
}

// Learnables returns the learnable nodes of the GRUCell
func (c *GRUCell) Learnables() G.Nodes {
	return G.Nodes{
		c.wr, c.ur, c.br,
		c.wz, c.uz, c.bz,
		c.wn, c.un, c.bn,
	}
}
