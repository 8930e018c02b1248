// Package tensorutils provides utilities for working with tensors
package tensorutils

import (
	"fmt"

	"gorgonia.org/tensor"
)

// Slice implements a struct that can be used for slicing tensors.
//
// Given a tensor T and a Slice S, T.Slice(..., S, ...) is equivalent to
// T[..., S.start:S.end:S.step, ...]
type Slice struct {
	start, end, step int
}

// Start returns the start index for the tensor slice
func (s Slice) Start() int {
	return s.start
}

// End returns the ending index for the tensor slice
func (s Slice) End() int {
	return s.end
}

// Step returns the step for the tensor slice
func (s Slice) Step() int {
	return s.step
}

// NewSlice returns a new Slice that can be used to slice tensors
func NewSlice(start, stop, step int) Slice {
	return Slice{start, stop, step}
}

// Stack stacks a sequence of equally shaped rank-2 tensors into a
// single rank-3 tensor along a new leading time axis. For input
// tensors of shape (batch, features), the output has shape
// (len(steps), batch, features). The backing data of each step is
// copied, so later modification of a step does not affect the stack.
func Stack(steps []*tensor.Dense) (*tensor.Dense, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("stack: no tensors to stack")
	}

	shape := steps[0].Shape()
	if len(shape) != 2 {
		return nil, fmt.Errorf("stack: tensors must be matrices "+
			"\n\twant(2 dimensions) \n\thave(%v)", len(shape))
	}

	stepSize := shape[0] * shape[1]
	backing := make([]float64, len(steps)*stepSize)
	for i, step := range steps {
		if !step.Shape().Eq(shape) {
			return nil, fmt.Errorf("stack: tensor %v has inconsistent shape"+
				"\n\twant(%v) \n\thave(%v)", i, shape, step.Shape())
		}
		copy(backing[i*stepSize:(i+1)*stepSize], step.Data().([]float64))
	}

	return tensor.New(
		tensor.WithBacking(backing),
		tensor.WithShape(len(steps), shape[0], shape[1]),
	), nil
}

// ConcatFeatures concatenates two matrices of shapes (batch, m) and
// (batch, n) along the feature dimension, returning the backing slice
// of the resulting (batch, m+n) matrix in row-major order. The result
// is suitable for setting the input of a neural network whose input
// node has m+n features.
func ConcatFeatures(a, b *tensor.Dense) ([]float64, error) {
	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		return nil, fmt.Errorf("concatfeatures: inputs must be matrices "+
			"\n\thave(%v and %v)", aShape, bShape)
	}
	if aShape[0] != bShape[0] {
		return nil, fmt.Errorf("concatfeatures: inconsistent batch sizes"+
			"\n\twant(%v) \n\thave(%v)", aShape[0], bShape[0])
	}

	batch, m, n := aShape[0], aShape[1], bShape[1]
	aData := a.Data().([]float64)
	bData := b.Data().([]float64)

	out := make([]float64, batch*(m+n))
	for i := 0; i < batch; i++ {
		copy(out[i*(m+n):i*(m+n)+m], aData[i*m:(i+1)*m])
		copy(out[i*(m+n)+m:(i+1)*(m+n)], bData[i*n:(i+1)*n])
	}
	return out, nil
}
