package network

import (
	"fmt"

	"github.com/samuelfneumann/godreamer/utils/op"
	G "gorgonia.org/gorgonia"
)

type activationType string

const (
	relu     activationType = "relu"
	elu      activationType = "elu"
	identity activationType = "identity"
	tanh     activationType = "tanh"
	sigmoid  activationType = "sigmoid"
	nil_     activationType = "nil"
)

// Activation represents an activation function type
type Activation struct {
	activationType
	f func(x *G.Node) (*G.Node, error)
}

// fwd performs the forward pass of an Activation
func (a *Activation) fwd(x *G.Node) (*G.Node, error) {
	return a.f(x)
}

// String implements the Stringer interface
func (a *Activation) String() string {
	return string(a.activationType)
}

// IsIdentity returns whether or not the Activation is the identity
// function.
func (a *Activation) IsIdentity() bool {
	return a.activationType == identity
}

// IsNil returns whether an activation is nil
func (a *Activation) IsNil() bool {
	return a.activationType == nil_
}

// GobEncode implements the GobEncoder interface
func (a *Activation) GobEncode() ([]byte, error) {
	return []byte(a.activationType), nil
}

// GobDecode implements the GobDecoder interface
func (a *Activation) GobDecode(encoded []byte) error {
	decoded, err := FromString(string(encoded))
	if err != nil {
		return fmt.Errorf("gobdecode: illegal Activation type")
	}
	*a = *decoded
	return nil
}

// FromString returns the Activation named by s. Legal names are
// "relu", "elu", "tanh", "sigmoid", and "identity".
func FromString(s string) (*Activation, error) {
	switch activationType(s) {
	case relu:
		return ReLU(), nil
	case elu:
		return ELU(), nil
	case identity:
		return Identity(), nil
	case tanh:
		return TanH(), nil
	case sigmoid:
		return Sigmoid(), nil
	}
	return nil, fmt.Errorf("fromstring: no such activation: %v", s)
}

// Nil returns a nil *Activation
func Nil() *Activation {
	return &Activation{
		activationType: nil_,
		f:              nil,
	}
}

// Identity returns an identity *Activation
func Identity() *Activation {
	return &Activation{
		activationType: identity,
		f: func(x *G.Node) (*G.Node, error) {
			return x, nil
		},
	}
}

// ReLU returns a ReLU *Activation
func ReLU() *Activation {
	return &Activation{
		activationType: relu,
		f:              G.Rectify,
	}
}

// TanH returns a tanh *Activation
func TanH() *Activation {
	return &Activation{
		activationType: tanh,
		f:              G.Tanh,
	}
}

// Sigmoid returns a logistic sigmoid *Activation
func Sigmoid() *Activation {
	return &Activation{
		activationType: sigmoid,
		f:              G.Sigmoid,
	}
}

// ELU returns an exponential linear unit *Activation. Gorgonia has no
// ELU operator, so the activation is composed as
// relu(x) + exp(min(x, 0)) - 1, which equals x for x > 0 and
// exp(x) - 1 otherwise. The minimum is taken as min(x, 0) = -relu(-x).
func ELU() *Activation {
	return &Activation{
		activationType: elu,
		f: func(x *G.Node) (*G.Node, error) {
			pos, err := G.Rectify(x)
			if err != nil {
				return nil, err
			}

			clipped, err := op.NegRectifyNeg(x)
			if err != nil {
				return nil, err
			}
			exp, err := G.Exp(clipped)
			if err != nil {
				return nil, err
			}

			one := G.NewConstant(1.0)
			neg, err := G.Sub(exp, one)
			if err != nil {
				return nil, err
			}

			return G.Add(pos, neg)
		},
	}
}
