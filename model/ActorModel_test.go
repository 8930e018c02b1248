package model

import (
	"math"
	"testing"

	"github.com/samuelfneumann/godreamer/network"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func TestActorModelBounds(t *testing.T) {
	actionSize, batch := 3, 5
	actor, err := NewActorModel(actionSize, 6, 2, 8, batch,
		network.ELU(), 5.0, 1e-4, 1.0, 100, G.GlorotN(1.0), 12)
	if err != nil {
		t.Fatal(err)
	}

	belief := randMatrix(batch, 6, 1)
	state := randMatrix(batch, 2, 2)

	for trial := 0; trial < 20; trial++ {
		action, _, err := actor.Forward(belief, state, false, false)
		if err != nil {
			t.Fatal(err)
		}
		if !action.Shape().Eq(tensor.Shape{batch, actionSize}) {
			t.Fatalf("action shape: want(%v) have(%v)",
				tensor.Shape{batch, actionSize}, action.Shape())
		}
		for _, a := range action.Data().([]float64) {
			if a <= -1 || a >= 1 {
				t.Fatalf("action out of bounds: %v", a)
			}
		}
	}

	deterministic, _, err := actor.Forward(belief, state, true, false)
	if err != nil {
		t.Fatal(err)
	}
	for _, a := range deterministic.Data().([]float64) {
		if a <= -1 || a >= 1 {
			t.Fatalf("deterministic action out of bounds: %v", a)
		}
	}
}

func TestActorModelDeterminism(t *testing.T) {
	newActor := func() *ActorModel {
		actor, err := NewActorModel(2, 4, 2, 6, 3, network.ELU(), 5.0,
			1e-4, 1.0, 100, G.Zeroes(), 77)
		if err != nil {
			t.Fatal(err)
		}
		return actor
	}
	actor1, actor2 := newActor(), newActor()

	belief := randMatrix(3, 4, 1)
	state := randMatrix(3, 2, 2)

	for trial := 0; trial < 5; trial++ {
		action1, _, err := actor1.Forward(belief, state, false, false)
		if err != nil {
			t.Fatal(err)
		}
		action2, _, err := actor2.Forward(belief, state, false, false)
		if err != nil {
			t.Fatal(err)
		}

		data1 := action1.Data().([]float64)
		data2 := action2.Data().([]float64)
		for i := range data1 {
			if data1[i] != data2[i] {
				t.Errorf("trial %v: actions diverge at %v: %v != %v",
					trial, i, data1[i], data2[i])
			}
		}
	}
}

// TestActorModelLogProb checks the action log density against a direct
// change-of-variables computation. With zero weights the policy is a
// tanh-transformed Gaussian with mean 0 and standard deviation
// initStd + minStd, since softplus inverts the raw offset exactly.
func TestActorModelLogProb(t *testing.T) {
	actionSize, batch := 2, 1
	minStd, initStd := 1e-4, 1.0
	actor, err := NewActorModel(actionSize, 4, 2, 6, batch,
		network.ELU(), 5.0, minStd, initStd, 100, G.Zeroes(), 31)
	if err != nil {
		t.Fatal(err)
	}

	dist, err := actor.Policy(randMatrix(batch, 4, 1),
		randMatrix(batch, 2, 2))
	if err != nil {
		t.Fatal(err)
	}

	action := tensor.New(
		tensor.WithBacking([]float64{0.3, -0.6}),
		tensor.WithShape(batch, actionSize),
	)
	logProb, err := dist.LogProb(action)
	if err != nil {
		t.Fatal(err)
	}
	if !logProb.Shape().Eq(tensor.Shape{batch}) {
		t.Fatalf("logprob shape: want(%v) have(%v)", tensor.Shape{batch},
			logProb.Shape())
	}

	std := initStd + minStd
	want := 0.0
	for _, y := range action.Data().([]float64) {
		pre := math.Atanh(y)
		want += distuv.Normal{Mu: 0.0, Sigma: std}.LogProb(pre) -
			math.Log(1-y*y)
	}

	have := logProb.Data().([]float64)[0]
	if math.Abs(have-want) > 1e-9 {
		t.Errorf("logprob: want(%v) have(%v)", want, have)
	}
}

func TestActorModelForwardLogProb(t *testing.T) {
	actor, err := NewActorModel(2, 4, 2, 6, 3, network.ELU(), 5.0, 1e-4,
		1.0, 100, G.GlorotN(1.0), 41)
	if err != nil {
		t.Fatal(err)
	}
	if actor.ActionDims() != 2 {
		t.Errorf("action dims: want(2) have(%v)", actor.ActionDims())
	}

	belief := randMatrix(3, 4, 1)
	state := randMatrix(3, 2, 2)

	_, logProb, err := actor.Forward(belief, state, false, false)
	if err != nil {
		t.Fatal(err)
	}
	if logProb != nil {
		t.Error("forward: log probability should be nil when not requested")
	}

	_, logProb, err = actor.Forward(belief, state, false, true)
	if err != nil {
		t.Fatal(err)
	}
	if logProb == nil {
		t.Fatal("forward: log probability should be returned when requested")
	}
	if !logProb.Shape().Eq(tensor.Shape{3}) {
		t.Errorf("logprob shape: want(%v) have(%v)", tensor.Shape{3},
			logProb.Shape())
	}
}

func TestNewActorModelValidation(t *testing.T) {
	if _, err := NewActorModel(2, 4, 2, 6, 3, network.ELU(), 0.0, 1e-4,
		1.0, 100, G.GlorotN(1.0), 1); err == nil {
		t.Error("newactormodel: should not accept a non-positive mean scale")
	}
	if _, err := NewActorModel(2, 4, 2, 6, 3, network.ELU(), 5.0, 0.0,
		1.0, 100, G.GlorotN(1.0), 1); err == nil {
		t.Error("newactormodel: should not accept a non-positive minimum " +
			"stddev")
	}
	if _, err := NewActorModel(2, 4, 2, 6, 3, network.ELU(), 5.0, 1e-4,
		1.0, 0, G.GlorotN(1.0), 1); err == nil {
		t.Error("newactormodel: should not accept non-positive samples")
	}
}
