package model

import (
	"math"
	"testing"

	"github.com/samuelfneumann/godreamer/network"
	"github.com/samuelfneumann/godreamer/utils/floatutils"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func randSeq(steps, batch, features int, seed uint64) *tensor.Dense {
	dist := distuv.Normal{Mu: 0.0, Sigma: 1.0, Src: rand.NewSource(seed)}
	data := make([]float64, steps*batch*features)
	for i := range data {
		data[i] = dist.Rand()
	}
	return tensor.New(
		tensor.WithBacking(data),
		tensor.WithShape(steps, batch, features),
	)
}

func zeroMatrix(rows, cols int) *tensor.Dense {
	return tensor.New(
		tensor.WithBacking(make([]float64, rows*cols)),
		tensor.WithShape(rows, cols),
	)
}

func TestTransitionModelShapes(t *testing.T) {
	beliefSize, stateSize, actionSize := 20, 6, 3
	hiddenSize, embeddingSize := 16, 8
	batch, L := 5, 7
	minStdDev := 0.1

	model, err := NewTransitionModel(beliefSize, stateSize, actionSize,
		hiddenSize, embeddingSize, batch, network.ReLU(), minStdDev,
		G.GlorotN(1.0), 11)
	if err != nil {
		t.Fatal(err)
	}

	actions := randSeq(L, batch, actionSize, 1)
	observations := randSeq(L, batch, embeddingSize, 2)
	maskData := make([]float64, (L-1)*batch)
	for i := range maskData {
		maskData[i] = 1.0
	}
	nonterminals := tensor.New(
		tensor.WithBacking(maskData),
		tensor.WithShape(L-1, batch, 1),
	)

	rollout, err := model.Forward(zeroMatrix(batch, beliefSize),
		zeroMatrix(batch, stateSize), actions, observations, nonterminals)
	if err != nil {
		t.Fatal(err)
	}

	wantBelief := tensor.Shape{L, batch, beliefSize}
	if !rollout.Beliefs.Shape().Eq(wantBelief) {
		t.Errorf("beliefs shape: want(%v) have(%v)", wantBelief,
			rollout.Beliefs.Shape())
	}

	wantState := tensor.Shape{L, batch, stateSize}
	states := map[string]*tensor.Dense{
		"prior states":      rollout.PriorStates,
		"prior means":       rollout.PriorMeans,
		"prior stddevs":     rollout.PriorStdDevs,
		"posterior states":  rollout.PosteriorStates,
		"posterior means":   rollout.PosteriorMeans,
		"posterior stddevs": rollout.PosteriorStdDevs,
	}
	for name, seq := range states {
		if seq == nil {
			t.Errorf("%v should not be nil", name)
			continue
		}
		if !seq.Shape().Eq(wantState) {
			t.Errorf("%v shape: want(%v) have(%v)", name, wantState,
				seq.Shape())
		}
	}

	// Standard deviations are lower bounded through the softplus floor
	for _, seq := range []*tensor.Dense{rollout.PriorStdDevs,
		rollout.PosteriorStdDevs} {
		for _, sigma := range seq.Data().([]float64) {
			if sigma < minStdDev {
				t.Errorf("stddev below floor: want(>= %v) have(%v)",
					minStdDev, sigma)
			}
		}
	}
}

func TestTransitionModelPriorOnly(t *testing.T) {
	batch, L := 3, 4
	model, err := NewTransitionModel(10, 4, 2, 8, 6, batch,
		network.ReLU(), 0.1, G.GlorotN(1.0), 17)
	if err != nil {
		t.Fatal(err)
	}

	rollout, err := model.Forward(zeroMatrix(batch, 10),
		zeroMatrix(batch, 4), randSeq(L, batch, 2, 3), nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	if rollout.PosteriorStates != nil || rollout.PosteriorMeans != nil ||
		rollout.PosteriorStdDevs != nil {
		t.Error("posterior sequences should be nil without observations")
	}
	if rollout.Beliefs == nil || rollout.PriorStates == nil {
		t.Error("prior sequences should always be computed")
	}
}

// TestTransitionModelMasking checks the full recursion by hand at size
// one: unit weights, zero biases, and a mirrored noise stream make
// every intermediate quantity computable in plain float arithmetic.
func TestTransitionModelMasking(t *testing.T) {
	var seed uint64 = 4242
	minStdDev := 0.1
	L := 3

	model, err := NewTransitionModel(1, 1, 1, 1, 1, 1, network.TanH(),
		minStdDev, G.Ones(), seed)
	if err != nil {
		t.Fatal(err)
	}

	actionData := []float64{0.3, -0.2, 0.5}
	actions := tensor.New(
		tensor.WithBacking(actionData),
		tensor.WithShape(L, 1, 1),
	)
	nonterminals := tensor.New(
		tensor.WithBacking([]float64{1.0, 0.0}),
		tensor.WithShape(L-1, 1, 1),
	)

	rollout, err := model.Forward(zeroMatrix(1, 1), zeroMatrix(1, 1),
		actions, nil, nonterminals)
	if err != nil {
		t.Fatal(err)
	}

	// Mirror the model's noise stream: one standard normal draw per
	// step for the prior state
	noise := distuv.Normal{Mu: 0.0, Sigma: 1.0, Src: rand.NewSource(seed)}

	belief, state := 0.0, 0.0
	mask := []float64{1.0, 1.0, 0.0}
	haveBeliefs := rollout.Beliefs.Data().([]float64)
	haveStates := rollout.PriorStates.Data().([]float64)
	for step := 0; step < L; step++ {
		state *= mask[step]

		embed := math.Tanh(state + actionData[step])
		r := floatutils.Sigmoid(embed + belief)
		z := floatutils.Sigmoid(embed + belief)
		n := math.Tanh(embed + r*belief)
		belief = z*belief + (1-z)*n

		mean := math.Tanh(belief)
		std := floatutils.Softplus(mean) + minStdDev
		state = mean + std*noise.Rand()

		if math.Abs(haveBeliefs[step]-belief) > 1e-10 {
			t.Errorf("belief %v: want(%v) have(%v)", step, belief,
				haveBeliefs[step])
		}
		if math.Abs(haveStates[step]-state) > 1e-10 {
			t.Errorf("prior state %v: want(%v) have(%v)", step, state,
				haveStates[step])
		}
	}
}

// TestTransitionModelPosterior checks, again at size one, that the
// posterior conditions on the observation embedding, that noise is
// drawn prior first and posterior second within a step, and that the
// posterior state drives the recurrence when observations are given.
func TestTransitionModelPosterior(t *testing.T) {
	var seed uint64 = 731
	minStdDev := 0.1
	L := 2

	model, err := NewTransitionModel(1, 1, 1, 1, 1, 1, network.TanH(),
		minStdDev, G.Ones(), seed)
	if err != nil {
		t.Fatal(err)
	}

	actionData := []float64{0.4, -0.1}
	obsData := []float64{0.8, -0.3}
	actions := tensor.New(
		tensor.WithBacking(actionData),
		tensor.WithShape(L, 1, 1),
	)
	observations := tensor.New(
		tensor.WithBacking(obsData),
		tensor.WithShape(L, 1, 1),
	)

	rollout, err := model.Forward(zeroMatrix(1, 1), zeroMatrix(1, 1),
		actions, observations, nil)
	if err != nil {
		t.Fatal(err)
	}

	noise := distuv.Normal{Mu: 0.0, Sigma: 1.0, Src: rand.NewSource(seed)}

	belief, state := 0.0, 0.0
	havePostMeans := rollout.PosteriorMeans.Data().([]float64)
	havePostStates := rollout.PosteriorStates.Data().([]float64)
	havePriorStates := rollout.PriorStates.Data().([]float64)
	for step := 0; step < L; step++ {
		embed := math.Tanh(state + actionData[step])
		r := floatutils.Sigmoid(embed + belief)
		z := floatutils.Sigmoid(embed + belief)
		n := math.Tanh(embed + r*belief)
		belief = z*belief + (1-z)*n

		priorMean := math.Tanh(belief)
		priorStd := floatutils.Softplus(priorMean) + minStdDev
		priorState := priorMean + priorStd*noise.Rand()

		postMean := math.Tanh(belief + obsData[step])
		postStd := floatutils.Softplus(postMean) + minStdDev
		state = postMean + postStd*noise.Rand()

		if math.Abs(havePriorStates[step]-priorState) > 1e-10 {
			t.Errorf("prior state %v: want(%v) have(%v)", step,
				priorState, havePriorStates[step])
		}
		if math.Abs(havePostMeans[step]-postMean) > 1e-10 {
			t.Errorf("posterior mean %v: want(%v) have(%v)", step,
				postMean, havePostMeans[step])
		}
		if math.Abs(havePostStates[step]-state) > 1e-10 {
			t.Errorf("posterior state %v: want(%v) have(%v)", step, state,
				havePostStates[step])
		}
	}
}

func TestTransitionModelSequencePrefix(t *testing.T) {
	// Rolling out a prefix of a longer action sequence must produce
	// the prefix of the longer rollout
	var seed uint64 = 88
	batch := 2

	newModel := func() *TransitionModel {
		model, err := NewTransitionModel(3, 2, 1, 3, 2, batch,
			network.TanH(), 0.1, G.Ones(), seed)
		if err != nil {
			t.Fatal(err)
		}
		return model
	}

	actions := randSeq(7, batch, 1, 5)
	observations := randSeq(7, batch, 2, 6)

	long, err := newModel().Forward(zeroMatrix(batch, 3),
		zeroMatrix(batch, 2), actions, observations, nil)
	if err != nil {
		t.Fatal(err)
	}

	prefixActions := tensor.New(
		tensor.WithBacking(actions.Data().([]float64)[:4*batch*1]),
		tensor.WithShape(4, batch, 1),
	)
	prefixObs := tensor.New(
		tensor.WithBacking(observations.Data().([]float64)[:4*batch*2]),
		tensor.WithShape(4, batch, 2),
	)
	short, err := newModel().Forward(zeroMatrix(batch, 3),
		zeroMatrix(batch, 2), prefixActions, prefixObs, nil)
	if err != nil {
		t.Fatal(err)
	}

	pairs := map[string][2]*tensor.Dense{
		"beliefs":          {long.Beliefs, short.Beliefs},
		"prior states":     {long.PriorStates, short.PriorStates},
		"posterior states": {long.PosteriorStates, short.PosteriorStates},
	}
	for name, pair := range pairs {
		longData := pair[0].Data().([]float64)
		shortData := pair[1].Data().([]float64)
		for i := range shortData {
			if longData[i] != shortData[i] {
				t.Errorf("%v diverge at %v: %v != %v", name, i,
					longData[i], shortData[i])
			}
		}
	}
}

func TestTransitionModelDegenerateSizes(t *testing.T) {
	// Singleton batch and state dimensions must not collapse the
	// in-graph moment matrices
	sizes := []struct {
		batch     int
		stateSize int
	}{
		{1, 1},
		{2, 1},
		{1, 2},
	}

	for _, size := range sizes {
		model, err := NewTransitionModel(3, size.stateSize, 2, 3, 2,
			size.batch, network.ReLU(), 0.1, G.GlorotN(1.0), 19)
		if err != nil {
			t.Fatalf("batch %v state %v: %v", size.batch, size.stateSize,
				err)
		}

		rollout, err := model.Forward(zeroMatrix(size.batch, 3),
			zeroMatrix(size.batch, size.stateSize),
			randSeq(2, size.batch, 2, 1), randSeq(2, size.batch, 2, 2),
			nil)
		if err != nil {
			t.Fatalf("batch %v state %v: %v", size.batch, size.stateSize,
				err)
		}

		want := tensor.Shape{2, size.batch, size.stateSize}
		if !rollout.PriorStates.Shape().Eq(want) {
			t.Errorf("batch %v state %v: prior states shape: want(%v) "+
				"have(%v)", size.batch, size.stateSize, want,
				rollout.PriorStates.Shape())
		}
		if !rollout.PosteriorStates.Shape().Eq(want) {
			t.Errorf("batch %v state %v: posterior states shape: "+
				"want(%v) have(%v)", size.batch, size.stateSize, want,
				rollout.PosteriorStates.Shape())
		}
	}
}

func TestTransitionModelValidation(t *testing.T) {
	batch := 2
	model, err := NewTransitionModel(4, 3, 2, 4, 3, batch,
		network.ReLU(), 0.1, G.GlorotN(1.0), 1)
	if err != nil {
		t.Fatal(err)
	}

	belief := zeroMatrix(batch, 4)
	state := zeroMatrix(batch, 3)
	actions := randSeq(3, batch, 2, 1)

	if _, err := model.Forward(zeroMatrix(batch, 5), state, actions,
		nil, nil); err == nil {
		t.Error("forward: should not accept an invalid belief shape")
	}
	if _, err := model.Forward(belief, zeroMatrix(batch, 2), actions,
		nil, nil); err == nil {
		t.Error("forward: should not accept an invalid state shape")
	}
	if _, err := model.Forward(belief, state, zeroMatrix(batch, 2),
		nil, nil); err == nil {
		t.Error("forward: should not accept rank-2 action sequences")
	}
	if _, err := model.Forward(belief, state, actions,
		randSeq(2, batch, 3, 1), nil); err == nil {
		t.Error("forward: should not accept misaligned observations")
	}

	badMask := tensor.New(
		tensor.WithBacking(make([]float64, 3*batch)),
		tensor.WithShape(3, batch, 1),
	)
	if _, err := model.Forward(belief, state, actions, nil,
		badMask); err == nil {
		t.Error("forward: should not accept an invalid mask shape")
	}

	oneStep := randSeq(1, batch, 2, 1)
	oneStepMask := tensor.New(
		tensor.WithBacking(make([]float64, batch)),
		tensor.WithShape(1, batch, 1),
	)
	if _, err := model.Forward(belief, state, oneStep, nil,
		oneStepMask); err == nil {
		t.Error("forward: should not accept a mask for a single step")
	}

	if _, err := NewTransitionModel(4, 3, 2, 4, 3, batch,
		network.ReLU(), 0.0, G.GlorotN(1.0), 1); err == nil {
		t.Error("newtransitionmodel: should not accept a non-positive " +
			"stddev floor")
	}
}

func TestTransitionModelFullScale(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping full-scale rollout in short mode")
	}

	beliefSize, stateSize, actionSize := 200, 30, 6
	batch, L := 50, 49

	model, err := NewTransitionModel(beliefSize, stateSize, actionSize,
		200, 200, batch, network.ReLU(), 0.1, G.GlorotN(1.0), 101)
	if err != nil {
		t.Fatal(err)
	}

	actions := randSeq(L, batch, actionSize, 7)
	observations := randSeq(L, batch, 200, 8)
	maskData := make([]float64, (L-1)*batch)
	for i := range maskData {
		maskData[i] = 1.0
	}
	nonterminals := tensor.New(
		tensor.WithBacking(maskData),
		tensor.WithShape(L-1, batch, 1),
	)

	rollout, err := model.Forward(zeroMatrix(batch, beliefSize),
		zeroMatrix(batch, stateSize), actions, observations, nonterminals)
	if err != nil {
		t.Fatal(err)
	}

	if !rollout.Beliefs.Shape().Eq(tensor.Shape{L, batch, beliefSize}) {
		t.Errorf("beliefs shape: have(%v)", rollout.Beliefs.Shape())
	}
	if !rollout.PosteriorStates.Shape().Eq(
		tensor.Shape{L, batch, stateSize}) {
		t.Errorf("posterior states shape: have(%v)",
			rollout.PosteriorStates.Shape())
	}

	for _, x := range rollout.Beliefs.Data().([]float64) {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			t.Fatal("beliefs should be finite")
		}
	}
}
