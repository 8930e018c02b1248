package main

import (
	"fmt"
	"log"

	"github.com/samuelfneumann/godreamer/model"
	"github.com/samuelfneumann/godreamer/utils/progressbar"
	"github.com/samuelfneumann/godreamer/utils/tensorutils"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	"gorgonia.org/tensor"
)

func main() {
	var seed uint64 = 192382

	observationSize := 8
	actionSize := 2
	batch := 4
	episodeLength := 10
	horizon := 15

	config, err := model.NewConfig(observationSize, actionSize, batch, seed)
	if err != nil {
		log.Fatal(err)
	}
	config.BeliefSize = 64
	config.StateSize = 16
	config.HiddenSize = 64
	config.EmbeddingSize = 32

	dreamer, err := model.New(config)
	if err != nil {
		log.Fatal(err)
	}

	// Generate a synthetic episode with a single episode boundary
	// partway through
	dist := distuv.Normal{Mu: 0.0, Sigma: 1.0, Src: rand.NewSource(seed)}
	observations := randTensor(episodeLength, batch, observationSize, dist)
	actions := randTensor(episodeLength, batch, actionSize, dist)

	maskData := make([]float64, (episodeLength-1)*batch)
	for i := range maskData {
		maskData[i] = 1.0
	}
	for b := 0; b < batch; b++ {
		maskData[(episodeLength/2)*batch+b] = 0.0
	}
	nonterminals := tensor.New(
		tensor.WithBacking(maskData),
		tensor.WithShape(episodeLength-1, batch, 1),
	)

	// Encode the observations timestep by timestep
	embeddings := make([]*tensor.Dense, episodeLength)
	for step := 0; step < episodeLength; step++ {
		embeddings[step], err = dreamer.Encoder.Forward(
			sliceStep(observations, step, batch, observationSize))
		if err != nil {
			log.Fatal(err)
		}
	}
	embedded, err := tensorutils.Stack(embeddings)
	if err != nil {
		log.Fatal(err)
	}

	// Filter the episode through the transition model, conditioning the
	// recurrence on the observation embeddings
	belief := zeros(batch, config.BeliefSize)
	state := zeros(batch, config.StateSize)

	rollout, err := dreamer.Transition.Forward(belief, state, actions,
		embedded, nonterminals)
	if err != nil {
		log.Fatal(err)
	}

	belief = sliceStep(rollout.Beliefs, episodeLength-1, batch,
		config.BeliefSize)
	state = sliceStep(rollout.PosteriorStates, episodeLength-1, batch,
		config.StateSize)

	reconstruction, err := dreamer.Observation.Forward(belief, state)
	if err != nil {
		log.Fatal(err)
	}
	reward, err := dreamer.Reward.Forward(belief, state)
	if err != nil {
		log.Fatal(err)
	}
	pcont, err := dreamer.PCont.Forward(belief, state)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("After filtering the episode:")
	fmt.Printf("\treconstructed observation shape: %v\n",
		reconstruction.Shape())
	fmt.Printf("\tpredicted reward: %v\n", reward.Data())
	fmt.Printf("\tpredicted continuation: %v\n", pcont.Data())

	// Imagine forward from the filtered latent state, selecting actions
	// with the actor and following the prior dynamics
	pbar := progressbar.NewManualProgressBar(40, horizon)
	imaginedReward := 0.0
	for step := 0; step < horizon; step++ {
		action, _, err := dreamer.Actor.Forward(belief, state, false, false)
		if err != nil {
			log.Fatal(err)
		}

		actionSeq := tensor.New(
			tensor.WithBacking(action.Data().([]float64)),
			tensor.WithShape(1, batch, actionSize),
		)
		imagined, err := dreamer.Transition.Forward(belief, state,
			actionSeq, nil, nil)
		if err != nil {
			log.Fatal(err)
		}

		belief = sliceStep(imagined.Beliefs, 0, batch, config.BeliefSize)
		state = sliceStep(imagined.PriorStates, 0, batch, config.StateSize)

		reward, err = dreamer.Reward.Forward(belief, state)
		if err != nil {
			log.Fatal(err)
		}
		for _, r := range reward.Data().([]float64) {
			imaginedReward += r / float64(batch)
		}

		pbar.Increment()
		pbar.Display()
	}
	fmt.Println()

	value, err := dreamer.Value.Forward(belief, state)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("After imagining %v steps:\n", horizon)
	fmt.Printf("\ttotal imagined reward: %v\n", imaginedReward)
	fmt.Printf("\tpredicted value: %v\n", value.Data())
}

// randTensor returns a (steps, batch, features) tensor with entries
// drawn from dist
func randTensor(steps, batch, features int,
	dist distuv.Normal) *tensor.Dense {
	data := make([]float64, steps*batch*features)
	for i := range data {
		data[i] = dist.Rand()
	}
	return tensor.New(
		tensor.WithBacking(data),
		tensor.WithShape(steps, batch, features),
	)
}

// sliceStep returns step t of a (steps, batch, features) sequence as a
// (batch, features) matrix
func sliceStep(seq *tensor.Dense, t, batch, features int) *tensor.Dense {
	data := seq.Data().([]float64)
	out := make([]float64, batch*features)
	copy(out, data[t*batch*features:(t+1)*batch*features])
	return tensor.New(
		tensor.WithBacking(out),
		tensor.WithShape(batch, features),
	)
}

// zeros returns a zero-filled (rows, cols) matrix
func zeros(rows, cols int) *tensor.Dense {
	return tensor.New(
		tensor.WithBacking(make([]float64, rows*cols)),
		tensor.WithShape(rows, cols),
	)
}
