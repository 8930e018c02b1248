package model

import (
	"fmt"

	"github.com/samuelfneumann/godreamer/distribution"
	"github.com/samuelfneumann/godreamer/initwfn"
	"github.com/samuelfneumann/godreamer/network"
)

// Config describes the architecture and hyperparameters of a complete
// latent world model. Configs are JSON-serializable so that model
// architectures can be stored in configuration files.
type Config struct {
	ObservationSize int
	ActionSize      int
	BatchSize       int

	BeliefSize    int
	StateSize     int
	HiddenSize    int
	EmbeddingSize int

	// Activation names the pointwise nonlinearity of the transition
	// model, encoder, and decoder heads; ActorActivation names the
	// actor's, which conventionally differs.
	Activation      string
	ActorActivation string

	// Transition model hyperparameters
	MinStdDev float64

	// Actor hyperparameters
	MeanScale float64
	MinStd    float64
	InitStd   float64
	Samples   int

	Init *initwfn.InitWFn
	Seed uint64
}

// NewConfig returns a Config for the given observation and action
// sizes with conventional defaults for all remaining fields.
func NewConfig(observationSize, actionSize, batch int,
	seed uint64) (Config, error) {
	init, err := initwfn.NewGlorotN(1.0)
	if err != nil {
		return Config{}, fmt.Errorf("newconfig: could not create weight"+
			" initializer: %v", err)
	}

	return Config{
		ObservationSize: observationSize,
		ActionSize:      actionSize,
		BatchSize:       batch,
		BeliefSize:      200,
		StateSize:       30,
		HiddenSize:      200,
		EmbeddingSize:   200,
		Activation:      "relu",
		ActorActivation: "elu",
		MinStdDev:       0.1,
		MeanScale:       5.0,
		MinStd:          1e-4,
		InitStd:         5.0,
		Samples:         distribution.DefaultSamples,
		Init:            init,
		Seed:            seed,
	}, nil
}

// Validate returns an error describing any illegal field of the Config
func (c Config) Validate() error {
	sizes := map[string]int{
		"observation size": c.ObservationSize,
		"action size":      c.ActionSize,
		"batch size":       c.BatchSize,
		"belief size":      c.BeliefSize,
		"state size":       c.StateSize,
		"hidden size":      c.HiddenSize,
		"embedding size":   c.EmbeddingSize,
	}
	for name, size := range sizes {
		if size < 1 {
			return fmt.Errorf("validate: %v must be positive \n\thave(%v)",
				name, size)
		}
	}

	if _, err := network.FromString(c.Activation); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	if _, err := network.FromString(c.ActorActivation); err != nil {
		return fmt.Errorf("validate: %v", err)
	}

	if c.MinStdDev <= 0 || c.MinStd <= 0 || c.InitStd <= 0 {
		return fmt.Errorf("validate: standard deviation parameters must "+
			"be strictly positive \n\thave(%v, %v, %v)", c.MinStdDev,
			c.MinStd, c.InitStd)
	}
	if c.MeanScale <= 0 {
		return fmt.Errorf("validate: mean scale must be strictly "+
			"positive \n\thave(%v)", c.MeanScale)
	}
	if c.Samples < 1 {
		return fmt.Errorf("validate: samples must be positive"+
			" \n\thave(%v)", c.Samples)
	}
	if c.Init == nil {
		return fmt.Errorf("validate: no weight initializer given")
	}

	return nil
}

// Dreamer bundles the learned components of a latent world model built
// from a single Config.
type Dreamer struct {
	Transition  *TransitionModel
	Encoder     *Encoder
	Observation *ObservationModel
	Reward      *RewardModel
	Value       *ValueModel
	PCont       *PCONTModel
	Actor       *ActorModel
}

// New creates the components described by a Config
func New(c Config) (*Dreamer, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: invalid configuration: %v", err)
	}

	act, err := network.FromString(c.Activation)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	actorAct, err := network.FromString(c.ActorActivation)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	init := c.Init.InitWFn()

	transition, err := NewTransitionModel(c.BeliefSize, c.StateSize,
		c.ActionSize, c.HiddenSize, c.EmbeddingSize, c.BatchSize, act,
		c.MinStdDev, init, c.Seed)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	encoder, err := NewEncoder(c.ObservationSize, c.EmbeddingSize,
		c.BatchSize, act, init)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	observation, err := NewObservationModel(c.ObservationSize,
		c.BeliefSize, c.StateSize, c.EmbeddingSize, c.BatchSize, act,
		init)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	reward, err := NewRewardModel(c.BeliefSize, c.StateSize,
		c.HiddenSize, c.BatchSize, act, init)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	value, err := NewValueModel(c.BeliefSize, c.StateSize, c.HiddenSize,
		c.BatchSize, act, init)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	pcont, err := NewPCONTModel(c.BeliefSize, c.StateSize, c.HiddenSize,
		c.BatchSize, act, init)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	actor, err := NewActorModel(c.ActionSize, c.BeliefSize, c.StateSize,
		c.HiddenSize, c.BatchSize, actorAct, c.MeanScale, c.MinStd,
		c.InitStd, c.Samples, init, c.Seed+1)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	return &Dreamer{
		Transition:  transition,
		Encoder:     encoder,
		Observation: observation,
		Reward:      reward,
		Value:       value,
		PCont:       pcont,
		Actor:       actor,
	}, nil
}
