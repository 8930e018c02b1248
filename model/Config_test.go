package model

import (
	"encoding/json"
	"testing"
)

func smallConfig(t *testing.T) Config {
	config, err := NewConfig(4, 2, 2, 123)
	if err != nil {
		t.Fatal(err)
	}
	config.BeliefSize = 8
	config.StateSize = 3
	config.HiddenSize = 8
	config.EmbeddingSize = 6
	return config
}

func TestConfigValidate(t *testing.T) {
	config := smallConfig(t)
	if err := config.Validate(); err != nil {
		t.Errorf("validate: legal configuration rejected: %v", err)
	}

	illegal := []func(c *Config){
		func(c *Config) { c.BatchSize = 0 },
		func(c *Config) { c.ObservationSize = -1 },
		func(c *Config) { c.Activation = "bogus" },
		func(c *Config) { c.ActorActivation = "" },
		func(c *Config) { c.MinStdDev = 0 },
		func(c *Config) { c.MeanScale = -1 },
		func(c *Config) { c.Samples = 0 },
		func(c *Config) { c.Init = nil },
	}
	for i, corrupt := range illegal {
		broken := smallConfig(t)
		corrupt(&broken)
		if err := broken.Validate(); err == nil {
			t.Errorf("validate %v: illegal configuration accepted", i)
		}
	}
}

func TestConfigJSON(t *testing.T) {
	config := smallConfig(t)

	data, err := json.Marshal(config)
	if err != nil {
		t.Fatal(err)
	}

	var decoded Config
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if err := decoded.Validate(); err != nil {
		t.Errorf("validate: decoded configuration rejected: %v", err)
	}
	if decoded.Init == nil || decoded.Init.InitWFn() == nil {
		t.Error("decoded configuration should recreate its weight " +
			"initializer")
	}
}

func TestNew(t *testing.T) {
	dreamer, err := New(smallConfig(t))
	if err != nil {
		t.Fatal(err)
	}

	if dreamer.Transition == nil || dreamer.Encoder == nil ||
		dreamer.Observation == nil || dreamer.Reward == nil ||
		dreamer.Value == nil || dreamer.PCont == nil ||
		dreamer.Actor == nil {
		t.Fatal("new: every component should be created")
	}

	if dreamer.Transition.BatchSize() != 2 {
		t.Errorf("transition batch size: want(2) have(%v)",
			dreamer.Transition.BatchSize())
	}
	if dreamer.Actor.ActionDims() != 2 {
		t.Errorf("action dims: want(2) have(%v)",
			dreamer.Actor.ActionDims())
	}

	broken := smallConfig(t)
	broken.BatchSize = 0
	if _, err := New(broken); err == nil {
		t.Error("new: illegal configuration accepted")
	}
}
