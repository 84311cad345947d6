package evo

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"selfrep/internal/genotype"
	"selfrep/internal/nn"
)

const (
	MutationChangeWeights    = "change_weights"
	MutationChangeBias       = "change_bias"
	MutationAddConnection    = "add_connection"
	MutationRemoveConnection = "remove_connection"
	MutationAddNode          = "add_node"
	MutationRemoveNode       = "remove_node"
	MutationChangeActivation = "change_activation"
)

// MutationRule fires its operator with probability Chance during a mutation
// pass. PercentPerturbed only applies to change_weights.
type MutationRule struct {
	Kind             string  `yaml:"kind" json:"kind"`
	Chance           float64 `yaml:"chance" json:"chance"`
	PercentPerturbed float64 `yaml:"percent_perturbed,omitempty" json:"percent_perturbed,omitempty"`
}

// Parameters is the evolutionary configuration shared by every genome
// operation of one habitat.
type Parameters struct {
	Seed        int64              `yaml:"seed" json:"seed"`
	Structure   genotype.Structure `yaml:"structure" json:"structure"`
	Activations []string           `yaml:"activations" json:"activations"`
	Mutations   []MutationRule     `yaml:"mutations" json:"mutations"`
}

// DefaultParameters returns a weight-heavy mutation schedule with occasional
// structural change.
func DefaultParameters(inputs, outputs int) Parameters {
	structure := genotype.DefaultStructure(inputs)
	structure.Outputs = outputs
	return Parameters{
		Seed:        1,
		Structure:   structure,
		Activations: []string{"tanh", "sigmoid", "relu", "gaussian", "sin", "identity"},
		Mutations: []MutationRule{
			{Kind: MutationChangeWeights, Chance: 1.0, PercentPerturbed: 0.5},
			{Kind: MutationChangeBias, Chance: 0.2},
			{Kind: MutationAddConnection, Chance: 0.1},
			{Kind: MutationAddNode, Chance: 0.05},
			{Kind: MutationChangeActivation, Chance: 0.05},
			{Kind: MutationRemoveConnection, Chance: 0.01},
			{Kind: MutationRemoveNode, Chance: 0.01},
		},
	}
}

// LoadParameters reads a YAML parameter file. Unknown keys are rejected.
func LoadParameters(path string) (Parameters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Parameters{}, fmt.Errorf("reading parameters: %w", err)
	}
	var params Parameters
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&params); err != nil {
		return Parameters{}, fmt.Errorf("parsing parameters: %w", err)
	}
	if err := params.Validate(); err != nil {
		return Parameters{}, err
	}
	return params, nil
}

func (p Parameters) Validate() error {
	if err := p.Structure.Validate(); err != nil {
		return fmt.Errorf("structure: %w", err)
	}
	if p.Structure.OutputsActivation != "" {
		if _, err := nn.GetActivation(p.Structure.OutputsActivation); err != nil {
			return fmt.Errorf("structure: %w", err)
		}
	}
	for _, name := range p.Activations {
		if _, err := nn.GetActivation(name); err != nil {
			return fmt.Errorf("activations: %w", err)
		}
	}
	if len(p.Mutations) == 0 {
		return fmt.Errorf("at least one mutation rule is required")
	}
	for i, rule := range p.Mutations {
		if !validMutationKinds[rule.Kind] {
			return fmt.Errorf("mutations[%d]: unknown kind %q", i, rule.Kind)
		}
		if rule.Chance < 0 || rule.Chance > 1 {
			return fmt.Errorf("mutations[%d]: chance must be in [0,1], got %f", i, rule.Chance)
		}
		if rule.PercentPerturbed < 0 || rule.PercentPerturbed > 1 {
			return fmt.Errorf("mutations[%d]: percent_perturbed must be in [0,1], got %f", i, rule.PercentPerturbed)
		}
	}
	return nil
}

var validMutationKinds = map[string]bool{
	MutationChangeWeights:    true,
	MutationChangeBias:       true,
	MutationAddConnection:    true,
	MutationRemoveConnection: true,
	MutationAddNode:          true,
	MutationRemoveNode:       true,
	MutationChangeActivation: true,
}
