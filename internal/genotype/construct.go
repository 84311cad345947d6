package genotype

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"selfrep/internal/model"
)

var (
	ErrNoInputs  = errors.New("structure requires at least one input")
	ErrNoOutputs = errors.New("structure requires at least one output")
)

// Structure fixes the interface a genome exposes to its environment.
type Structure struct {
	Inputs                 int     `yaml:"inputs" json:"inputs"`
	Outputs                int     `yaml:"outputs" json:"outputs"`
	PercentConnectedInputs float64 `yaml:"percent_connected_inputs" json:"percent_connected_inputs"`
	OutputsActivation      string  `yaml:"outputs_activation" json:"outputs_activation"`
	WeightStdDev           float64 `yaml:"weight_std_dev" json:"weight_std_dev"`
	WeightCap              float64 `yaml:"weight_cap" json:"weight_cap"`
}

// DefaultStructure is a single-output tanh controller.
func DefaultStructure(inputs int) Structure {
	return Structure{
		Inputs:                 inputs,
		Outputs:                1,
		PercentConnectedInputs: 1.0,
		OutputsActivation:      "tanh",
		WeightStdDev:           0.1,
		WeightCap:              1.0,
	}
}

func (s Structure) Validate() error {
	if s.Inputs <= 0 {
		return ErrNoInputs
	}
	if s.Outputs <= 0 {
		return ErrNoOutputs
	}
	if s.PercentConnectedInputs < 0 || s.PercentConnectedInputs > 1 {
		return fmt.Errorf("percent_connected_inputs must be in [0,1], got %f", s.PercentConnectedInputs)
	}
	if s.WeightStdDev < 0 {
		return fmt.Errorf("weight_std_dev must be >= 0, got %f", s.WeightStdDev)
	}
	if s.WeightCap < 0 {
		return fmt.Errorf("weight_cap must be >= 0, got %f", s.WeightCap)
	}
	return nil
}

func InputID(i int) string {
	return fmt.Sprintf("i%d", i)
}

func OutputID(i int) string {
	return fmt.Sprintf("o%d", i)
}

// Uninitialized returns a genome with input slots and output neurons but no
// synapses.
func Uninitialized(s Structure) model.Genome {
	activation := s.OutputsActivation
	if activation == "" {
		activation = "tanh"
	}
	g := model.Genome{
		Inputs:  make([]string, 0, s.Inputs),
		Outputs: make([]string, 0, s.Outputs),
		Neurons: make([]model.Neuron, 0, s.Outputs),
	}
	for i := 0; i < s.Inputs; i++ {
		g.Inputs = append(g.Inputs, InputID(i))
	}
	for i := 0; i < s.Outputs; i++ {
		id := OutputID(i)
		g.Outputs = append(g.Outputs, id)
		g.Neurons = append(g.Neurons, model.Neuron{ID: id, Activation: activation})
	}
	return g
}

// ConnectInputs links a random ceil(percent*inputs) subset of inputs to every
// output with gaussian weights. Existing synapses are left untouched.
func ConnectInputs(rng *rand.Rand, s Structure, g *model.Genome) {
	rng = ensureRNG(rng)
	count := int(math.Ceil(float64(len(g.Inputs)) * s.PercentConnectedInputs))
	if count <= 0 {
		return
	}
	order := rng.Perm(len(g.Inputs))[:count]
	for _, outputID := range g.Outputs {
		for _, idx := range order {
			from := g.Inputs[idx]
			if HasSynapse(*g, from, outputID) {
				continue
			}
			g.Synapses = append(g.Synapses, model.Synapse{
				From:   from,
				To:     outputID,
				Weight: CreateWeight(rng, s),
			})
		}
	}
}

// Canonical returns the fully connected genome with zero weights. It is the
// same value for a given structure on every call.
func Canonical(s Structure) model.Genome {
	g := Uninitialized(s)
	for _, outputID := range g.Outputs {
		for _, inputID := range g.Inputs {
			g.Synapses = append(g.Synapses, model.Synapse{From: inputID, To: outputID})
		}
	}
	return g
}

func HasSynapse(g model.Genome, from, to string) bool {
	return SynapseIndex(g, from, to) >= 0
}

func SynapseIndex(g model.Genome, from, to string) int {
	for i, s := range g.Synapses {
		if s.From == from && s.To == to {
			return i
		}
	}
	return -1
}

func NeuronIndex(g model.Genome, id string) int {
	for i, n := range g.Neurons {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// IsOutput reports whether id names one of the genome's output neurons.
func IsOutput(g model.Genome, id string) bool {
	for _, out := range g.Outputs {
		if out == id {
			return true
		}
	}
	return false
}

// IsInput reports whether id names one of the genome's input slots.
func IsInput(g model.Genome, id string) bool {
	for _, in := range g.Inputs {
		if in == id {
			return true
		}
	}
	return false
}

// HiddenIDs lists neurons that are neither inputs nor outputs, in genome order.
func HiddenIDs(g model.Genome) []string {
	out := make([]string, 0, len(g.Neurons))
	for _, n := range g.Neurons {
		if !IsOutput(g, n.ID) {
			out = append(out, n.ID)
		}
	}
	return out
}
