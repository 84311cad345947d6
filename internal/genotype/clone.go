package genotype

import "selfrep/internal/model"

func CloneGenome(g model.Genome) model.Genome {
	out := g
	out.Inputs = append([]string(nil), g.Inputs...)
	out.Outputs = append([]string(nil), g.Outputs...)
	out.Neurons = append([]model.Neuron(nil), g.Neurons...)
	out.Synapses = append([]model.Synapse(nil), g.Synapses...)
	return out
}

// Equal compares evolvable content. IDs and record versions are ignored, and
// neuron/synapse order does not matter.
func Equal(a, b model.Genome) bool {
	return Fingerprint(a) == Fingerprint(b)
}
