package evo

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand"

	"selfrep/internal/genotype"
	"selfrep/internal/model"
)

var (
	ErrNoSynapses       = errors.New("genome has no synapses")
	ErrNoHiddenNeurons  = errors.New("genome has no hidden neurons")
	ErrNoMutationChoice = errors.New("no mutation choice available")
	ErrRandomSource     = errors.New("random source is required")
)

// ChangeWeights perturbs each synapse with probability PercentPerturbed. At
// least one synapse is always perturbed when synapses are present.
type ChangeWeights struct {
	Rand             *rand.Rand
	Structure        genotype.Structure
	PercentPerturbed float64
}

func (o *ChangeWeights) Name() string {
	return MutationChangeWeights
}

func (o *ChangeWeights) Applicable(genome model.Genome) bool {
	return len(genome.Synapses) > 0
}

func (o *ChangeWeights) Apply(genome model.Genome) (model.Genome, error) {
	if len(genome.Synapses) == 0 {
		return model.Genome{}, ErrNoSynapses
	}
	if o == nil || o.Rand == nil {
		return model.Genome{}, ErrRandomSource
	}

	mutated := genotype.CloneGenome(genome)
	changed := 0
	for i := range mutated.Synapses {
		if o.Rand.Float64() >= o.PercentPerturbed {
			continue
		}
		mutated.Synapses[i].Weight = genotype.PerturbWeight(o.Rand, o.Structure, mutated.Synapses[i].Weight)
		changed++
	}
	if changed == 0 {
		idx := o.Rand.Intn(len(mutated.Synapses))
		mutated.Synapses[idx].Weight = genotype.PerturbWeight(o.Rand, o.Structure, mutated.Synapses[idx].Weight)
	}
	return mutated, nil
}

// ChangeBias perturbs the bias of one random neuron.
type ChangeBias struct {
	Rand      *rand.Rand
	Structure genotype.Structure
}

func (o *ChangeBias) Name() string {
	return MutationChangeBias
}

func (o *ChangeBias) Applicable(genome model.Genome) bool {
	return len(genome.Neurons) > 0
}

func (o *ChangeBias) Apply(genome model.Genome) (model.Genome, error) {
	if len(genome.Neurons) == 0 {
		return model.Genome{}, ErrNoMutationChoice
	}
	if o == nil || o.Rand == nil {
		return model.Genome{}, ErrRandomSource
	}

	mutated := genotype.CloneGenome(genome)
	idx := o.Rand.Intn(len(mutated.Neurons))
	mutated.Neurons[idx].Bias = genotype.PerturbWeight(o.Rand, o.Structure, mutated.Neurons[idx].Bias)
	return mutated, nil
}

// AddConnection links a random pair of unconnected nodes without creating a
// cycle.
type AddConnection struct {
	Rand      *rand.Rand
	Structure genotype.Structure
}

func (o *AddConnection) Name() string {
	return MutationAddConnection
}

func (o *AddConnection) Apply(genome model.Genome) (model.Genome, error) {
	if o == nil || o.Rand == nil {
		return model.Genome{}, ErrRandomSource
	}

	sources := make([]string, 0, len(genome.Inputs)+len(genome.Neurons))
	sources = append(sources, genome.Inputs...)
	for _, n := range genome.Neurons {
		sources = append(sources, n.ID)
	}

	type pair struct{ from, to string }
	candidates := make([]pair, 0)
	for _, from := range sources {
		for _, to := range genome.Neurons {
			if from == to.ID || genotype.HasSynapse(genome, from, to.ID) {
				continue
			}
			if reaches(genome, to.ID, from) {
				continue
			}
			candidates = append(candidates, pair{from: from, to: to.ID})
		}
	}
	if len(candidates) == 0 {
		return model.Genome{}, ErrNoMutationChoice
	}

	choice := candidates[o.Rand.Intn(len(candidates))]
	mutated := genotype.CloneGenome(genome)
	mutated.Synapses = append(mutated.Synapses, model.Synapse{
		From:   choice.from,
		To:     choice.to,
		Weight: genotype.CreateWeight(o.Rand, o.Structure),
	})
	return mutated, nil
}

// RemoveConnection drops one random synapse.
type RemoveConnection struct {
	Rand *rand.Rand
}

func (o *RemoveConnection) Name() string {
	return MutationRemoveConnection
}

func (o *RemoveConnection) Applicable(genome model.Genome) bool {
	return len(genome.Synapses) > 0
}

func (o *RemoveConnection) Apply(genome model.Genome) (model.Genome, error) {
	if len(genome.Synapses) == 0 {
		return model.Genome{}, ErrNoSynapses
	}
	if o == nil || o.Rand == nil {
		return model.Genome{}, ErrRandomSource
	}

	mutated := genotype.CloneGenome(genome)
	idx := o.Rand.Intn(len(mutated.Synapses))
	mutated.Synapses = append(mutated.Synapses[:idx], mutated.Synapses[idx+1:]...)
	return mutated, nil
}

// AddNode splits a random synapse from->to into from->h->to. The incoming
// weight is 1 and the outgoing weight keeps the original value, so the split
// starts close to the original behavior.
type AddNode struct {
	Rand        *rand.Rand
	Activations []string
}

func (o *AddNode) Name() string {
	return MutationAddNode
}

func (o *AddNode) Applicable(genome model.Genome) bool {
	return len(genome.Synapses) > 0
}

func (o *AddNode) Apply(genome model.Genome) (model.Genome, error) {
	if len(genome.Synapses) == 0 {
		return model.Genome{}, ErrNoSynapses
	}
	if o == nil || o.Rand == nil {
		return model.Genome{}, ErrRandomSource
	}

	mutated := genotype.CloneGenome(genome)
	idx := o.Rand.Intn(len(mutated.Synapses))
	split := mutated.Synapses[idx]
	mutated.Synapses = append(mutated.Synapses[:idx], mutated.Synapses[idx+1:]...)

	activation, err := genotype.RandomElement(o.Rand, o.activations())
	if err != nil {
		return model.Genome{}, err
	}
	id := hiddenNeuronID(mutated, split.From, split.To)
	mutated.Neurons = append(mutated.Neurons, model.Neuron{ID: id, Activation: activation})
	mutated.Synapses = append(mutated.Synapses,
		model.Synapse{From: split.From, To: id, Weight: 1},
		model.Synapse{From: id, To: split.To, Weight: split.Weight},
	)
	return mutated, nil
}

func (o *AddNode) activations() []string {
	if len(o.Activations) == 0 {
		return []string{"tanh"}
	}
	return o.Activations
}

// RemoveNode deletes one random hidden neuron with all its synapses.
type RemoveNode struct {
	Rand *rand.Rand
}

func (o *RemoveNode) Name() string {
	return MutationRemoveNode
}

func (o *RemoveNode) Applicable(genome model.Genome) bool {
	return len(genotype.HiddenIDs(genome)) > 0
}

func (o *RemoveNode) Apply(genome model.Genome) (model.Genome, error) {
	hidden := genotype.HiddenIDs(genome)
	if len(hidden) == 0 {
		return model.Genome{}, ErrNoHiddenNeurons
	}
	if o == nil || o.Rand == nil {
		return model.Genome{}, ErrRandomSource
	}

	target := hidden[o.Rand.Intn(len(hidden))]
	mutated := genotype.CloneGenome(genome)
	neurons := mutated.Neurons[:0]
	for _, n := range mutated.Neurons {
		if n.ID != target {
			neurons = append(neurons, n)
		}
	}
	mutated.Neurons = neurons
	synapses := mutated.Synapses[:0]
	for _, s := range mutated.Synapses {
		if s.From != target && s.To != target {
			synapses = append(synapses, s)
		}
	}
	mutated.Synapses = synapses
	return mutated, nil
}

// ChangeActivation swaps the activation of one random hidden neuron.
type ChangeActivation struct {
	Rand        *rand.Rand
	Activations []string
}

func (o *ChangeActivation) Name() string {
	return MutationChangeActivation
}

func (o *ChangeActivation) Applicable(genome model.Genome) bool {
	return len(genotype.HiddenIDs(genome)) > 0 && len(o.Activations) > 1
}

func (o *ChangeActivation) Apply(genome model.Genome) (model.Genome, error) {
	hidden := genotype.HiddenIDs(genome)
	if len(hidden) == 0 {
		return model.Genome{}, ErrNoHiddenNeurons
	}
	if o == nil || o.Rand == nil {
		return model.Genome{}, ErrRandomSource
	}

	target := hidden[o.Rand.Intn(len(hidden))]
	mutated := genotype.CloneGenome(genome)
	idx := genotype.NeuronIndex(mutated, target)
	current := mutated.Neurons[idx].Activation
	choices := make([]string, 0, len(o.Activations))
	for _, name := range o.Activations {
		if name != current {
			choices = append(choices, name)
		}
	}
	if len(choices) == 0 {
		return model.Genome{}, ErrNoMutationChoice
	}
	mutated.Neurons[idx].Activation = choices[o.Rand.Intn(len(choices))]
	return mutated, nil
}

// reaches reports whether a directed path from -> to exists.
func reaches(g model.Genome, from, to string) bool {
	if from == to {
		return true
	}
	outgoing := make(map[string][]string, len(g.Neurons))
	for _, s := range g.Synapses {
		outgoing[s.From] = append(outgoing[s.From], s.To)
	}
	seen := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range outgoing[node] {
			if next == to {
				return true
			}
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

// hiddenNeuronID derives the id from the split synapse so that identical
// splits on identical parents produce identical offspring.
func hiddenNeuronID(g model.Genome, from, to string) string {
	sum := sha1.Sum([]byte(from + ">" + to))
	base := "h" + hex.EncodeToString(sum[:4])
	id := base
	for i := 1; genotype.NeuronIndex(g, id) >= 0 || genotype.IsInput(g, id); i++ {
		id = fmt.Sprintf("%s.%d", base, i)
	}
	return id
}
