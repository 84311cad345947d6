package nn

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"selfrep/internal/model"
)

var (
	ErrCyclicTopology  = errors.New("genome topology is cyclic")
	ErrDanglingSynapse = errors.New("synapse endpoint not found")
	ErrDuplicateNode   = errors.New("duplicate node id")
	ErrNoOutputs       = errors.New("genome has no outputs")
)

type incoming struct {
	from   int
	weight float64
}

type compiledNeuron struct {
	slot       int
	bias       float64
	activation ActivationFunc
	inputs     []incoming
}

// FeedForward is an evaluator compiled from a genome. It holds no mutable
// state, so Evaluate is safe to call repeatedly and concurrently.
type FeedForward struct {
	inputs  int
	slots   int
	neurons []compiledNeuron
	outputs []int
}

// Fabricate compiles genome into a feed-forward evaluator. Neurons are
// evaluated in a stable topological order; any cycle fails fabrication.
func Fabricate(genome model.Genome) (*FeedForward, error) {
	if len(genome.Outputs) == 0 {
		return nil, ErrNoOutputs
	}

	slotByID := make(map[string]int, len(genome.Inputs)+len(genome.Neurons))
	for _, id := range genome.Inputs {
		if _, exists := slotByID[id]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, id)
		}
		slotByID[id] = len(slotByID)
	}
	neuronBySlot := make(map[int]model.Neuron, len(genome.Neurons))
	for _, neuron := range genome.Neurons {
		if _, exists := slotByID[neuron.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, neuron.ID)
		}
		slot := len(slotByID)
		slotByID[neuron.ID] = slot
		neuronBySlot[slot] = neuron
	}

	g := simple.NewDirectedGraph()
	for slot := 0; slot < len(slotByID); slot++ {
		g.AddNode(simple.Node(int64(slot)))
	}
	incomingBySlot := make(map[int][]incoming, len(genome.Neurons))
	for _, synapse := range genome.Synapses {
		from, ok := slotByID[synapse.From]
		if !ok {
			return nil, fmt.Errorf("%w: %s->%s", ErrDanglingSynapse, synapse.From, synapse.To)
		}
		to, ok := slotByID[synapse.To]
		if !ok {
			return nil, fmt.Errorf("%w: %s->%s", ErrDanglingSynapse, synapse.From, synapse.To)
		}
		if _, isNeuron := neuronBySlot[to]; !isNeuron {
			return nil, fmt.Errorf("%w: synapse %s->%s feeds an input", ErrCyclicTopology, synapse.From, synapse.To)
		}
		if from == to {
			return nil, fmt.Errorf("%w: self loop on %s", ErrCyclicTopology, synapse.From)
		}
		if !g.HasEdgeFromTo(int64(from), int64(to)) {
			g.SetEdge(g.NewEdge(simple.Node(int64(from)), simple.Node(int64(to))))
		}
		incomingBySlot[to] = append(incomingBySlot[to], incoming{from: from, weight: synapse.Weight})
	}

	order, err := topo.SortStabilized(g, sortByID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCyclicTopology, err)
	}

	ff := &FeedForward{
		inputs:  len(genome.Inputs),
		slots:   len(slotByID),
		neurons: make([]compiledNeuron, 0, len(genome.Neurons)),
		outputs: make([]int, 0, len(genome.Outputs)),
	}
	for _, node := range order {
		slot := int(node.ID())
		neuron, ok := neuronBySlot[slot]
		if !ok {
			continue
		}
		fn, err := GetActivation(neuron.Activation)
		if err != nil {
			return nil, fmt.Errorf("neuron %s: %w", neuron.ID, err)
		}
		ff.neurons = append(ff.neurons, compiledNeuron{
			slot:       slot,
			bias:       neuron.Bias,
			activation: fn,
			inputs:     incomingBySlot[slot],
		})
	}
	for _, id := range genome.Outputs {
		slot, ok := slotByID[id]
		if !ok {
			return nil, fmt.Errorf("%w: output %s", ErrDanglingSynapse, id)
		}
		if _, isNeuron := neuronBySlot[slot]; !isNeuron {
			return nil, fmt.Errorf("%w: output %s is not a neuron", ErrDanglingSynapse, id)
		}
		ff.outputs = append(ff.outputs, slot)
	}
	return ff, nil
}

// Evaluate maps input to one value per genome output. Missing inputs read as
// zero and surplus inputs are ignored.
func (f *FeedForward) Evaluate(input []float64) []float64 {
	values := make([]float64, f.slots)
	copy(values[:f.inputs], input)

	for _, neuron := range f.neurons {
		total := neuron.bias
		for _, in := range neuron.inputs {
			total += values[in.from] * in.weight
		}
		values[neuron.slot] = neuron.activation(total)
	}

	out := make([]float64, len(f.outputs))
	for i, slot := range f.outputs {
		out[i] = values[slot]
	}
	return out
}

// Inputs reports the expected input dimensionality.
func (f *FeedForward) Inputs() int {
	return f.inputs
}

func sortByID(nodes []graph.Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
}
