package genotype

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"selfrep/internal/model"
)

var (
	ErrDuplicateNode   = errors.New("duplicate node id")
	ErrDanglingSynapse = errors.New("synapse endpoint not found")
	ErrInputTarget     = errors.New("synapse targets an input")
)

// RandomElement picks one value with optional RNG injection.
func RandomElement[T any](rng *rand.Rand, values []T) (T, error) {
	var zero T
	if len(values) == 0 {
		return zero, fmt.Errorf("values are required")
	}
	rng = ensureRNG(rng)
	return values[rng.Intn(len(values))], nil
}

// Validate checks that node ids are unique and every synapse connects known
// endpoints, never feeding into an input slot.
func Validate(g model.Genome) error {
	nodes := make(map[string]struct{}, len(g.Inputs)+len(g.Neurons))
	for _, id := range g.Inputs {
		if _, exists := nodes[id]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateNode, id)
		}
		nodes[id] = struct{}{}
	}
	for _, n := range g.Neurons {
		if _, exists := nodes[n.ID]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
		}
		nodes[n.ID] = struct{}{}
	}
	for _, id := range g.Outputs {
		if NeuronIndex(g, id) < 0 {
			return fmt.Errorf("%w: output %s", ErrDanglingSynapse, id)
		}
	}
	for _, s := range g.Synapses {
		if _, ok := nodes[s.From]; !ok {
			return fmt.Errorf("%w: %s->%s", ErrDanglingSynapse, s.From, s.To)
		}
		if _, ok := nodes[s.To]; !ok {
			return fmt.Errorf("%w: %s->%s", ErrDanglingSynapse, s.From, s.To)
		}
		if IsInput(g, s.To) {
			return fmt.Errorf("%w: %s->%s", ErrInputTarget, s.From, s.To)
		}
	}
	return nil
}

func ensureRNG(rng *rand.Rand) *rand.Rand {
	if rng != nil {
		return rng
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
