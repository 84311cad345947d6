package evo

import (
	"errors"
	"fmt"
	"math/rand"

	"selfrep/internal/genotype"
	"selfrep/internal/model"
)

type rule struct {
	chance   float64
	operator Operator
}

// Context threads one seeded random source through every genome operation of
// a habitat: initialization, mutation, and reproduction draws. It is not safe
// for concurrent use; its output depends only on the seed and call order.
type Context struct {
	params Parameters
	rng    *rand.Rand
	rules  []rule
	issued int
}

func NewContext(params Parameters) (*Context, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(params.Seed))
	c := &Context{params: params, rng: rng}
	for _, r := range params.Mutations {
		op, err := c.operatorFor(r)
		if err != nil {
			return nil, err
		}
		c.rules = append(c.rules, rule{chance: r.Chance, operator: op})
	}
	return c, nil
}

func (c *Context) Parameters() Parameters {
	return c.params
}

// UninitializedGenome returns interface slots and outputs without synapses.
func (c *Context) UninitializedGenome() model.Genome {
	g := genotype.Uninitialized(c.params.Structure)
	g.ID = c.nextGenomeID()
	return g
}

// InitWithContext connects the configured share of inputs with random weights.
func (c *Context) InitWithContext(g *model.Genome) {
	genotype.ConnectInputs(c.rng, c.params.Structure, g)
}

// InitializedGenome returns the canonical fully connected genome. It does not
// consume randomness.
func (c *Context) InitializedGenome() model.Genome {
	g := genotype.Canonical(c.params.Structure)
	g.ID = c.nextGenomeID()
	return g
}

// Float64 draws from the shared random source.
func (c *Context) Float64() float64 {
	return c.rng.Float64()
}

// Mutate runs one mutation pass over g: each rule fires with its chance in
// declared order. When no rule fires, the first applicable rule is forced so
// that every pass changes the genome.
func (c *Context) Mutate(g *model.Genome) error {
	if g == nil {
		return errors.New("genome is required")
	}

	current := *g
	applied := 0
	for _, r := range c.rules {
		if c.rng.Float64() >= r.chance {
			continue
		}
		next, err := r.operator.Apply(current)
		if isNoChoice(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%s: %w", r.operator.Name(), err)
		}
		current = next
		applied++
	}

	if applied == 0 {
		for _, r := range c.rules {
			if contextual, ok := r.operator.(ContextualOperator); ok && !contextual.Applicable(current) {
				continue
			}
			next, err := r.operator.Apply(current)
			if isNoChoice(err) {
				continue
			}
			if err != nil {
				return fmt.Errorf("%s: %w", r.operator.Name(), err)
			}
			current = next
			applied++
			break
		}
	}
	if applied == 0 {
		return ErrNoMutationChoice
	}

	current.ID = c.nextGenomeID()
	*g = current
	return nil
}

func (c *Context) operatorFor(r MutationRule) (Operator, error) {
	structure := c.params.Structure
	switch r.Kind {
	case MutationChangeWeights:
		return &ChangeWeights{Rand: c.rng, Structure: structure, PercentPerturbed: r.PercentPerturbed}, nil
	case MutationChangeBias:
		return &ChangeBias{Rand: c.rng, Structure: structure}, nil
	case MutationAddConnection:
		return &AddConnection{Rand: c.rng, Structure: structure}, nil
	case MutationRemoveConnection:
		return &RemoveConnection{Rand: c.rng}, nil
	case MutationAddNode:
		return &AddNode{Rand: c.rng, Activations: c.params.Activations}, nil
	case MutationRemoveNode:
		return &RemoveNode{Rand: c.rng}, nil
	case MutationChangeActivation:
		return &ChangeActivation{Rand: c.rng, Activations: c.params.Activations}, nil
	default:
		return nil, fmt.Errorf("unknown mutation kind %q", r.Kind)
	}
}

func (c *Context) nextGenomeID() string {
	c.issued++
	return fmt.Sprintf("g%d", c.issued)
}

func isNoChoice(err error) bool {
	return errors.Is(err, ErrNoMutationChoice) ||
		errors.Is(err, ErrNoSynapses) ||
		errors.Is(err, ErrNoHiddenNeurons)
}
