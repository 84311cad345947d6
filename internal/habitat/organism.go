package habitat

import (
	"errors"
	"fmt"

	"selfrep/internal/genotype"
	"selfrep/internal/model"
)

var ErrFabrication = errors.New("evaluator fabrication failed")

// Organism binds one genome to its fabricated evaluator and an exclusively
// owned environment. Identity is the genome content; the environment and
// evaluator take no part in it.
type Organism struct {
	genome      model.Genome
	key         string
	evaluator   Evaluator
	environment Environment
	ticks       int
}

// NewOrganism fabricates the evaluator for genome and pairs it with env.
func NewOrganism(genome model.Genome, env Environment, fabricate Fabricator) (*Organism, error) {
	if env == nil {
		return nil, errors.New("environment is required")
	}
	if fabricate == nil {
		return nil, errors.New("fabricator is required")
	}
	evaluator, err := fabricate(genome)
	if err != nil {
		return nil, fmt.Errorf("%w: genome %s: %v", ErrFabrication, genome.ID, err)
	}
	return &Organism{
		genome:      genome,
		key:         genotype.Fingerprint(genome),
		evaluator:   evaluator,
		environment: env,
	}, nil
}

// Tick advances the owned environment by one step with the owned evaluator.
func (o *Organism) Tick() Status {
	o.ticks++
	return o.environment.Step(o.evaluator)
}

// Key is the content fingerprint of the genome.
func (o *Organism) Key() string {
	return o.key
}

// Genome returns a copy of the organism's genome.
func (o *Organism) Genome() model.Genome {
	return genotype.CloneGenome(o.genome)
}

func (o *Organism) Environment() Environment {
	return o.environment
}

func (o *Organism) Evaluator() Evaluator {
	return o.evaluator
}

// Ticks counts how many times the organism has been stepped.
func (o *Organism) Ticks() int {
	return o.ticks
}
