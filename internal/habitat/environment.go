package habitat

import "selfrep/internal/model"

// Evaluator maps an input vector to an output vector without side effects.
type Evaluator interface {
	Evaluate(input []float64) []float64
}

// Environment is a stateful task simulation advanced one tick at a time by an
// evaluator.
type Environment interface {
	Step(evaluator Evaluator) Status
}

// EnvironmentFactory returns a new, independently owned environment.
type EnvironmentFactory func() Environment

// Fabricator builds an evaluator from a genome.
type Fabricator func(genome model.Genome) (Evaluator, error)

// GenomeContext is the shared initialization and mutation context of a
// habitat. Calls happen sequentially in population order.
type GenomeContext interface {
	UninitializedGenome() model.Genome
	InitWithContext(genome *model.Genome)
	InitializedGenome() model.Genome
	Mutate(genome *model.Genome) error
	Float64() float64
}
