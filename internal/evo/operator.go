package evo

import "selfrep/internal/model"

// Operator returns a mutated copy of genome. The input is never modified.
type Operator interface {
	Name() string
	Apply(genome model.Genome) (model.Genome, error)
}

// ContextualOperator can declare whether it is applicable to a genome, so the
// mutation pass can skip operators with nothing to act on.
type ContextualOperator interface {
	Operator
	Applicable(genome model.Genome) bool
}
