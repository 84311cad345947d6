package habitat

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"selfrep/internal/genotype"
	"selfrep/internal/model"
)

const (
	DefaultSeedFraction            = 0.1
	DefaultReproductionProbability = 0.1
)

var (
	ErrInvalidCapacity = errors.New("capacity must be positive")
	ErrAtCapacity      = errors.New("habitat is at capacity")
	ErrDuplicateGenome = errors.New("genome already present")
)

type Config struct {
	Capacity       int
	NewEnvironment EnvironmentFactory
	Context        GenomeContext
	Fabricate      Fabricator

	// SeedFraction of capacity is seeded from context-initialized genomes
	// whenever the population is empty. Zero selects DefaultSeedFraction.
	SeedFraction float64
	// ReproductionProbability is the per-parent chance of one offspring per
	// Reproduce call. Zero selects DefaultReproductionProbability.
	ReproductionProbability float64

	// TickHook, when set, observes every tick before the survival filter.
	TickHook func(o *Organism, status Status)

	Logger logrus.FieldLogger
}

// StepReport summarizes one Step call.
type StepReport struct {
	Generation          int
	Seeded              int
	Ticked              int
	Deaths              int
	FabricationFailures int
	Population          int
}

// ReproduceReport summarizes one Reproduce call.
type ReproduceReport struct {
	Offspring           int
	Born                int
	Duplicates          int
	Dropped             int
	MutationFailures    int
	FabricationFailures int
	Population          int
}

// Habitat owns a bounded population of organisms and drives the generational
// loop: seed when empty, tick everyone, keep survivors, reproduce. It is not
// safe for concurrent use.
type Habitat struct {
	capacity                int
	seedFraction            float64
	reproductionProbability float64
	newEnvironment          EnvironmentFactory
	context                 GenomeContext
	fabricate               Fabricator
	tickHook                func(*Organism, Status)
	log                     logrus.FieldLogger

	population *population
	generation int
}

func New(cfg Config) (*Habitat, error) {
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, cfg.Capacity)
	}
	if cfg.NewEnvironment == nil {
		return nil, errors.New("environment factory is required")
	}
	if cfg.Context == nil {
		return nil, errors.New("genome context is required")
	}
	if cfg.Fabricate == nil {
		return nil, errors.New("fabricator is required")
	}
	if cfg.SeedFraction < 0 || cfg.SeedFraction > 1 {
		return nil, fmt.Errorf("seed fraction must be in [0,1], got %f", cfg.SeedFraction)
	}
	if cfg.ReproductionProbability < 0 || cfg.ReproductionProbability > 1 {
		return nil, fmt.Errorf("reproduction probability must be in [0,1], got %f", cfg.ReproductionProbability)
	}

	seedFraction := cfg.SeedFraction
	if seedFraction == 0 {
		seedFraction = DefaultSeedFraction
	}
	reproductionProbability := cfg.ReproductionProbability
	if reproductionProbability == 0 {
		reproductionProbability = DefaultReproductionProbability
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Habitat{
		capacity:                cfg.Capacity,
		seedFraction:            seedFraction,
		reproductionProbability: reproductionProbability,
		newEnvironment:          cfg.NewEnvironment,
		context:                 cfg.Context,
		fabricate:               cfg.Fabricate,
		tickHook:                cfg.TickHook,
		log:                     logger,
		population:              newPopulation(),
	}, nil
}

// Step seeds an empty population, ticks every organism once in population
// order, and keeps exactly those that reported Alive.
func (h *Habitat) Step() StepReport {
	report := StepReport{}
	if h.population.len() == 0 {
		report.Seeded, report.FabricationFailures = h.seed()
	}

	current := h.population.snapshot()
	survivors := make([]*Organism, 0, len(current))
	for _, organism := range current {
		status := organism.Tick()
		report.Ticked++
		if h.tickHook != nil {
			h.tickHook(organism, status)
		}
		if status == Alive {
			survivors = append(survivors, organism)
			continue
		}
		report.Deaths++
	}
	h.population.reset(survivors)

	h.generation++
	report.Generation = h.generation
	report.Population = h.population.len()

	h.log.WithFields(logrus.Fields{
		"generation": report.Generation,
		"seeded":     report.Seeded,
		"deaths":     report.Deaths,
		"population": report.Population,
	}).Debug("habitat step")
	return report
}

// seed fills an empty population with ceil(capacity*seedFraction) genomes
// initialized through the context plus one canonical genome. Equal genomes
// coalesce, and the total never exceeds capacity.
func (h *Habitat) seed() (seeded, failures int) {
	count := int(math.Ceil(float64(h.capacity) * h.seedFraction))
	if count > h.capacity-1 {
		count = h.capacity - 1
	}

	for i := 0; i < count; i++ {
		genome := h.context.UninitializedGenome()
		h.context.InitWithContext(&genome)
		inserted, err := h.admit(genome)
		if err != nil {
			failures++
			continue
		}
		if inserted {
			seeded++
		}
	}

	inserted, err := h.admit(h.context.InitializedGenome())
	if err != nil {
		failures++
	} else if inserted {
		seeded++
	}
	return seeded, failures
}

// Reproduce gives every current organism, in population order, a chance to
// spawn one mutated offspring while the population plus pending offspring is
// below capacity. Parents are never consumed. Offspring are inserted after the
// full parent pass; equal genomes coalesce and insertion stops at capacity.
func (h *Habitat) Reproduce() ReproduceReport {
	report := ReproduceReport{}
	offspring := make([]*Organism, 0)

	for _, parent := range h.population.snapshot() {
		if h.population.len()+len(offspring) >= h.capacity {
			break
		}
		if h.context.Float64() >= h.reproductionProbability {
			continue
		}

		genome := genotype.CloneGenome(parent.genome)
		if err := h.context.Mutate(&genome); err != nil {
			report.MutationFailures++
			h.log.WithError(err).WithField("parent", parent.genome.ID).Warn("mutation failed")
			continue
		}
		child, err := NewOrganism(genome, h.newEnvironment(), h.fabricate)
		if err != nil {
			report.FabricationFailures++
			h.log.WithError(err).WithField("parent", parent.genome.ID).Warn("skipping offspring")
			continue
		}
		offspring = append(offspring, child)
	}
	report.Offspring = len(offspring)

	for i, child := range offspring {
		if h.population.len() >= h.capacity {
			report.Dropped = len(offspring) - i
			break
		}
		if h.population.insert(child) {
			report.Born++
			continue
		}
		report.Duplicates++
	}
	report.Population = h.population.len()

	h.log.WithFields(logrus.Fields{
		"generation": h.generation,
		"offspring":  report.Offspring,
		"born":       report.Born,
		"population": report.Population,
	}).Debug("habitat reproduce")
	return report
}

// Insert adds an organism for a copy of genome, for example when resuming
// from a stored population. Malformed genomes are rejected before fabrication.
func (h *Habitat) Insert(genome model.Genome) error {
	if h.population.len() >= h.capacity {
		return ErrAtCapacity
	}
	if err := genotype.Validate(genome); err != nil {
		return err
	}
	if h.population.contains(genotype.Fingerprint(genome)) {
		return ErrDuplicateGenome
	}
	_, err := h.admit(genotype.CloneGenome(genome))
	return err
}

func (h *Habitat) admit(genome model.Genome) (bool, error) {
	organism, err := NewOrganism(genome, h.newEnvironment(), h.fabricate)
	if err != nil {
		h.log.WithError(err).WithField("genome", genome.ID).Warn("skipping organism")
		return false, err
	}
	return h.population.insert(organism), nil
}

func (h *Habitat) Len() int {
	return h.population.len()
}

func (h *Habitat) Capacity() int {
	return h.capacity
}

// Generation counts completed Step calls.
func (h *Habitat) Generation() int {
	return h.generation
}

// Organisms lists the population in iteration order.
func (h *Habitat) Organisms() []*Organism {
	return h.population.snapshot()
}

// Genomes returns copies of every genome in iteration order.
func (h *Habitat) Genomes() []model.Genome {
	organisms := h.population.snapshot()
	out := make([]model.Genome, 0, len(organisms))
	for _, o := range organisms {
		out = append(out, o.Genome())
	}
	return out
}
