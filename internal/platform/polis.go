package platform

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"selfrep/internal/evo"
	"selfrep/internal/genotype"
	"selfrep/internal/habitat"
	"selfrep/internal/metrics"
	"selfrep/internal/model"
	"selfrep/internal/nn"
	"selfrep/internal/scape"
	"selfrep/internal/storage"
)

type Config struct {
	Store   storage.Store
	Metrics *metrics.Metrics
	Logger  logrus.FieldLogger
}

type StopReason string

const (
	StopReasonSolved          StopReason = "solved"
	StopReasonGenerationLimit StopReason = "generation_limit"
	StopReasonCanceled        StopReason = "canceled"
)

var (
	ErrNotInitialized = errors.New("polis is not initialized")
	ErrRunExists      = errors.New("run already active")
)

type RunConfig struct {
	RunID     string
	ScapeName string
	Capacity  int
	// Generations bounds the number of habitat steps. Zero runs until a
	// champion appears or the context is canceled.
	Generations int
	Seed        int64
	// Parameters overrides the scape defaults. Its structure must match the
	// scape interface; its seed is replaced by Seed.
	Parameters              *evo.Parameters
	SeedFraction            float64
	ReproductionProbability float64
	// ContinueAfterSolve keeps stepping after the first champion until the
	// generation limit or cancellation.
	ContinueAfterSolve bool
	// Initial genomes are inserted before the first step, for example to
	// resume from stored champions.
	Initial []model.Genome
}

type RunResult struct {
	RunID           string
	Scape           string
	Generations     int
	StopReason      StopReason
	Champions       []model.Champion
	Diagnostics     []model.GenerationDiagnostics
	FinalPopulation []model.Genome
}

// Polis owns the store and tracks active runs so they can be stopped as a
// group.
type Polis struct {
	store   storage.Store
	metrics *metrics.Metrics
	log     logrus.FieldLogger

	mu      sync.Mutex
	started bool
	runs    map[string]context.CancelFunc
}

func NewPolis(cfg Config) *Polis {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Polis{
		store:   cfg.Store,
		metrics: cfg.Metrics,
		log:     logger,
		runs:    make(map[string]context.CancelFunc),
	}
}

func (p *Polis) Init(ctx context.Context) error {
	if p.store == nil {
		return fmt.Errorf("store is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}
	if err := p.store.Init(ctx); err != nil {
		return err
	}
	p.started = true
	return nil
}

func (p *Polis) Started() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

func (p *Polis) Store() storage.Store {
	return p.store
}

// Stop cancels every active run. Runs persist what they gathered before
// returning.
func (p *Polis) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, cancel := range p.runs {
		cancel()
	}
	p.runs = make(map[string]context.CancelFunc)
	p.started = false
}

// StopRun cancels one active run and reports whether it was found.
func (p *Polis) StopRun(runID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	cancel, ok := p.runs[runID]
	if ok {
		cancel()
		delete(p.runs, runID)
	}
	return ok
}

// ActiveRuns lists the ids of runs currently stepping.
func (p *Polis) ActiveRuns() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.runs))
	for id := range p.runs {
		out = append(out, id)
	}
	return out
}

// Run builds a habitat for the scape and alternates Step and Reproduce until
// a champion appears, the generation limit is reached, or ctx is canceled.
// Champions and per-generation diagnostics are persisted in every case.
func (p *Polis) Run(ctx context.Context, cfg RunConfig) (RunResult, error) {
	if !p.Started() {
		return RunResult{}, ErrNotInitialized
	}
	spec, err := scape.Lookup(cfg.ScapeName)
	if err != nil {
		return RunResult{}, err
	}
	if cfg.Capacity <= 0 {
		return RunResult{}, fmt.Errorf("%w: got %d", habitat.ErrInvalidCapacity, cfg.Capacity)
	}
	if cfg.Generations < 0 {
		return RunResult{}, fmt.Errorf("generations must be >= 0, got %d", cfg.Generations)
	}

	params, err := runParameters(spec, cfg)
	if err != nil {
		return RunResult{}, err
	}
	if cfg.Parameters != nil && cfg.Parameters.Seed != cfg.Seed {
		p.log.WithFields(logrus.Fields{
			"parameters_seed": cfg.Parameters.Seed,
			"run_seed":        cfg.Seed,
		}).Warn("run seed overrides parameters seed")
	}
	genomeContext, err := evo.NewContext(params)
	if err != nil {
		return RunResult{}, err
	}

	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := p.registerRun(runID, cancel); err != nil {
		return RunResult{}, err
	}
	defer p.unregisterRun(runID)

	log := p.log.WithFields(logrus.Fields{"run_id": runID, "scape": spec.Name})
	tracker := newChampionTracker(runID, spec.Name)

	h, err := habitat.New(habitat.Config{
		Capacity:                cfg.Capacity,
		NewEnvironment:          spec.Factory(cfg.Seed),
		Context:                 genomeContext,
		Fabricate:               Fabricate,
		SeedFraction:            cfg.SeedFraction,
		ReproductionProbability: cfg.ReproductionProbability,
		Logger:                  log,
		TickHook: func(o *habitat.Organism, status habitat.Status) {
			if status == habitat.Dead {
				log.WithField("fingerprint", o.Key()).Debugf("organism lived for %d steps", o.Ticks())
				if p.metrics != nil {
					p.metrics.ObserveDeath(o.Ticks())
				}
				return
			}
			if champion, ok := tracker.observe(o); ok {
				log.WithFields(logrus.Fields{
					"fingerprint": champion.Fingerprint,
					"steps":       champion.Steps,
				}).Info("scape solved")
				if p.metrics != nil {
					p.metrics.IncrementChampions()
				}
			}
		},
	})
	if err != nil {
		return RunResult{}, err
	}
	for _, genome := range cfg.Initial {
		if err := h.Insert(genome); err != nil {
			log.WithError(err).WithField("genome", genome.ID).Warn("skipping initial genome")
		}
	}

	result := RunResult{RunID: runID, Scape: spec.Name}
	log.WithFields(logrus.Fields{
		"capacity":    cfg.Capacity,
		"generations": cfg.Generations,
		"seed":        cfg.Seed,
	}).Info("run started")

	for {
		if runCtx.Err() != nil {
			result.StopReason = StopReasonCanceled
			break
		}

		tracker.generation = h.Generation() + 1
		step := h.Step()
		diagnostics := model.GenerationDiagnostics{
			Generation:          step.Generation,
			Seeded:              step.Seeded,
			Deaths:              step.Deaths,
			FabricationFailures: step.FabricationFailures,
			Population:          step.Population,
		}
		if p.metrics != nil {
			p.metrics.ObserveStep(step)
		}

		solved := len(tracker.champions) > 0 && !cfg.ContinueAfterSolve
		if !solved {
			reproduce := h.Reproduce()
			diagnostics.Births = reproduce.Born
			diagnostics.FabricationFailures += reproduce.FabricationFailures
			diagnostics.Population = reproduce.Population
			if p.metrics != nil {
				p.metrics.ObserveReproduce(reproduce)
			}
		}
		diagnostics.TopologyDiversity = topologyDiversity(h.Genomes())
		result.Diagnostics = append(result.Diagnostics, diagnostics)

		log.WithFields(logrus.Fields{
			"generation": diagnostics.Generation,
			"population": diagnostics.Population,
			"births":     diagnostics.Births,
			"deaths":     diagnostics.Deaths,
		}).Debug("generation complete")

		if solved {
			result.StopReason = StopReasonSolved
			break
		}
		if cfg.Generations > 0 && h.Generation() >= cfg.Generations {
			result.StopReason = StopReasonGenerationLimit
			break
		}
	}

	result.Generations = h.Generation()
	result.Champions = tracker.champions
	result.FinalPopulation = h.Genomes()
	if result.StopReason == StopReasonGenerationLimit && len(result.Champions) > 0 {
		result.StopReason = StopReasonSolved
	}

	// Persist even when ctx was canceled so an interrupted run keeps its history.
	persistCtx := context.WithoutCancel(ctx)
	for _, champion := range result.Champions {
		if err := p.store.SaveChampion(persistCtx, champion); err != nil {
			return result, fmt.Errorf("save champion %s: %w", champion.Fingerprint, err)
		}
	}
	if err := p.store.SaveGenerations(persistCtx, runID, result.Diagnostics); err != nil {
		return result, fmt.Errorf("save generations: %w", err)
	}

	log.WithFields(logrus.Fields{
		"generations": result.Generations,
		"champions":   len(result.Champions),
		"reason":      result.StopReason,
	}).Info("run finished")
	return result, nil
}

// Fabricate adapts nn fabrication to the habitat's evaluator contract.
func Fabricate(genome model.Genome) (habitat.Evaluator, error) {
	network, err := nn.Fabricate(genome)
	if err != nil {
		return nil, err
	}
	return network, nil
}

func runParameters(spec scape.Spec, cfg RunConfig) (evo.Parameters, error) {
	params := evo.DefaultParameters(spec.Inputs, spec.Outputs)
	if cfg.Parameters != nil {
		params = *cfg.Parameters
		if params.Structure.Inputs != spec.Inputs || params.Structure.Outputs != spec.Outputs {
			return evo.Parameters{}, fmt.Errorf(
				"structure %dx%d does not match scape %s (%d inputs, %d outputs)",
				params.Structure.Inputs, params.Structure.Outputs, spec.Name, spec.Inputs, spec.Outputs,
			)
		}
	}
	params.Seed = cfg.Seed
	return params, nil
}

func topologyDiversity(genomes []model.Genome) int {
	seen := make(map[string]struct{}, len(genomes))
	for _, genome := range genomes {
		seen[genotype.TopologyFingerprint(genome)] = struct{}{}
	}
	return len(seen)
}

// championTracker records each organism at most once, the first time its
// environment reports the scape solved.
type championTracker struct {
	runID      string
	scape      string
	generation int
	seen       map[string]struct{}
	champions  []model.Champion
}

func newChampionTracker(runID, scapeName string) *championTracker {
	return &championTracker{
		runID: runID,
		scape: scapeName,
		seen:  make(map[string]struct{}),
	}
}

func (t *championTracker) observe(o *habitat.Organism) (model.Champion, bool) {
	solver, ok := o.Environment().(scape.Solver)
	if !ok || !solver.Solved() {
		return model.Champion{}, false
	}
	if _, exists := t.seen[o.Key()]; exists {
		return model.Champion{}, false
	}
	t.seen[o.Key()] = struct{}{}

	genome := o.Genome()
	genome.VersionedRecord = storage.Stamp()
	champion := model.Champion{
		VersionedRecord: storage.Stamp(),
		RunID:           t.runID,
		Scape:           t.scape,
		Generation:      t.generation,
		Steps:           solver.Steps(),
		Fingerprint:     o.Key(),
		Genome:          genome,
		RecordedAt:      time.Now().UTC(),
	}
	t.champions = append(t.champions, champion)
	return champion, true
}

func (p *Polis) registerRun(runID string, cancel context.CancelFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.runs[runID]; exists {
		return fmt.Errorf("%w: %s", ErrRunExists, runID)
	}
	p.runs[runID] = cancel
	return nil
}

func (p *Polis) unregisterRun(runID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.runs, runID)
}
