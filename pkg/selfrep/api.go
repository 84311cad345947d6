package selfrep

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"selfrep/internal/evo"
	"selfrep/internal/genotype"
	"selfrep/internal/metrics"
	"selfrep/internal/model"
	"selfrep/internal/platform"
	"selfrep/internal/scape"
	"selfrep/internal/stats"
	"selfrep/internal/storage"
)

const (
	defaultDBPath   = "selfrep.db"
	defaultScape    = scape.CartPoleName
	defaultCapacity = 100
	// minGenerations is the generation budget floor. A generation ticks every
	// organism once, so a scape solved by surviving SolveSteps ticks needs more
	// generations than that.
	minGenerations = 500

	// indexTimeLayout is fixed width so index timestamps sort lexically.
	indexTimeLayout = "2006-01-02T15:04:05.000000000Z"
)

type Options struct {
	StoreKind string
	DBPath    string
	Logger    logrus.FieldLogger
	// Registerer receives habitat metrics. Nil disables metrics.
	Registerer prometheus.Registerer
	// ArtifactsDir receives per-run artifact directories and the run index.
	// Empty disables artifact output.
	ArtifactsDir string
}

type Client struct {
	store        storage.Store
	polis        *platform.Polis
	metrics      *metrics.Metrics
	artifactsDir string
	log          logrus.FieldLogger
}

type RunRequest struct {
	RunID       string
	Scape       string
	Capacity    int
	Generations int
	Seed        int64
	// ParametersFile is an optional YAML file of evolutionary parameters.
	// Its seed applies when Seed is zero.
	ParametersFile          string
	SeedFraction            float64
	ReproductionProbability float64
	ContinueAfterSolve      bool
	// ResumeFrom seeds the habitat with the champions of an earlier run.
	ResumeFrom string
}

type RunSummary struct {
	RunID           string
	Scape           string
	Generations     int
	StopReason      string
	Champions       []ChampionItem
	FinalPopulation int
	ArtifactsDir    string
}

type ChampionsRequest struct {
	RunID string
	Limit int
}

type ChampionItem struct {
	Fingerprint         string
	TopologyFingerprint string
	RunID               string
	Scape               string
	Generation          int
	Steps               int
	Neurons             int
	Hidden              int
	Synapses            int
	RecordedAt          time.Time
}

type GenerationsRequest struct {
	RunID string
	Limit int
}

type ReplayRequest struct {
	Fingerprint string
	MaxSteps    int
	Seed        int64
}

type ReplaySummary struct {
	Fingerprint string
	Scape       string
	Steps       int
	Solved      bool
	Alive       bool
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID        string
	Scape        string
	Capacity     int
	Seed         int64
	StopReason   string
	Generations  int
	Champions    int
	CreatedAtUTC string
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type ScapeItem struct {
	Name        string
	Description string
	Inputs      int
	Outputs     int
	SolveSteps  int
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	var m *metrics.Metrics
	if opts.Registerer != nil {
		m = metrics.New(opts.Registerer)
	}
	return &Client{store: store, metrics: m, artifactsDir: opts.ArtifactsDir, log: logger}, nil
}

func (c *Client) Close() error {
	if c.polis != nil {
		c.polis.Stop()
	}
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	_, err := c.ensurePolis(ctx)
	return err
}

// DefaultGenerations is the generation limit used when a run request leaves
// it at zero: twice the scape's solve length, and never below minGenerations.
func DefaultGenerations(spec scape.Spec) int {
	return max(minGenerations, 2*spec.SolveSteps)
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.Scape == "" {
		req.Scape = defaultScape
	}
	if req.Capacity == 0 {
		req.Capacity = defaultCapacity
	}
	if req.Generations == 0 {
		spec, err := scape.Lookup(req.Scape)
		if err != nil {
			return RunSummary{}, err
		}
		req.Generations = DefaultGenerations(spec)
	}
	if req.Generations < 0 {
		// negative means unbounded
		req.Generations = 0
	}

	p, err := c.ensurePolis(ctx)
	if err != nil {
		return RunSummary{}, err
	}

	cfg := platform.RunConfig{
		RunID:                   req.RunID,
		ScapeName:               req.Scape,
		Capacity:                req.Capacity,
		Generations:             req.Generations,
		Seed:                    req.Seed,
		SeedFraction:            req.SeedFraction,
		ReproductionProbability: req.ReproductionProbability,
		ContinueAfterSolve:      req.ContinueAfterSolve,
	}
	if req.ParametersFile != "" {
		params, err := evo.LoadParameters(req.ParametersFile)
		if err != nil {
			return RunSummary{}, err
		}
		if req.Seed == 0 {
			req.Seed = params.Seed
			cfg.Seed = params.Seed
		}
		cfg.Parameters = &params
	}
	if req.ResumeFrom != "" {
		champions, err := c.store.ListChampions(ctx, req.ResumeFrom)
		if err != nil {
			return RunSummary{}, err
		}
		if len(champions) == 0 {
			return RunSummary{}, fmt.Errorf("no champions stored for run id: %s", req.ResumeFrom)
		}
		for _, champion := range champions {
			cfg.Initial = append(cfg.Initial, champion.Genome)
		}
	}

	result, err := p.Run(ctx, cfg)
	if err != nil {
		return RunSummary{}, err
	}
	summary := RunSummary{
		RunID:           result.RunID,
		Scape:           result.Scape,
		Generations:     result.Generations,
		StopReason:      string(result.StopReason),
		FinalPopulation: len(result.FinalPopulation),
	}
	for _, champion := range result.Champions {
		summary.Champions = append(summary.Champions, toChampionItem(champion))
	}

	if c.artifactsDir != "" {
		runDir, err := c.writeArtifacts(req, result)
		if err != nil {
			return summary, fmt.Errorf("write run artifacts: %w", err)
		}
		summary.ArtifactsDir = runDir
	}
	return summary, nil
}

func (c *Client) writeArtifacts(req RunRequest, result platform.RunResult) (string, error) {
	runDir, err := stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:                   result.RunID,
			Scape:                   result.Scape,
			Capacity:                req.Capacity,
			Generations:             req.Generations,
			Seed:                    req.Seed,
			ParametersFile:          req.ParametersFile,
			SeedFraction:            req.SeedFraction,
			ReproductionProbability: req.ReproductionProbability,
			ContinueAfterSolve:      req.ContinueAfterSolve,
			ResumeFrom:              req.ResumeFrom,
		},
		Summary: stats.RunSummary{
			StopReason:      string(result.StopReason),
			GenerationsRun:  result.Generations,
			Champions:       len(result.Champions),
			FinalPopulation: len(result.FinalPopulation),
		},
		Diagnostics: result.Diagnostics,
		Champions:   result.Champions,
	})
	if err != nil {
		return "", err
	}
	err = stats.AppendRunIndex(c.artifactsDir, stats.RunIndexEntry{
		RunID:        result.RunID,
		Scape:        result.Scape,
		Capacity:     req.Capacity,
		Seed:         req.Seed,
		StopReason:   string(result.StopReason),
		Generations:  result.Generations,
		Champions:    len(result.Champions),
		CreatedAtUTC: time.Now().UTC().Format(indexTimeLayout),
	})
	if err != nil {
		return "", err
	}
	return runDir, nil
}

// Runs lists indexed runs newest first.
func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	if c.artifactsDir == "" {
		return nil, errors.New("artifacts directory is not configured")
	}
	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return nil, err
	}
	if req.Limit > 0 && len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}
	out := make([]RunItem, 0, len(entries))
	for _, entry := range entries {
		out = append(out, RunItem{
			RunID:        entry.RunID,
			Scape:        entry.Scape,
			Capacity:     entry.Capacity,
			Seed:         entry.Seed,
			StopReason:   entry.StopReason,
			Generations:  entry.Generations,
			Champions:    entry.Champions,
			CreatedAtUTC: entry.CreatedAtUTC,
		})
	}
	return out, nil
}

// Export copies a run's artifacts into OutDir. Latest selects the newest run.
func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	if req.OutDir == "" {
		return ExportSummary{}, errors.New("export requires output directory")
	}
	if req.RunID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either run id or latest, not both")
	}
	runID := req.RunID
	if req.Latest {
		runs, err := c.Runs(ctx, RunsRequest{Limit: 1})
		if err != nil {
			return ExportSummary{}, err
		}
		if len(runs) == 0 {
			return ExportSummary{}, errors.New("no runs available")
		}
		runID = runs[0].RunID
	}
	if runID == "" {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	if c.artifactsDir == "" {
		return ExportSummary{}, errors.New("artifacts directory is not configured")
	}
	if _, ok, err := stats.ReadRunConfig(c.artifactsDir, runID); err != nil {
		return ExportSummary{}, err
	} else if !ok {
		return ExportSummary{}, fmt.Errorf("run artifacts not found: %s", runID)
	}
	dir, err := stats.ExportRunArtifacts(c.artifactsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: dir}, nil
}

func (c *Client) Champions(ctx context.Context, req ChampionsRequest) ([]ChampionItem, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	if _, err := c.ensurePolis(ctx); err != nil {
		return nil, err
	}
	champions, err := c.store.ListChampions(ctx, req.RunID)
	if err != nil {
		return nil, err
	}
	if req.Limit > 0 && len(champions) > req.Limit {
		champions = champions[:req.Limit]
	}
	out := make([]ChampionItem, 0, len(champions))
	for _, champion := range champions {
		out = append(out, toChampionItem(champion))
	}
	return out, nil
}

func (c *Client) Champion(ctx context.Context, fingerprint string) (model.Champion, error) {
	if fingerprint == "" {
		return model.Champion{}, errors.New("fingerprint is required")
	}
	if _, err := c.ensurePolis(ctx); err != nil {
		return model.Champion{}, err
	}
	champion, ok, err := c.store.GetChampion(ctx, fingerprint)
	if err != nil {
		return model.Champion{}, err
	}
	if !ok {
		return model.Champion{}, fmt.Errorf("champion not found: %s", fingerprint)
	}
	return champion, nil
}

func (c *Client) Generations(ctx context.Context, req GenerationsRequest) ([]model.GenerationDiagnostics, error) {
	if req.RunID == "" {
		return nil, errors.New("generations requires run id")
	}
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	if _, err := c.ensurePolis(ctx); err != nil {
		return nil, err
	}
	diagnostics, ok, err := c.store.GetGenerations(ctx, req.RunID)
	if err != nil {
		return nil, err
	}
	if !ok && c.artifactsDir != "" {
		// memory stores forget earlier processes; run artifacts do not.
		diagnostics, ok, err = stats.ReadGenerationSeries(c.artifactsDir, req.RunID)
		if err != nil {
			return nil, err
		}
	}
	if !ok {
		return nil, fmt.Errorf("generations not found for run id: %s", req.RunID)
	}
	if req.Limit > 0 && len(diagnostics) > req.Limit {
		diagnostics = diagnostics[:req.Limit]
	}
	out := make([]model.GenerationDiagnostics, len(diagnostics))
	copy(out, diagnostics)
	return out, nil
}

func (c *Client) Replay(ctx context.Context, req ReplayRequest) (ReplaySummary, error) {
	champion, err := c.Champion(ctx, req.Fingerprint)
	if err != nil {
		return ReplaySummary{}, err
	}
	result, err := platform.Replay(ctx, champion.Genome, champion.Scape, req.MaxSteps, req.Seed)
	if err != nil {
		return ReplaySummary{}, err
	}
	return ReplaySummary{
		Fingerprint: champion.Fingerprint,
		Scape:       result.Scape,
		Steps:       result.Steps,
		Solved:      result.Solved,
		Alive:       result.Alive,
	}, nil
}

// Scapes lists the built-in tasks in name order.
func (c *Client) Scapes() []ScapeItem {
	names := scape.Names()
	out := make([]ScapeItem, 0, len(names))
	for _, name := range names {
		spec, err := scape.Lookup(name)
		if err != nil {
			continue
		}
		out = append(out, ScapeItem{
			Name:        spec.Name,
			Description: spec.Description,
			Inputs:      spec.Inputs,
			Outputs:     spec.Outputs,
			SolveSteps:  spec.SolveSteps,
		})
	}
	return out
}

func (c *Client) ensurePolis(ctx context.Context) (*platform.Polis, error) {
	if c.polis != nil {
		return c.polis, nil
	}
	p := platform.NewPolis(platform.Config{Store: c.store, Metrics: c.metrics, Logger: c.log})
	if err := p.Init(ctx); err != nil {
		return nil, err
	}
	c.polis = p
	return c.polis, nil
}

func toChampionItem(champion model.Champion) ChampionItem {
	signature := genotype.ComputeGenomeSignature(champion.Genome)
	return ChampionItem{
		Fingerprint:         champion.Fingerprint,
		TopologyFingerprint: signature.TopologyFingerprint,
		RunID:               champion.RunID,
		Scape:               champion.Scape,
		Generation:          champion.Generation,
		Steps:               champion.Steps,
		Neurons:             signature.Summary.TotalNeurons,
		Hidden:              signature.Summary.TotalHidden,
		Synapses:            signature.Summary.TotalSynapses,
		RecordedAt:          champion.RecordedAt,
	}
}
