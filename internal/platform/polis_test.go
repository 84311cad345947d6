package platform

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"selfrep/internal/evo"
	"selfrep/internal/genotype"
	"selfrep/internal/model"
	"selfrep/internal/scape"
	"selfrep/internal/storage"
)

func quietLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestPolis(t *testing.T) (*Polis, storage.Store) {
	t.Helper()
	store := storage.NewMemoryStore()
	p := NewPolis(Config{Store: store, Logger: quietLogger()})
	require.NoError(t, p.Init(context.Background()))
	return p, store
}

// balancer pushes the cart toward the side the pole leans to.
func balancer() model.Genome {
	return model.Genome{
		ID:      "balancer",
		Inputs:  []string{"i0", "i1", "i2", "i3", "i4"},
		Outputs: []string{"o0"},
		Neurons: []model.Neuron{{ID: "o0", Activation: "identity"}},
		Synapses: []model.Synapse{
			{From: "i0", To: "o0", Weight: 0.1},
			{From: "i1", To: "o0", Weight: 0.5},
			{From: "i2", To: "o0", Weight: 10},
			{From: "i3", To: "o0", Weight: 2},
		},
	}
}

func TestRunRequiresInit(t *testing.T) {
	p := NewPolis(Config{Store: storage.NewMemoryStore(), Logger: quietLogger()})
	_, err := p.Run(context.Background(), RunConfig{ScapeName: scape.CartPoleName, Capacity: 10, Generations: 1})
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestRunValidatesConfig(t *testing.T) {
	p, _ := newTestPolis(t)
	ctx := context.Background()

	_, err := p.Run(ctx, RunConfig{ScapeName: "acrobot", Capacity: 10})
	assert.Error(t, err)

	_, err = p.Run(ctx, RunConfig{ScapeName: scape.CartPoleName, Capacity: 0})
	assert.Error(t, err)

	params := evo.DefaultParameters(3, 1)
	_, err = p.Run(ctx, RunConfig{ScapeName: scape.CartPoleName, Capacity: 10, Parameters: &params})
	assert.ErrorContains(t, err, "does not match scape")
}

func TestRunStopsAtGenerationLimitAndPersists(t *testing.T) {
	p, store := newTestPolis(t)
	ctx := context.Background()

	result, err := p.Run(ctx, RunConfig{
		RunID:       "run-limit",
		ScapeName:   scape.CartPoleName,
		Capacity:    20,
		Generations: 5,
		Seed:        7,
	})
	require.NoError(t, err)
	assert.Equal(t, "run-limit", result.RunID)
	assert.Equal(t, 5, result.Generations)
	assert.Len(t, result.Diagnostics, 5)
	if len(result.Champions) == 0 {
		assert.Equal(t, StopReasonGenerationLimit, result.StopReason)
	}
	assert.Equal(t, 1, result.Diagnostics[0].Generation)
	assert.Positive(t, result.Diagnostics[0].Seeded)
	for _, d := range result.Diagnostics {
		assert.LessOrEqual(t, d.Population, 20)
		assert.LessOrEqual(t, d.TopologyDiversity, d.Population)
	}
	assert.LessOrEqual(t, len(result.FinalPopulation), 20)

	stored, ok, err := store.GetGenerations(ctx, "run-limit")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, result.Diagnostics, stored)
	assert.Empty(t, p.ActiveRuns())
}

func TestRunIsDeterministicForSeed(t *testing.T) {
	run := func() RunResult {
		p, _ := newTestPolis(t)
		result, err := p.Run(context.Background(), RunConfig{
			RunID:       "same",
			ScapeName:   scape.MountainCarName,
			Capacity:    30,
			Generations: 8,
			Seed:        11,
		})
		require.NoError(t, err)
		return result
	}
	a, b := run(), run()
	assert.Equal(t, a.Diagnostics, b.Diagnostics)
	require.Equal(t, len(a.FinalPopulation), len(b.FinalPopulation))
	for i := range a.FinalPopulation {
		assert.Equal(t, genotype.Fingerprint(a.FinalPopulation[i]), genotype.Fingerprint(b.FinalPopulation[i]))
	}
}

func TestRunRecordsChampionFromInitialGenome(t *testing.T) {
	p, store := newTestPolis(t)
	ctx := context.Background()

	// The population starts from the hand-tuned controller instead of seeding.
	result, err := p.Run(ctx, RunConfig{
		RunID:       "run-balancer",
		ScapeName:   scape.CartPoleName,
		Capacity:    10,
		Generations: 1100,
		Seed:        3,
		Initial:     []model.Genome{balancer()},
	})
	require.NoError(t, err)
	if result.StopReason != StopReasonSolved {
		t.Skipf("balancer did not solve within the limit: %s", result.StopReason)
	}
	require.NotEmpty(t, result.Champions)
	champion := result.Champions[0]
	assert.Equal(t, "run-balancer", champion.RunID)
	assert.Equal(t, scape.CartPoleName, champion.Scape)
	assert.Greater(t, champion.Steps, 1000)
	assert.Equal(t, genotype.Fingerprint(champion.Genome), champion.Fingerprint)

	loaded, ok, err := store.GetChampion(ctx, champion.Fingerprint)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, champion.Generation, loaded.Generation)

	listed, err := store.ListChampions(ctx, "run-balancer")
	require.NoError(t, err)
	assert.Len(t, listed, len(result.Champions))
}

func TestRunCanceledContextStillPersists(t *testing.T) {
	p, store := newTestPolis(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := p.Run(ctx, RunConfig{RunID: "run-canceled", ScapeName: scape.PendulumName, Capacity: 10})
	require.NoError(t, err)
	assert.Equal(t, StopReasonCanceled, result.StopReason)
	assert.Zero(t, result.Generations)

	_, ok, err := store.GetGenerations(context.Background(), "run-canceled")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStopRunCancelsActiveRun(t *testing.T) {
	p, _ := newTestPolis(t)
	done := make(chan RunResult, 1)
	go func() {
		result, err := p.Run(context.Background(), RunConfig{
			RunID:              "forever",
			ScapeName:          scape.MountainCarName,
			Capacity:           10,
			ContinueAfterSolve: true,
		})
		assert.NoError(t, err)
		done <- result
	}()

	require.Eventually(t, func() bool { return p.StopRun("forever") }, timeout, tick)
	result := <-done
	assert.Equal(t, StopReasonCanceled, result.StopReason)
}

func TestRunWarnsWhenRunSeedOverridesParametersSeed(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	p := NewPolis(Config{Store: storage.NewMemoryStore(), Logger: logger})
	require.NoError(t, p.Init(context.Background()))
	ctx := context.Background()

	params := evo.DefaultParameters(5, 1)
	params.Seed = 99
	_, err := p.Run(ctx, RunConfig{ScapeName: scape.CartPoleName, Capacity: 5, Generations: 1, Seed: 7, Parameters: &params})
	require.NoError(t, err)

	var warned *logrus.Entry
	for _, entry := range hook.AllEntries() {
		if entry.Message == "run seed overrides parameters seed" {
			warned = entry
		}
	}
	require.NotNil(t, warned)
	assert.Equal(t, logrus.WarnLevel, warned.Level)
	assert.Equal(t, int64(99), warned.Data["parameters_seed"])
	assert.Equal(t, int64(7), warned.Data["run_seed"])

	hook.Reset()
	params.Seed = 7
	_, err = p.Run(ctx, RunConfig{ScapeName: scape.CartPoleName, Capacity: 5, Generations: 1, Seed: 7, Parameters: &params})
	require.NoError(t, err)
	for _, entry := range hook.AllEntries() {
		assert.NotEqual(t, "run seed overrides parameters seed", entry.Message)
	}
}
