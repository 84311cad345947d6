package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"selfrep/internal/genotype"
	"selfrep/internal/model"
)

func TestMemoryStoreChampionRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Init(ctx))

	champion := testChampion("run-1", 0.5)
	require.NoError(t, store.SaveChampion(ctx, champion))

	fingerprint := genotype.Fingerprint(champion.Genome)
	loaded, ok, err := store.GetChampion(ctx, fingerprint)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, fingerprint, loaded.Fingerprint)
	assert.Equal(t, "cart-pole", loaded.Scape)
	assert.True(t, genotype.Equal(champion.Genome, loaded.Genome))

	loaded.Genome.Synapses[0].Weight = 99
	again, _, err := store.GetChampion(ctx, fingerprint)
	require.NoError(t, err)
	assert.Equal(t, 0.5, again.Genome.Synapses[0].Weight, "stored genome must not alias caller copies")

	_, ok, err = store.GetChampion(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreListChampionsFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Init(ctx))

	require.NoError(t, store.SaveChampion(ctx, testChampion("run-1", 0.1)))
	require.NoError(t, store.SaveChampion(ctx, testChampion("run-2", 0.2)))
	require.NoError(t, store.SaveChampion(ctx, testChampion("run-1", 0.3)))
	// Same genome again: replaced in place, not appended.
	resaved := testChampion("run-1", 0.1)
	resaved.Generation = 40
	require.NoError(t, store.SaveChampion(ctx, resaved))

	all, err := store.ListChampions(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 40, all[0].Generation)
	assert.Equal(t, "run-2", all[1].RunID)

	run1, err := store.ListChampions(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, run1, 2)
	assert.Equal(t, 0.3, run1[1].Genome.Synapses[0].Weight)
}

func TestMemoryStoreGenerationsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Init(ctx))

	input := []model.GenerationDiagnostics{
		{Generation: 1, Seeded: 2, Deaths: 1, Population: 1, TopologyDiversity: 1},
		{Generation: 2, Births: 1, Population: 2, TopologyDiversity: 2},
	}
	require.NoError(t, store.SaveGenerations(ctx, "run-1", input))
	input[0].Deaths = 7

	output, ok, err := store.GetGenerations(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, output, 2)
	assert.Equal(t, 1, output[0].Deaths)
	assert.Equal(t, 2, output[1].TopologyDiversity)

	_, ok, err = store.GetGenerations(ctx, "run-404")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	err := store.SaveChampion(context.Background(), testChampion("run-1", 0.5))
	assert.ErrorIs(t, err, errNotInitialized)
}
