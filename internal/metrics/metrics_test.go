package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"selfrep/internal/habitat"
)

func TestObserveReports(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveStep(habitat.StepReport{Generation: 1, Seeded: 3, Deaths: 2, FabricationFailures: 1, Population: 1})
	m.ObserveReproduce(habitat.ReproduceReport{Born: 4, Duplicates: 1, MutationFailures: 2, Population: 5})
	m.ObserveDeath(7)
	m.IncrementChampions()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Generations))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Seeded))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Deaths))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Births))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Duplicates))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FabricationFailures))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.MutationFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Champions))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.Population))

	count, err := testutil.GatherAndCount(reg, "selfrep_organism_lifetime_ticks")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNewRegistersOncePerRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
	assert.NotPanics(t, func() { New(prometheus.NewRegistry()) })
}
