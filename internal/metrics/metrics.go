package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"selfrep/internal/habitat"
)

// Metrics exposes habitat lifecycle counters for one process.
type Metrics struct {
	Generations         prometheus.Counter
	Seeded              prometheus.Counter
	Births              prometheus.Counter
	Deaths              prometheus.Counter
	Duplicates          prometheus.Counter
	FabricationFailures prometheus.Counter
	MutationFailures    prometheus.Counter
	Champions           prometheus.Counter
	Population          prometheus.Gauge
	Lifetime            prometheus.Histogram
}

// New registers every metric on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Generations: factory.NewCounter(prometheus.CounterOpts{
			Name: "selfrep_generations_total",
			Help: "Total number of habitat steps completed",
		}),
		Seeded: factory.NewCounter(prometheus.CounterOpts{
			Name: "selfrep_organisms_seeded_total",
			Help: "Total number of organisms seeded into an empty habitat",
		}),
		Births: factory.NewCounter(prometheus.CounterOpts{
			Name: "selfrep_organisms_born_total",
			Help: "Total number of offspring admitted to the habitat",
		}),
		Deaths: factory.NewCounter(prometheus.CounterOpts{
			Name: "selfrep_organisms_died_total",
			Help: "Total number of organisms removed after a Dead tick",
		}),
		Duplicates: factory.NewCounter(prometheus.CounterOpts{
			Name: "selfrep_offspring_duplicates_total",
			Help: "Total number of offspring coalesced with an equal genome",
		}),
		FabricationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "selfrep_fabrication_failures_total",
			Help: "Total number of genomes skipped because fabrication failed",
		}),
		MutationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "selfrep_mutation_failures_total",
			Help: "Total number of reproduction attempts whose mutation failed",
		}),
		Champions: factory.NewCounter(prometheus.CounterOpts{
			Name: "selfrep_champions_total",
			Help: "Total number of organisms that solved their scape",
		}),
		Population: factory.NewGauge(prometheus.GaugeOpts{
			Name: "selfrep_population",
			Help: "Current number of organisms in the habitat",
		}),
		Lifetime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "selfrep_organism_lifetime_ticks",
			Help:    "Ticks an organism survived before dying",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
}

func (m *Metrics) ObserveStep(report habitat.StepReport) {
	m.Generations.Inc()
	m.Seeded.Add(float64(report.Seeded))
	m.Deaths.Add(float64(report.Deaths))
	m.FabricationFailures.Add(float64(report.FabricationFailures))
	m.Population.Set(float64(report.Population))
}

func (m *Metrics) ObserveReproduce(report habitat.ReproduceReport) {
	m.Births.Add(float64(report.Born))
	m.Duplicates.Add(float64(report.Duplicates))
	m.FabricationFailures.Add(float64(report.FabricationFailures))
	m.MutationFailures.Add(float64(report.MutationFailures))
	m.Population.Set(float64(report.Population))
}

// ObserveDeath records the lifetime of an organism on its Dead tick.
func (m *Metrics) ObserveDeath(ticks int) {
	m.Lifetime.Observe(float64(ticks))
}

func (m *Metrics) IncrementChampions() {
	m.Champions.Inc()
}
