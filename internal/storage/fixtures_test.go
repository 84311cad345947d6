package storage

import (
	"time"

	"selfrep/internal/model"
)

func testGenome(weight float64) model.Genome {
	return model.Genome{
		VersionedRecord: Stamp(),
		ID:              "g1",
		Inputs:          []string{"i0", "i1"},
		Outputs:         []string{"o0"},
		Neurons:         []model.Neuron{{ID: "o0", Activation: "tanh"}},
		Synapses: []model.Synapse{
			{From: "i0", To: "o0", Weight: weight},
			{From: "i1", To: "o0", Weight: -weight},
		},
	}
}

func testChampion(runID string, weight float64) model.Champion {
	return model.Champion{
		VersionedRecord: Stamp(),
		RunID:           runID,
		Scape:           "cart-pole",
		Generation:      12,
		Steps:           1001,
		Genome:          testGenome(weight),
		RecordedAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}
