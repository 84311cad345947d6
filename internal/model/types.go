package model

import "time"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Genome is a feed-forward network description. Inputs are plain signal
// slots; every computing node (hidden or output) is a Neuron.
type Genome struct {
	VersionedRecord
	ID       string    `json:"id"`
	Inputs   []string  `json:"inputs"`
	Outputs  []string  `json:"outputs"`
	Neurons  []Neuron  `json:"neurons"`
	Synapses []Synapse `json:"synapses"`
}

type Neuron struct {
	ID         string  `json:"id"`
	Activation string  `json:"activation"`
	Bias       float64 `json:"bias"`
}

type Synapse struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Weight float64 `json:"weight"`
}

// Champion is a genome that met a scape's success condition.
type Champion struct {
	VersionedRecord
	RunID       string    `json:"run_id"`
	Scape       string    `json:"scape"`
	Generation  int       `json:"generation"`
	Steps       int       `json:"steps"`
	Fingerprint string    `json:"fingerprint"`
	Genome      Genome    `json:"genome"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// GenerationDiagnostics summarizes one Step+Reproduce cycle of a habitat.
type GenerationDiagnostics struct {
	Generation          int `json:"generation"`
	Seeded              int `json:"seeded"`
	Deaths              int `json:"deaths"`
	Births              int `json:"births"`
	FabricationFailures int `json:"fabrication_failures"`
	Population          int `json:"population"`
	TopologyDiversity   int `json:"topology_diversity"`
}
