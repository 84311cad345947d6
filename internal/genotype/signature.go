package genotype

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"

	"selfrep/internal/model"
)

type TopologySummary struct {
	TotalInputs            int            `json:"total_inputs"`
	TotalOutputs           int            `json:"total_outputs"`
	TotalNeurons           int            `json:"total_neurons"`
	TotalHidden            int            `json:"total_hidden"`
	TotalSynapses          int            `json:"total_synapses"`
	ActivationDistribution map[string]int `json:"activation_distribution"`
}

type GenomeSignature struct {
	Fingerprint         string          `json:"fingerprint"`
	TopologyFingerprint string          `json:"topology_fingerprint"`
	Summary             TopologySummary `json:"summary"`
}

// Fingerprint hashes the full evolvable content of a genome: interface slots,
// neurons with activation and bias, and synapses with exact weights. Two
// genomes share a fingerprint iff their content is equal.
func Fingerprint(g model.Genome) string {
	return digest(contentParts(g, true))
}

// TopologyFingerprint hashes structure only, ignoring weights and biases.
func TopologyFingerprint(g model.Genome) string {
	return digest(contentParts(g, false))
}

func ComputeGenomeSignature(g model.Genome) GenomeSignature {
	actDist := make(map[string]int)
	for _, n := range g.Neurons {
		actDist[n.Activation]++
	}
	return GenomeSignature{
		Fingerprint:         Fingerprint(g),
		TopologyFingerprint: TopologyFingerprint(g),
		Summary: TopologySummary{
			TotalInputs:            len(g.Inputs),
			TotalOutputs:           len(g.Outputs),
			TotalNeurons:           len(g.Neurons),
			TotalHidden:            len(HiddenIDs(g)),
			TotalSynapses:          len(g.Synapses),
			ActivationDistribution: actDist,
		},
	}
}

func contentParts(g model.Genome, withParams bool) []string {
	parts := make([]string, 0, 2+len(g.Neurons)+len(g.Synapses))
	parts = append(parts, "in="+strings.Join(g.Inputs, ","))
	parts = append(parts, "out="+strings.Join(g.Outputs, ","))

	neurons := make([]string, 0, len(g.Neurons))
	for _, n := range g.Neurons {
		if withParams {
			neurons = append(neurons, fmt.Sprintf("n:%s:%s:%x", n.ID, n.Activation, math.Float64bits(n.Bias)))
			continue
		}
		neurons = append(neurons, fmt.Sprintf("n:%s:%s", n.ID, n.Activation))
	}
	sort.Strings(neurons)

	synapses := make([]string, 0, len(g.Synapses))
	for _, s := range g.Synapses {
		if withParams {
			synapses = append(synapses, fmt.Sprintf("s:%s>%s:%x", s.From, s.To, math.Float64bits(s.Weight)))
			continue
		}
		synapses = append(synapses, fmt.Sprintf("s:%s>%s", s.From, s.To))
	}
	sort.Strings(synapses)

	parts = append(parts, neurons...)
	return append(parts, synapses...)
}

func digest(parts []string) string {
	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
