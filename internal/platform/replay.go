package platform

import (
	"context"
	"fmt"
	"math/rand"

	"selfrep/internal/habitat"
	"selfrep/internal/model"
	"selfrep/internal/scape"
)

type ReplayResult struct {
	Scape  string
	Steps  int
	Solved bool
	// Alive reports whether the organism was still alive when replay stopped.
	Alive bool
}

// Replay runs one genome alone in a fresh scape environment until it dies,
// maxSteps ticks pass, or ctx is canceled. Zero maxSteps uses twice the scape's
// solve length, or 10000 when the scape has none.
func Replay(ctx context.Context, genome model.Genome, scapeName string, maxSteps int, seed int64) (ReplayResult, error) {
	spec, err := scape.Lookup(scapeName)
	if err != nil {
		return ReplayResult{}, err
	}
	if maxSteps <= 0 {
		maxSteps = 2 * spec.SolveSteps
		if maxSteps == 0 {
			maxSteps = 10000
		}
	}
	if len(genome.Inputs) != spec.Inputs || len(genome.Outputs) != spec.Outputs {
		return ReplayResult{}, fmt.Errorf("genome interface %dx%d does not match scape %s", len(genome.Inputs), len(genome.Outputs), spec.Name)
	}
	organism, err := habitat.NewOrganism(genome, spec.New(rand.New(rand.NewSource(seed))), Fabricate)
	if err != nil {
		return ReplayResult{}, err
	}

	result := ReplayResult{Scape: spec.Name, Alive: true}
	for result.Steps < maxSteps {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		status := organism.Tick()
		result.Steps++
		if solver, ok := organism.Environment().(scape.Solver); ok && solver.Solved() {
			result.Solved = true
		}
		if status == habitat.Dead {
			result.Alive = false
			break
		}
	}
	return result, nil
}
