package scape

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"selfrep/internal/habitat"
)

// Solver is implemented by environments that can report a task-specific
// success condition.
type Solver interface {
	Solved() bool
	Steps() int
}

// Spec describes one task: its interface dimensions and how to build fresh
// environment instances.
type Spec struct {
	Name        string
	Description string
	// Inputs includes the trailing bias input.
	Inputs int
	// Outputs is the number of evaluator outputs the task reads.
	Outputs int
	// SolveSteps is the survival length that counts as solving the task.
	SolveSteps int
	New        func(rng *rand.Rand) habitat.Environment
}

// Factory returns an environment factory whose n-th environment is seeded
// with seed+n, so a run is reproducible for a fixed seed.
func (s Spec) Factory(seed int64) habitat.EnvironmentFactory {
	var created int64
	return func() habitat.Environment {
		created++
		return s.New(rand.New(rand.NewSource(seed + created)))
	}
}

var registry = map[string]Spec{}

func register(spec Spec) {
	if _, exists := registry[spec.Name]; exists {
		panic(fmt.Sprintf("scape %s already registered", spec.Name))
	}
	registry[spec.Name] = spec
}

func Lookup(name string) (Spec, error) {
	spec, ok := registry[Normalize(name)]
	if !ok {
		return Spec{}, fmt.Errorf("unknown scape %q; valid: %s", name, strings.Join(Names(), ", "))
	}
	return spec, nil
}

// Names returns registered scape names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Normalize maps user spellings such as "Cart_Pole" onto registry names.
func Normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.ReplaceAll(name, "_", "-")
}

func withBias(state []float64) []float64 {
	input := make([]float64, 0, len(state)+1)
	input = append(input, state...)
	return append(input, 1.0)
}

func firstOutput(out []float64) float64 {
	if len(out) == 0 {
		return 0
	}
	return out[0]
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
