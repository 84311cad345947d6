package evo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"selfrep/internal/genotype"
	"selfrep/internal/nn"
)

func TestNewContextRejectsInvalidParameters(t *testing.T) {
	params := DefaultParameters(3, 1)
	params.Mutations = append(params.Mutations, MutationRule{Kind: "teleport", Chance: 0.5})
	if _, err := NewContext(params); err == nil {
		t.Fatal("expected unknown mutation kind error")
	}

	params = DefaultParameters(3, 1)
	params.Activations = []string{"missing"}
	if _, err := NewContext(params); !errors.Is(err, nn.ErrActivationNotFound) {
		t.Fatalf("expected ErrActivationNotFound, got=%v", err)
	}

	params = DefaultParameters(0, 1)
	if _, err := NewContext(params); !errors.Is(err, genotype.ErrNoInputs) {
		t.Fatalf("expected ErrNoInputs, got=%v", err)
	}
}

func TestContextInitializationPaths(t *testing.T) {
	ctx, err := NewContext(DefaultParameters(4, 1))
	if err != nil {
		t.Fatalf("new context: %v", err)
	}

	blank := ctx.UninitializedGenome()
	if len(blank.Synapses) != 0 {
		t.Fatalf("expected no synapses, got=%d", len(blank.Synapses))
	}
	ctx.InitWithContext(&blank)
	if len(blank.Synapses) != 4 {
		t.Fatalf("expected every input connected, got=%d", len(blank.Synapses))
	}

	first := ctx.InitializedGenome()
	second := ctx.InitializedGenome()
	if first.ID == second.ID {
		t.Fatal("expected distinct genome ids")
	}
	if !genotype.Equal(first, second) {
		t.Fatal("expected canonical genomes to be content-equal")
	}
}

func TestContextMutateChangesCloneOnly(t *testing.T) {
	ctx, err := NewContext(DefaultParameters(3, 1))
	if err != nil {
		t.Fatalf("new context: %v", err)
	}
	parent := ctx.InitializedGenome()
	child := genotype.CloneGenome(parent)
	if err := ctx.Mutate(&child); err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if genotype.Equal(parent, child) {
		t.Fatal("expected mutated child to differ from parent")
	}
	if parent.ID == child.ID {
		t.Fatal("expected mutated child to receive a fresh id")
	}
	if _, err := nn.Fabricate(child); err != nil {
		t.Fatalf("expected mutated child to fabricate: %v", err)
	}
}

func TestContextMutateForcesRuleWhenNoneFire(t *testing.T) {
	params := DefaultParameters(2, 1)
	params.Mutations = []MutationRule{
		{Kind: MutationRemoveNode, Chance: 0},
		{Kind: MutationChangeWeights, Chance: 0, PercentPerturbed: 0.5},
	}
	ctx, err := NewContext(params)
	if err != nil {
		t.Fatalf("new context: %v", err)
	}
	parent := ctx.InitializedGenome()
	child := genotype.CloneGenome(parent)
	if err := ctx.Mutate(&child); err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if genotype.Equal(parent, child) {
		t.Fatal("expected forced mutation to change the genome")
	}
}

func TestContextMutateReportsNoChoice(t *testing.T) {
	params := DefaultParameters(2, 1)
	params.Mutations = []MutationRule{{Kind: MutationRemoveNode, Chance: 1}}
	ctx, err := NewContext(params)
	if err != nil {
		t.Fatalf("new context: %v", err)
	}
	g := ctx.InitializedGenome()
	if err := ctx.Mutate(&g); !errors.Is(err, ErrNoMutationChoice) {
		t.Fatalf("expected ErrNoMutationChoice, got=%v", err)
	}
}

func TestContextIsDeterministicForSeed(t *testing.T) {
	run := func() []string {
		ctx, err := NewContext(DefaultParameters(3, 1))
		if err != nil {
			t.Fatalf("new context: %v", err)
		}
		g := ctx.UninitializedGenome()
		ctx.InitWithContext(&g)
		fingerprints := []string{genotype.Fingerprint(g)}
		for i := 0; i < 20; i++ {
			if err := ctx.Mutate(&g); err != nil {
				t.Fatalf("mutate %d: %v", i, err)
			}
			fingerprints = append(fingerprints, genotype.Fingerprint(g))
		}
		return fingerprints
	}
	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("fingerprints diverged at step %d", i)
		}
	}
}

func TestLoadParametersStrict(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "params.yaml")
	if err := os.WriteFile(good, []byte(`
seed: 7
structure:
  inputs: 5
  outputs: 1
  percent_connected_inputs: 1.0
  outputs_activation: tanh
  weight_std_dev: 0.1
  weight_cap: 1.0
activations: [tanh, relu]
mutations:
  - kind: change_weights
    chance: 1.0
    percent_perturbed: 0.5
  - kind: add_node
    chance: 0.05
`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	params, err := LoadParameters(good)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if params.Seed != 7 || params.Structure.Inputs != 5 || len(params.Mutations) != 2 {
		t.Fatalf("unexpected parameters: %+v", params)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("seed: 1\nstructur:\n  inputs: 2\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadParameters(bad); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}
