package genotype

import (
	"errors"
	"math/rand"
	"testing"

	"selfrep/internal/model"
)

func TestCreateWeightRespectsCap(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	s := Structure{WeightStdDev: 10, WeightCap: 0.5}
	for i := 0; i < 100; i++ {
		if w := CreateWeight(rng, s); w > 0.5 || w < -0.5 {
			t.Fatalf("weight %f escaped cap", w)
		}
	}
}

func TestCapWeightWithoutLimit(t *testing.T) {
	if got := CapWeight(42, 0); got != 42 {
		t.Fatalf("expected uncapped weight, got=%f", got)
	}
	if got := CapWeight(-3, 2); got != -2 {
		t.Fatalf("expected -2, got=%f", got)
	}
}

func TestPerturbWeightIsDeterministic(t *testing.T) {
	s := DefaultStructure(2)
	a := PerturbWeight(rand.New(rand.NewSource(5)), s, 0.3)
	b := PerturbWeight(rand.New(rand.NewSource(5)), s, 0.3)
	if a != b {
		t.Fatalf("expected equal perturbations, got %f vs %f", a, b)
	}
}

func TestValidateRejectsBrokenGenomesMinimal(t *testing.T) {
	base := model.Genome{
		Inputs:   []string{"i0"},
		Outputs:  []string{"o0"},
		Neurons:  []model.Neuron{{ID: "o0", Activation: "tanh"}},
		Synapses: []model.Synapse{{From: "i0", To: "o0", Weight: 1}},
	}
	if err := Validate(base); err != nil {
		t.Fatalf("validate: %v", err)
	}

	dangling := CloneGenome(base)
	dangling.Synapses = append(dangling.Synapses, model.Synapse{From: "h9", To: "o0"})
	if err := Validate(dangling); !errors.Is(err, ErrDanglingSynapse) {
		t.Fatalf("expected ErrDanglingSynapse, got=%v", err)
	}

	intoInput := CloneGenome(base)
	intoInput.Synapses = append(intoInput.Synapses, model.Synapse{From: "o0", To: "i0"})
	if err := Validate(intoInput); !errors.Is(err, ErrInputTarget) {
		t.Fatalf("expected ErrInputTarget, got=%v", err)
	}

	duplicate := CloneGenome(base)
	duplicate.Neurons = append(duplicate.Neurons, model.Neuron{ID: "i0"})
	if err := Validate(duplicate); !errors.Is(err, ErrDuplicateNode) {
		t.Fatalf("expected ErrDuplicateNode, got=%v", err)
	}
}

func TestRandomElementRequiresValues(t *testing.T) {
	if _, err := RandomElement[string](rand.New(rand.NewSource(1)), nil); err == nil {
		t.Fatal("expected error for empty values")
	}
}
