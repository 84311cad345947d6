package scape

import (
	"math"
	"math/rand"
	"testing"

	"selfrep/internal/habitat"
)

type evalFunc func(input []float64) []float64

func (f evalFunc) Evaluate(input []float64) []float64 { return f(input) }

func constant(value float64) habitat.Evaluator {
	return evalFunc(func([]float64) []float64 { return []float64{value} })
}

func TestRegistryListsClassicControlTasks(t *testing.T) {
	names := Names()
	want := []string{CartPoleName, MountainCarName, PendulumName}
	if len(names) != len(want) {
		t.Fatalf("unexpected scapes: %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("unexpected scapes: %v", names)
		}
	}

	spec, err := Lookup(" Cart_Pole ")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if spec.Inputs != 5 || spec.Outputs != 1 {
		t.Fatalf("unexpected cart-pole spec: %+v", spec)
	}
	if _, err := Lookup("acrobot"); err == nil {
		t.Fatal("expected unknown scape error")
	}
}

func TestEvaluatorSeesObservationWithBias(t *testing.T) {
	for _, name := range Names() {
		spec, err := Lookup(name)
		if err != nil {
			t.Fatalf("lookup %s: %v", name, err)
		}
		env := spec.Factory(1)()
		var seen []float64
		env.Step(evalFunc(func(input []float64) []float64 {
			seen = input
			return []float64{0}
		}))
		if len(seen) != spec.Inputs {
			t.Fatalf("%s: expected %d inputs, got=%v", name, spec.Inputs, seen)
		}
		if seen[len(seen)-1] != 1.0 {
			t.Fatalf("%s: expected trailing bias input, got=%v", name, seen)
		}
	}
}

func TestFactoryIsReproducible(t *testing.T) {
	spec, err := Lookup(CartPoleName)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	a, b := spec.Factory(42), spec.Factory(42)
	for i := 0; i < 3; i++ {
		left := a().(*CartPole).Observation()
		right := b().(*CartPole).Observation()
		for j := range left {
			if left[j] != right[j] {
				t.Fatalf("environment %d diverged: %v vs %v", i, left, right)
			}
		}
	}
	first := spec.Factory(42)().(*CartPole)
	if first.Observation()[0] == spec.Factory(43)().(*CartPole).Observation()[0] {
		t.Fatal("expected different seeds to produce different starts")
	}
}

func survive(env habitat.Environment, evaluator habitat.Evaluator, limit int) int {
	for step := 1; step <= limit; step++ {
		if env.Step(evaluator) == habitat.Dead {
			return step
		}
	}
	return limit
}

func TestCartPoleConstantForceFalls(t *testing.T) {
	env := NewCartPole(rand.New(rand.NewSource(1)))
	steps := survive(env, constant(1), 1000)
	if steps >= 100 {
		t.Fatalf("expected constant push to fail quickly, survived %d", steps)
	}
}

func TestCartPoleFeedbackOutlivesConstantForce(t *testing.T) {
	feedback := evalFunc(func(input []float64) []float64 {
		// push toward the side the pole is falling to
		return []float64{input[2] + 0.5*input[3]}
	})
	constantSteps := survive(NewCartPole(rand.New(rand.NewSource(3))), constant(-1), 1000)
	feedbackSteps := survive(NewCartPole(rand.New(rand.NewSource(3))), feedback, 1000)
	if feedbackSteps <= constantSteps {
		t.Fatalf("expected feedback controller to outlive constant force: feedback=%d constant=%d", feedbackSteps, constantSteps)
	}
}

func TestCartPoleReportsSolved(t *testing.T) {
	env := &CartPole{steps: cartPoleSolveSteps}
	if env.Solved() {
		t.Fatal("expected unsolved before step")
	}
	if status := env.Step(constant(1)); status != habitat.Alive {
		t.Fatalf("expected alive, got=%s", status)
	}
	if !env.Solved() || env.Steps() != cartPoleSolveSteps+1 {
		t.Fatalf("expected solved after %d steps, got solved=%v steps=%d", cartPoleSolveSteps+1, env.Solved(), env.Steps())
	}
}

func TestMountainCarReachesGoal(t *testing.T) {
	env := &MountainCar{position: 0.44, velocity: 0.05}
	if status := env.Step(constant(1)); status != habitat.Alive {
		t.Fatalf("expected alive at goal, got=%s", status)
	}
	if !env.Solved() {
		t.Fatal("expected goal to solve the task")
	}
}

func TestMountainCarStallDies(t *testing.T) {
	env := &MountainCar{position: -math.Pi / 6}
	if status := env.Step(constant(0)); status != habitat.Dead {
		t.Fatalf("expected stalled car to die, got=%s", status)
	}
	if env.Solved() {
		t.Fatal("expected stalled car unsolved")
	}
}

func TestMountainCarClampsForce(t *testing.T) {
	a := &MountainCar{position: -0.5}
	b := &MountainCar{position: -0.5}
	a.Step(constant(1))
	b.Step(constant(50))
	if a.position != b.position || a.velocity != b.velocity {
		t.Fatalf("expected force clamp to [-1,1]: %+v vs %+v", a, b)
	}
}

func TestPendulumBalancedUprightSolves(t *testing.T) {
	env := &Pendulum{steps: pendulumSolveSteps}
	// output 0.5 maps to zero torque, and an upright pendulum at rest stays put.
	if status := env.Step(constant(0.5)); status != habitat.Alive {
		t.Fatalf("expected alive, got=%s", status)
	}
	if !env.Solved() {
		t.Fatal("expected upright pendulum to solve")
	}
}

func TestPendulumHangingDiesAfterWarmup(t *testing.T) {
	env := &Pendulum{theta: math.Pi}
	if status := env.Step(constant(0.5)); status != habitat.Alive {
		t.Fatalf("expected warmup grace, got=%s", status)
	}
	env.steps = pendulumWarmup
	if status := env.Step(constant(0.5)); status != habitat.Dead {
		t.Fatalf("expected hanging pendulum to die after warmup, got=%s", status)
	}
}
