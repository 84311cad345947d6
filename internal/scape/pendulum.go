package scape

import (
	"math"
	"math/rand"

	"selfrep/internal/habitat"
)

const (
	PendulumName       = "pendulum"
	pendulumSolveSteps = 300
)

const (
	pendulumMaxSpeed  = 8.0
	pendulumMaxTorque = 2.0
	pendulumDt        = 0.05
	pendulumGravity   = 10.0
	pendulumMass      = 1.0
	pendulumLength    = 1.0
	// pendulumWarmup ticks are granted to swing up before the upright band is
	// enforced.
	pendulumWarmup = 100
)

func init() {
	register(Spec{
		Name:        PendulumName,
		Description: "swing a pendulum upright and keep it there",
		Inputs:      4,
		Outputs:     1,
		SolveSteps:  pendulumSolveSteps,
		New: func(rng *rand.Rand) habitat.Environment {
			return NewPendulum(rng)
		},
	})
}

// Pendulum is the torque-limited inverted pendulum. The evaluator sees
// [cos theta, sin theta, theta_dot, 1]; its first output o maps to torque
// 4*o-2. After the warmup the pendulum dies once it falls below horizontal.
type Pendulum struct {
	theta, thetaDot float64
	steps           int
	solved          bool
}

func NewPendulum(rng *rand.Rand) *Pendulum {
	return &Pendulum{
		theta:    rng.Float64()*2*math.Pi - math.Pi,
		thetaDot: rng.Float64()*2 - 1,
	}
}

func (p *Pendulum) Observation() []float64 {
	return []float64{math.Cos(p.theta), math.Sin(p.theta), p.thetaDot}
}

func (p *Pendulum) Step(evaluator habitat.Evaluator) habitat.Status {
	torque := clamp(firstOutput(evaluator.Evaluate(withBias(p.Observation())))*4-2, -pendulumMaxTorque, pendulumMaxTorque)

	p.thetaDot += (3*pendulumGravity/(2*pendulumLength)*math.Sin(p.theta) +
		3.0/(pendulumMass*pendulumLength*pendulumLength)*torque) * pendulumDt
	p.thetaDot = clamp(p.thetaDot, -pendulumMaxSpeed, pendulumMaxSpeed)
	p.theta += p.thetaDot * pendulumDt
	p.steps++

	done := p.steps > pendulumWarmup && math.Cos(p.theta) < 0
	if !done && p.steps > pendulumSolveSteps {
		p.solved = true
	}
	return habitat.StatusFromDone(done)
}

func (p *Pendulum) Solved() bool { return p.solved }

func (p *Pendulum) Steps() int { return p.steps }
