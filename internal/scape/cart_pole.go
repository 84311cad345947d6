package scape

import (
	"math"
	"math/rand"

	"selfrep/internal/habitat"
)

const (
	CartPoleName       = "cart-pole"
	cartPoleSolveSteps = 1000
)

func init() {
	register(Spec{
		Name:        CartPoleName,
		Description: "balance a pole on a cart with bang-bang force",
		Inputs:      5,
		Outputs:     1,
		SolveSteps:  cartPoleSolveSteps,
		New: func(rng *rand.Rand) habitat.Environment {
			return NewCartPole(rng)
		},
	})
}

// CartPole is the classic cart-pole balancing task. The evaluator sees
// [x, x_dot, theta, theta_dot, 1] and pushes right when its first output is
// non-negative, left otherwise.
type CartPole struct {
	x, xDot, theta, thetaDot float64
	steps                    int
	solved                   bool
}

func NewCartPole(rng *rand.Rand) *CartPole {
	return &CartPole{
		x:        rng.Float64()*0.1 - 0.05,
		xDot:     rng.Float64()*0.1 - 0.05,
		theta:    rng.Float64()*0.1 - 0.05,
		thetaDot: rng.Float64()*0.1 - 0.05,
	}
}

func (c *CartPole) Observation() []float64 {
	return []float64{c.x, c.xDot, c.theta, c.thetaDot}
}

func (c *CartPole) Step(evaluator habitat.Evaluator) habitat.Status {
	force := -cartPoleForceMag
	if firstOutput(evaluator.Evaluate(withBias(c.Observation()))) >= 0 {
		force = cartPoleForceMag
	}
	c.x, c.xDot, c.theta, c.thetaDot = cartPoleDynamics(c.x, c.xDot, c.theta, c.thetaDot, force)
	c.steps++

	done := c.x < -cartPoleXThreshold || c.x > cartPoleXThreshold ||
		c.theta < -cartPoleThetaThreshold || c.theta > cartPoleThetaThreshold
	if !done && c.steps > cartPoleSolveSteps {
		c.solved = true
	}
	return habitat.StatusFromDone(done)
}

func (c *CartPole) Solved() bool { return c.solved }

func (c *CartPole) Steps() int { return c.steps }

const (
	cartPoleGravity        = 9.8
	cartPoleMassCart       = 1.0
	cartPoleMassPole       = 0.1
	cartPoleTotalMass      = cartPoleMassCart + cartPoleMassPole
	cartPoleHalfLength     = 0.5
	cartPolePoleMassLength = cartPoleMassPole * cartPoleHalfLength
	cartPoleForceMag       = 10.0
	cartPoleTau            = 0.02
	cartPoleXThreshold     = 2.4
	cartPoleThetaThreshold = 12 * 2 * math.Pi / 360
)

// cartPoleDynamics advances the state by one explicit Euler step.
func cartPoleDynamics(x, xDot, theta, thetaDot, force float64) (float64, float64, float64, float64) {
	cos := math.Cos(theta)
	sin := math.Sin(theta)
	temp := (force + cartPolePoleMassLength*thetaDot*thetaDot*sin) / cartPoleTotalMass
	thetaAcc := (cartPoleGravity*sin - cos*temp) /
		(cartPoleHalfLength * (4.0/3.0 - cartPoleMassPole*cos*cos/cartPoleTotalMass))
	xAcc := temp - cartPolePoleMassLength*thetaAcc*cos/cartPoleTotalMass

	x += cartPoleTau * xDot
	xDot += cartPoleTau * xAcc
	theta += cartPoleTau * thetaDot
	thetaDot += cartPoleTau * thetaAcc
	return x, xDot, theta, thetaDot
}
