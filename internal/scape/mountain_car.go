package scape

import (
	"math"
	"math/rand"

	"selfrep/internal/habitat"
)

const MountainCarName = "mountain-car"

const (
	mountainCarMinPosition  = -1.2
	mountainCarMaxPosition  = 0.6
	mountainCarMaxSpeed     = 0.07
	mountainCarGoalPosition = 0.45
	mountainCarPower        = 0.0015
	mountainCarStallDelta   = 0.0005
)

func init() {
	register(Spec{
		Name:        MountainCarName,
		Description: "drive an underpowered car up a hill with continuous force",
		Inputs:      3,
		Outputs:     1,
		New: func(rng *rand.Rand) habitat.Environment {
			return NewMountainCar(rng)
		},
	})
}

// MountainCar is the continuous mountain car task. The evaluator sees
// [position, velocity, 1] and its first output, clamped to [-1, 1], is the
// applied force. A car that stops making progress dies; reaching the goal
// solves the task.
type MountainCar struct {
	position, velocity float64
	steps              int
	solved             bool
}

func NewMountainCar(rng *rand.Rand) *MountainCar {
	return &MountainCar{position: -0.6 + rng.Float64()*0.2}
}

func (m *MountainCar) Observation() []float64 {
	return []float64{m.position, m.velocity}
}

func (m *MountainCar) Step(evaluator habitat.Evaluator) habitat.Status {
	force := clamp(firstOutput(evaluator.Evaluate(withBias(m.Observation()))), -1, 1)

	previous := m.position
	m.velocity += force*mountainCarPower - 0.0025*math.Cos(3*m.position)
	m.velocity = clamp(m.velocity, -mountainCarMaxSpeed, mountainCarMaxSpeed)
	m.position = clamp(m.position+m.velocity, mountainCarMinPosition, mountainCarMaxPosition)
	if m.position == mountainCarMinPosition && m.velocity < 0 {
		m.velocity = 0
	}
	m.steps++

	if m.position >= mountainCarGoalPosition && m.velocity >= 0 {
		m.solved = true
		return habitat.Alive
	}
	return habitat.StatusFromDone(math.Abs(previous-m.position) < mountainCarStallDelta)
}

func (m *MountainCar) Solved() bool { return m.solved }

func (m *MountainCar) Steps() int { return m.steps }
