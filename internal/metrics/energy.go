package metrics

import (
	"math"

	"github.com/san-kum/marblesim/internal/physics"
)

// Kinetic returns Σ ½·m·|v|².
func Kinetic(bodies []physics.Body) float64 {
	ke := 0.0
	for _, b := range bodies {
		ke += 0.5 * b.Mass() * b.Vel.Dot(b.Vel)
	}
	return ke
}

// Potential returns the pairwise gravitational potential −G·mᵢ·mⱼ/d. Pairs at
// the same position are skipped.
func Potential(bodies []physics.Body, g float64) float64 {
	pe := 0.0
	for i := range bodies {
		mi := bodies[i].Mass()
		for j := i + 1; j < len(bodies); j++ {
			d := bodies[j].Pos.Sub(bodies[i].Pos).Len()
			if d == 0 {
				continue
			}
			pe -= g * mi * bodies[j].Mass() / d
		}
	}
	return pe
}

func TotalEnergy(bodies []physics.Body, g float64) float64 {
	return Kinetic(bodies) + Potential(bodies, g)
}

type Energy struct {
	name    string
	gravity float64
	last    float64
}

func NewEnergy(gravity float64) *Energy {
	return &Energy{name: "energy", gravity: gravity}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(bodies []physics.Body, _ float64) {
	e.last = TotalEnergy(bodies, e.gravity)
}

func (e *Energy) Value() float64 { return e.last }
func (e *Energy) Reset()         { e.last = 0 }

// EnergyDrift is the largest relative departure from the first observed
// energy. The contact damping dissipates energy, so this grows over a run;
// it is a diagnostic, not a conservation check.
type EnergyDrift struct {
	name     string
	gravity  float64
	initial  float64
	maxDrift float64
	samples  int
}

func NewEnergyDrift(gravity float64) *EnergyDrift {
	return &EnergyDrift{name: "energy_drift", gravity: gravity}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(bodies []physics.Body, _ float64) {
	energy := TotalEnergy(bodies, e.gravity)
	if e.samples == 0 {
		e.initial = energy
	}
	e.samples++

	if e.initial != 0 {
		drift := math.Abs(energy-e.initial) / math.Abs(e.initial)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 { return e.maxDrift }

func (e *EnergyDrift) Reset() {
	e.initial = 0
	e.maxDrift = 0
	e.samples = 0
}
