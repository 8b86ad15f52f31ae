package physics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Step advances bodies by one tick of p.Dt using accels, which must be
// index-aligned with bodies. A length mismatch is a caller bug and panics.
//
// Velocities are corrected before integration: bodies outside the system
// radius that are still moving outward are slowed, and the mass-weighted mean
// velocity is subtracted from everyone so total momentum stays at zero.
func Step(bodies []Body, accels []mgl64.Vec3, p Params) {
	if len(bodies) != len(accels) {
		panic(fmt.Errorf("%w: %d bodies, %d accelerations", ErrLengthMismatch, len(bodies), len(accels)))
	}
	if len(bodies) == 0 {
		return
	}

	vels := CorrectedVelocities(bodies, p)

	dt := p.Dt
	halfDt2 := 0.5 * dt * dt
	for i := range bodies {
		v, a := vels[i], accels[i]
		bodies[i].Pos = bodies[i].Pos.Add(v.Mul(dt)).Add(a.Mul(halfDt2))
		bodies[i].Vel = v.Add(a.Mul(dt))
	}
}

// CorrectedVelocities returns each body's velocity after soft containment and
// momentum cancellation, without touching the bodies.
func CorrectedVelocities(bodies []Body, p Params) []mgl64.Vec3 {
	vels := make([]mgl64.Vec3, len(bodies))
	var momentum mgl64.Vec3
	totalMass := 0.0
	r2 := p.SystemRadius * p.SystemRadius

	for i, b := range bodies {
		v := b.Vel
		if b.Pos.LenSqr() > r2 && v.Dot(b.Pos) > 0 {
			v = v.Mul(p.ContainmentDamping)
		}
		vels[i] = v
		m := b.Mass()
		momentum = momentum.Add(v.Mul(m))
		totalMass += m
	}

	drift := momentum.Mul(1 / totalMass)
	for i := range vels {
		vels[i] = vels[i].Sub(drift)
	}
	return vels
}
