package physics

import "github.com/go-gl/mathgl/mgl64"

// AccelerationOf returns the acceleration acting on bodies[i] from every other
// body: a spring push for each overlapping neighbour plus gravity.
//
// Pairs with bit-identical positions are skipped. That removes the self term,
// and it also means two distinct bodies that land on exactly the same point
// never interact; an epsilon test would change the dynamics, so the exact
// comparison is kept.
func AccelerationOf(i int, bodies []Body, p Params) mgl64.Vec3 {
	self := bodies[i]
	selfMass := self.Mass()
	approach := p.Dt * (1 + p.Damping) / 2

	var acc mgl64.Vec3
	for j := range bodies {
		other := &bodies[j]
		if other.Pos == self.Pos {
			continue
		}
		relPos := other.Pos.Sub(self.Pos)
		distance := relPos.Len()
		dir := relPos.Mul(1 / distance)
		relVel := other.Vel.Sub(self.Vel).Dot(dir)

		overlap := self.Radius + p.Gap + other.Radius - distance - relVel*approach
		if overlap > 0 {
			acc = acc.Add(dir.Mul(-p.Stiffness * overlap / selfMass))
		}
		acc = acc.Add(dir.Mul(p.Gravity * other.Mass() / (distance * distance)))
	}
	return acc
}

// Accelerations evaluates AccelerationOf for every body, in index order.
func Accelerations(bodies []Body, p Params) []mgl64.Vec3 {
	accels := make([]mgl64.Vec3, len(bodies))
	AccelerationsRange(accels, bodies, p, 0, len(bodies))
	return accels
}

// AccelerationsRange fills dst[start:end]. Disjoint ranges can be filled from
// separate goroutines against the same snapshot.
func AccelerationsRange(dst []mgl64.Vec3, bodies []Body, p Params, start, end int) {
	for i := start; i < end; i++ {
		dst[i] = AccelerationOf(i, bodies, p)
	}
}
