// Package physics implements the marble N-body model: spherical bodies that
// attract each other gravitationally and push apart through a damped spring
// when they overlap.
//
// The package is split along the two halves of a physics tick:
//
//   - [Accelerations] / [AccelerationOf]: the acceleration field, a pure
//     function of a read-only body snapshot
//   - [Step]: the integrator, which corrects velocities (soft containment
//     and momentum cancellation) and advances positions in place
//
// Mass is not stored; a body's radius cubed stands in for it everywhere.
//
// # Example
//
//	p := physics.DefaultParams()
//	bodies := physics.NewBodies(256, physics.DefaultInit(), rng)
//	accels := physics.Accelerations(bodies, p)
//	physics.Step(bodies, accels, p)
//
// # Thread Safety
//
// [Accelerations] only reads its input and may be evaluated for different
// body indices concurrently. [Step] mutates the slice and must run on the
// goroutine that owns it.
package physics
