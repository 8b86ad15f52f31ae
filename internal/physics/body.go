package physics

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Body is a single marble. Radius doubles as the mass proxy via Mass.
type Body struct {
	Pos    mgl64.Vec3 `json:"pos"`
	Vel    mgl64.Vec3 `json:"vel"`
	Radius float64    `json:"radius"`
	Color  uint32     `json:"color"`
}

// Mass returns radius cubed.
func (b Body) Mass() float64 {
	return b.Radius * b.Radius * b.Radius
}

// Clone copies a body slice into a freshly allocated one.
func Clone(bodies []Body) []Body {
	c := make([]Body, len(bodies))
	copy(c, bodies)
	return c
}

// TotalMass sums radius cubed over all bodies.
func TotalMass(bodies []Body) float64 {
	total := 0.0
	for _, b := range bodies {
		total += b.Mass()
	}
	return total
}

// Momentum returns the mass-weighted sum of velocities.
func Momentum(bodies []Body) mgl64.Vec3 {
	var p mgl64.Vec3
	for _, b := range bodies {
		p = p.Add(b.Vel.Mul(b.Mass()))
	}
	return p
}

// Centroid returns the mass-weighted mean position.
func Centroid(bodies []Body) mgl64.Vec3 {
	var c mgl64.Vec3
	total := 0.0
	for _, b := range bodies {
		m := b.Mass()
		c = c.Add(b.Pos.Mul(m))
		total += m
	}
	if total == 0 {
		return mgl64.Vec3{}
	}
	return c.Mul(1 / total)
}

// CheckFinite returns an ErrUnstable-wrapped error naming the first body
// with a NaN or infinite position or velocity.
func CheckFinite(bodies []Body) error {
	for i, b := range bodies {
		for _, c := range [6]float64{b.Pos[0], b.Pos[1], b.Pos[2], b.Vel[0], b.Vel[1], b.Vel[2]} {
			if math.IsNaN(c) || math.IsInf(c, 0) {
				return fmt.Errorf("%w: body %d", ErrUnstable, i)
			}
		}
	}
	return nil
}
