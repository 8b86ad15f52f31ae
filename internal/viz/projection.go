package viz

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Projection maps camera-space spheres (+Z forward, +Y down) onto a dot
// grid with a pinhole camera.
type Projection struct {
	FOV  float64 // vertical field of view, radians
	Near float64
}

func DefaultProjection() Projection {
	return Projection{FOV: math.Pi / 3, Near: 0.01}
}

// Disc is a projected sphere in dot coordinates.
type Disc struct {
	X, Y, R float64
	Depth   float64
}

func (p Projection) focal(h int) float64 {
	return float64(h) / 2 / math.Tan(p.FOV/2)
}

// Project returns the sphere's silhouette. ok is false when the center is not
// in front of the near plane.
func (p Projection) Project(center mgl64.Vec3, radius float64, w, h int) (Disc, bool) {
	z := center[2]
	if z <= p.Near {
		return Disc{}, false
	}
	f := p.focal(h)
	r := f * radius / z
	if z > radius {
		r = f * radius / math.Sqrt(z*z-radius*radius)
	}
	return Disc{
		X:     float64(w)/2 + f*center[0]/z,
		Y:     float64(h)/2 + f*center[1]/z,
		R:     r,
		Depth: z,
	}, true
}

// Cull reports whether a sphere is certainly invisible: wholly behind the
// near plane, or wholly in front of it and projecting off the grid.
func (p Projection) Cull(center mgl64.Vec3, radius float64, w, h int) bool {
	z := center[2]
	if z+radius <= p.Near {
		return true
	}
	if z-radius <= p.Near {
		return false
	}
	d, _ := p.Project(center, radius, w, h)
	return d.X+d.R < 0 || d.X-d.R >= float64(w) || d.Y+d.R < 0 || d.Y-d.R >= float64(h)
}
