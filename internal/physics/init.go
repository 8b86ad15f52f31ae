package physics

import (
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"
)

// InitParams shapes the random starting cloud.
type InitParams struct {
	Spread      float64 // std-dev of each position coordinate
	Spin        float64 // scale of the pos × noise swirl velocity
	RadiusScale float64
	RadiusMin   float64 // floor added to the |normal| radius term, keeps radius > 0
}

func DefaultInit() InitParams {
	return InitParams{
		Spread:      1.0,
		Spin:        0.1,
		RadiusScale: 0.03,
		RadiusMin:   0.2,
	}
}

// NewBodies samples n bodies: normally distributed positions, a swirl
// velocity perpendicular to each position, and small positive radii.
func NewBodies(n int, ip InitParams, rng *rand.Rand) []Body {
	normal := func() float64 { return rng.NormFloat64() }
	bodies := make([]Body, n)
	for i := range bodies {
		pos := mgl64.Vec3{normal(), normal(), normal()}.Mul(ip.Spread)
		noise := mgl64.Vec3{normal(), normal(), normal()}
		bodies[i] = Body{
			Pos:    pos,
			Vel:    pos.Cross(noise).Mul(ip.Spin),
			Radius: ip.RadiusScale * (0.8*math.Abs(normal()) + ip.RadiusMin),
			Color:  rng.Uint32(),
		}
	}
	return bodies
}

// NewRand returns a PCG-backed generator for a seed.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}
