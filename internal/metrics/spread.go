package metrics

import (
	"math"

	"github.com/san-kum/marblesim/internal/physics"
)

// RMSRadius is the root-mean-square distance of the bodies from their
// mass-weighted centroid.
func RMSRadius(bodies []physics.Body) float64 {
	if len(bodies) == 0 {
		return 0
	}
	c := physics.Centroid(bodies)
	sum := 0.0
	for _, b := range bodies {
		d := b.Pos.Sub(c)
		sum += d.Dot(d)
	}
	return math.Sqrt(sum / float64(len(bodies)))
}

type Spread struct {
	name string
	last float64
}

func NewSpread() *Spread {
	return &Spread{name: "spread"}
}

func (s *Spread) Name() string { return s.name }

func (s *Spread) Observe(bodies []physics.Body, _ float64) {
	s.last = RMSRadius(bodies)
}

func (s *Spread) Value() float64 { return s.last }
func (s *Spread) Reset()         { s.last = 0 }

// Containment is the fraction of snapshots in which every body was inside
// the containment sphere.
type Containment struct {
	name       string
	radius     float64
	violations int
	samples    int
}

func NewContainment(radius float64) *Containment {
	return &Containment{name: "containment", radius: radius}
}

func (c *Containment) Name() string { return c.name }

func (c *Containment) Observe(bodies []physics.Body, _ float64) {
	c.samples++
	for _, b := range bodies {
		if b.Pos.Len() > c.radius {
			c.violations++
			break
		}
	}
}

func (c *Containment) Value() float64 {
	if c.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(c.violations)/float64(c.samples)
}

func (c *Containment) Reset() {
	c.violations = 0
	c.samples = 0
}
