package metrics

import (
	"math"

	"github.com/san-kum/marblesim/internal/physics"
)

// Momentum tracks |Σ m·v|. The integrator removes net momentum every tick,
// so Value, the largest magnitude seen after the first observation, should
// stay near zero. The first observation is the starting state, which keeps
// whatever momentum the cloud was sampled with.
type Momentum struct {
	name string
	last float64
	max  float64
	seen int
}

func NewMomentum() *Momentum {
	return &Momentum{name: "momentum"}
}

func (m *Momentum) Name() string { return m.name }

func (m *Momentum) Observe(bodies []physics.Body, _ float64) {
	m.last = physics.Momentum(bodies).Len()
	if m.seen > 0 {
		m.max = math.Max(m.max, m.last)
	}
	m.seen++
}

func (m *Momentum) Value() float64 { return m.max }
func (m *Momentum) Last() float64  { return m.last }

func (m *Momentum) Reset() {
	m.last = 0
	m.max = 0
	m.seen = 0
}
