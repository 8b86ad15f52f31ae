package metrics

import "github.com/san-kum/marblesim/internal/physics"

// Metric accumulates one scalar over a sequence of system snapshots taken at
// simulated time t (seconds).
type Metric interface {
	Name() string
	Observe(bodies []physics.Body, t float64)
	Value() float64
	Reset()
}

// ObserveAll feeds one snapshot to every metric.
func ObserveAll(ms []Metric, bodies []physics.Body, t float64) {
	for _, m := range ms {
		m.Observe(bodies, t)
	}
}

// Standard returns the metrics sampled during a run, *Momentum first.
func Standard(p physics.Params) []Metric {
	return []Metric{
		NewMomentum(),
		NewEnergy(p.Gravity),
		NewEnergyDrift(p.Gravity),
		NewSpread(),
		NewContainment(p.SystemRadius),
	}
}
