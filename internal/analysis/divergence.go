package analysis

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/marblesim/internal/compute"
	"github.com/san-kum/marblesim/internal/physics"
)

var ErrInvalidInput = errors.New("invalid divergence input")

type DivergenceOptions struct {
	Perturbation float64 // initial offset applied to body 0 along +X
	Ticks        int
	Interval     int // ticks between renormalizations
}

func DefaultDivergence() DivergenceOptions {
	return DivergenceOptions{Perturbation: 1e-8, Ticks: 2000, Interval: 10}
}

type DivergenceResult struct {
	// Exponent is the mean log growth rate of the separation, per second.
	Exponent float64
	// Growth holds ln(d/d0) for each renormalization interval.
	Growth []float64
}

// Divergence integrates bodies and a perturbed copy for opts.Ticks steps.
// The input slice is not modified.
func Divergence(bodies []physics.Body, p physics.Params, backend compute.Backend, opts DivergenceOptions) (DivergenceResult, error) {
	switch {
	case len(bodies) == 0:
		return DivergenceResult{}, fmt.Errorf("%w: no bodies", ErrInvalidInput)
	case !(opts.Perturbation > 0):
		return DivergenceResult{}, fmt.Errorf("%w: perturbation must be positive", ErrInvalidInput)
	case opts.Ticks <= 0 || opts.Interval <= 0:
		return DivergenceResult{}, fmt.Errorf("%w: ticks and interval must be positive", ErrInvalidInput)
	}

	ref := physics.Clone(bodies)
	pert := physics.Clone(bodies)
	pert[0].Pos[0] += opts.Perturbation
	d0 := separation(ref, pert)

	res := DivergenceResult{Growth: make([]float64, 0, opts.Ticks/opts.Interval)}
	sumLog := 0.0
	for tick := 1; tick <= opts.Ticks; tick++ {
		physics.Step(ref, backend.Accelerations(ref, p), p)
		physics.Step(pert, backend.Accelerations(pert, p), p)

		if tick%opts.Interval != 0 {
			continue
		}
		d := separation(ref, pert)
		if d == 0 {
			// The trajectories merged; restart from the original offset.
			pert = physics.Clone(ref)
			pert[0].Pos[0] += opts.Perturbation
			res.Growth = append(res.Growth, math.Inf(-1))
			continue
		}
		g := math.Log(d / d0)
		res.Growth = append(res.Growth, g)
		sumLog += g
		rescale(ref, pert, d0/d)
	}

	intervals := 0
	for _, g := range res.Growth {
		if !math.IsInf(g, -1) {
			intervals++
		}
	}
	if intervals > 0 {
		res.Exponent = sumLog / (float64(intervals*opts.Interval) * p.Dt)
	}
	return res, nil
}

// separation is the Euclidean distance in the joint position-velocity space.
func separation(a, b []physics.Body) float64 {
	sum := 0.0
	for i := range a {
		dp := b[i].Pos.Sub(a[i].Pos)
		dv := b[i].Vel.Sub(a[i].Vel)
		sum += dp.Dot(dp) + dv.Dot(dv)
	}
	return math.Sqrt(sum)
}

func rescale(ref, pert []physics.Body, k float64) {
	for i := range pert {
		pert[i].Pos = ref[i].Pos.Add(pert[i].Pos.Sub(ref[i].Pos).Mul(k))
		pert[i].Vel = ref[i].Vel.Add(pert[i].Vel.Sub(ref[i].Vel).Mul(k))
	}
}
