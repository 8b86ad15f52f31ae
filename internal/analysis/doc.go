// Package analysis characterizes the marble dynamics.
//
// [Divergence] estimates the largest Lyapunov exponent by integrating a
// reference system alongside a copy with one body nudged, renormalizing the
// phase-space separation at a fixed interval:
//
//	res, err := analysis.Divergence(bodies, params, backend, analysis.DefaultDivergence())
//	if res.Exponent > 0 {
//	    // nearby states separate exponentially
//	}
package analysis
