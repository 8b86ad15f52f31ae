package sim

import (
	"context"
	"sync"

	"github.com/san-kum/marblesim/internal/physics"
)

// Ensemble steps several independently seeded body clouds side by side,
// each synchronously on its own goroutine. It bypasses the Scheduler and is
// meant for offline comparison across seeds.
type Ensemble struct {
	params    physics.Params
	init      physics.InitParams
	numBodies int
	numRuns   int
	seedStart int64
}

type EnsembleResult struct {
	Seed   int64
	Ticks  int
	Bodies []physics.Body
}

func NewEnsemble(p physics.Params, init physics.InitParams, numBodies, numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{params: p, init: init, numBodies: numBodies, numRuns: numRuns, seedStart: seedStart}
}

func (e *Ensemble) Run(ctx context.Context, ticks int) ([]EnsembleResult, error) {
	results := make([]EnsembleResult, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			seed := e.seedStart + int64(idx)
			bodies := physics.NewBodies(e.numBodies, e.init, physics.NewRand(seed))
			results[idx] = EnsembleResult{Seed: seed, Bodies: bodies}

			for t := 0; t < ticks; t++ {
				select {
				case <-ctx.Done():
					errs[idx] = ctx.Err()
					return
				default:
				}
				physics.Step(bodies, physics.Accelerations(bodies, e.params), e.params)
				results[idx].Ticks++
			}
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}

	return results, nil
}
