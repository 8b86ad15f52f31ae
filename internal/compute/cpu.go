package compute

import (
	"runtime"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/marblesim/internal/physics"
)

// Below this many bodies goroutine fan-out costs more than it saves.
const parallelThreshold = 16

type CPUBackend struct {
	workers int
}

func NewCPUBackend(workers int) *CPUBackend {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &CPUBackend{
		workers: workers,
	}
}

func (c *CPUBackend) Name() string { return "cpu" }
func (c *CPUBackend) Cleanup()     {}

// Workers is the number of goroutines a field evaluation fans out to.
func (c *CPUBackend) Workers() int { return c.workers }

func (c *CPUBackend) Accelerations(bodies []physics.Body, p physics.Params) []mgl64.Vec3 {
	n := len(bodies)
	accels := make([]mgl64.Vec3, n)

	if n < parallelThreshold || c.workers == 1 {
		physics.AccelerationsRange(accels, bodies, p, 0, n)
		return accels
	}

	c.accelParallel(accels, bodies, p)
	return accels
}

func (c *CPUBackend) accelParallel(dst []mgl64.Vec3, bodies []physics.Body, p physics.Params) {
	n := len(bodies)
	workers := c.workers
	if workers > n {
		workers = n
	}

	var wg sync.WaitGroup
	chunkSize := (n + workers - 1) / workers

	for w := 0; w < workers; w++ {
		start := w * chunkSize
		if start >= n {
			break
		}
		end := start + chunkSize
		if end > n {
			end = n
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			physics.AccelerationsRange(dst, bodies, p, start, end)
		}(start, end)
	}

	wg.Wait()
}
