package compute

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/marblesim/internal/physics"
)

var (
	// ErrBusy is returned by Submit while a previous snapshot has not yet
	// produced its result.
	ErrBusy = errors.New("compute: computation already in flight")

	// ErrNotStarted is returned by Submit before Start or after Close.
	ErrNotStarted = errors.New("compute: worker not running")
)

// Result is one evaluated snapshot. Snapshot is handed back so the caller
// can recycle the buffer.
type Result struct {
	Accels   []mgl64.Vec3
	Elapsed  time.Duration
	Snapshot []physics.Body
}

// Executor submits a body snapshot and delivers its accelerations
// asynchronously on Results. The snapshot belongs to the executor until the
// matching Result is received.
type Executor interface {
	Submit(snapshot []physics.Body) error
	Results() <-chan Result
}

type Worker struct {
	backend Backend
	params  physics.Params
	logger  *log.Logger

	jobs    chan []physics.Body
	results chan Result
	busy    atomic.Bool
	running atomic.Bool
	jobsRun atomic.Int64

	cancel context.CancelFunc
	done   chan struct{}
}

func NewWorker(backend Backend, p physics.Params, logger *log.Logger) *Worker {
	if logger == nil {
		logger = log.Default()
	}
	return &Worker{
		backend: backend,
		params:  p,
		logger:  logger,
		jobs:    make(chan []physics.Body, 1),
		results: make(chan Result, 1),
	}
}

// Start launches the worker goroutine. It runs until ctx is done or Close is
// called. A computation already underway always finishes first.
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.running.Store(true)

	go func() {
		defer close(w.done)
		defer w.running.Store(false)

		for {
			select {
			case <-ctx.Done():
				return
			case snapshot := <-w.jobs:
				res := w.run(snapshot)
				w.jobsRun.Add(1)
				// Clear before delivering so a receiver may resubmit at once.
				w.busy.Store(false)
				select {
				case w.results <- res:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
}

func (w *Worker) run(snapshot []physics.Body) Result {
	before := time.Now()
	accels := w.backend.Accelerations(snapshot, w.params)
	return Result{
		Accels:   accels,
		Elapsed:  time.Since(before),
		Snapshot: snapshot,
	}
}

func (w *Worker) Submit(snapshot []physics.Body) error {
	if !w.running.Load() {
		return ErrNotStarted
	}
	if !w.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	w.jobs <- snapshot
	return nil
}

func (w *Worker) Results() <-chan Result { return w.results }

func (w *Worker) Backend() Backend { return w.backend }

// Close stops the goroutine and releases the backend.
func (w *Worker) Close() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
	w.backend.Cleanup()
	w.logger.Printf("compute: %s worker stopped after %d jobs", w.backend.Name(), w.jobsRun.Load())
	w.cancel = nil
}
