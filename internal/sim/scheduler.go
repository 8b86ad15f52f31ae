package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"time"

	"github.com/san-kum/marblesim/internal/compute"
	"github.com/san-kum/marblesim/internal/physics"
)

// Scheduler advances the live body slice toward wall-clock targets by
// handing snapshots to an Executor and applying the returned accelerations.
// At most one computation is ever outstanding.
//
// A Scheduler is owned by a single goroutine (the control loop); the only
// cross-goroutine traffic is the snapshot and result exchanged through the
// Executor.
type Scheduler struct {
	bodies    []physics.Body
	params    physics.Params
	exec      compute.Executor
	pool      *SnapshotPool
	logger    *log.Logger
	tick      time.Duration
	maxBehind time.Duration

	phase  Phase
	clock  time.Time
	target time.Time
	stats  Stats
}

// New takes ownership of bodies. start is the initial physics clock.
func New(bodies []physics.Body, p physics.Params, exec compute.Executor, opts Options, start time.Time) (*Scheduler, error) {
	tick := TickDuration(p.Dt)
	if err := validate(bodies, tick, opts); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &Scheduler{
		bodies:    bodies,
		params:    p,
		exec:      exec,
		pool:      NewSnapshotPool(len(bodies)),
		logger:    logger,
		tick:      tick,
		maxBehind: opts.MaxBehind,
		phase:     Idle,
		clock:     start,
		target:    start,
	}, nil
}

func validate(bodies []physics.Body, tick time.Duration, opts Options) error {
	if len(bodies) == 0 {
		return fmt.Errorf("%w: no bodies", ErrInvalidOptions)
	}
	if tick <= 0 {
		return fmt.Errorf("%w: tick must be positive, got %v", ErrInvalidOptions, tick)
	}
	if opts.MaxBehind < tick {
		return fmt.Errorf("%w: max behind %v shorter than one tick %v", ErrInvalidOptions, opts.MaxBehind, tick)
	}
	for i, b := range bodies {
		if !(b.Radius > 0) {
			return fmt.Errorf("%w: body %d has radius %g", ErrInvalidOptions, i, b.Radius)
		}
	}
	return nil
}

// TickDuration converts a tick length in seconds to a Duration, rounded to
// the nanosecond.
func TickDuration(seconds float64) time.Duration {
	return time.Duration(math.Round(seconds * float64(time.Second)))
}

// AdvanceTo requests that the physics clock catch up with target. It never
// blocks: if a computation is outstanding the call is a no-op.
//
// If the clock trails target by more than MaxBehind, the clock jumps to one
// tick before target and the skipped interval is logged.
func (s *Scheduler) AdvanceTo(target time.Time) Status {
	if lag := target.Sub(s.clock); lag > s.maxBehind {
		jumped := target.Add(-s.tick)
		dropped := jumped.Sub(s.clock)
		s.logger.Printf("physics computation far behind, dropping %dms", dropped.Milliseconds())
		s.clock = jumped
		s.stats.Anomalies++
		s.stats.Dropped += dropped
	}
	s.target = target

	if s.phase == Computing {
		s.stats.Busy++
		return StatusBusy
	}
	return s.trySubmit()
}

func (s *Scheduler) trySubmit() Status {
	if s.target.Sub(s.clock) < s.tick {
		return StatusUpToDate
	}

	snapshot := s.pool.GetAndCopy(s.bodies)
	if err := s.exec.Submit(snapshot); err != nil {
		s.pool.Put(snapshot)
		if errors.Is(err, compute.ErrBusy) {
			s.stats.Busy++
			return StatusBusy
		}
		s.logger.Printf("physics submit rejected: %v", err)
		return StatusRejected
	}

	s.phase = Computing
	s.stats.Submitted++
	return StatusSubmitted
}

// HandleResult applies a finished computation: one integrator step, one tick
// on the clock. If the clock still trails the last target, the next
// computation is submitted straight away.
//
// Calling it while Idle is a contract violation and panics.
func (s *Scheduler) HandleResult(r compute.Result) {
	if s.phase != Computing {
		panic(ErrNotComputing)
	}

	physics.Step(s.bodies, r.Accels, s.params)
	s.clock = s.clock.Add(s.tick)
	s.stats.Ticks++
	s.stats.PhysicsTime += r.Elapsed
	s.pool.Put(r.Snapshot)
	s.phase = Idle

	s.trySubmit()
}

// Poll applies a waiting result, if any, without blocking. It reports
// whether a result was applied.
func (s *Scheduler) Poll() bool {
	if s.phase != Computing {
		return false
	}
	select {
	case r := <-s.exec.Results():
		s.HandleResult(r)
		return true
	default:
		return false
	}
}

// AdvanceSync drives the scheduler until the clock is within one tick of
// target, waiting on each result in turn. An outstanding computation is left
// in flight if ctx ends first.
func (s *Scheduler) AdvanceSync(ctx context.Context, target time.Time) error {
	s.AdvanceTo(target)
	for s.phase == Computing {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r := <-s.exec.Results():
			s.HandleResult(r)
		}
	}
	return nil
}

// Bodies returns the live body slice. It is valid until the next applied
// result and must not be modified.
func (s *Scheduler) Bodies() []physics.Body { return s.bodies }

// Snapshot copies the live body slice.
func (s *Scheduler) Snapshot() []physics.Body { return physics.Clone(s.bodies) }

func (s *Scheduler) Phase() Phase           { return s.phase }
func (s *Scheduler) Clock() time.Time       { return s.clock }
func (s *Scheduler) Target() time.Time      { return s.target }
func (s *Scheduler) Tick() time.Duration    { return s.tick }
func (s *Scheduler) Stats() Stats           { return s.stats }
func (s *Scheduler) Params() physics.Params { return s.params }
