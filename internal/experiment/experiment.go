// Package experiment assembles a configured simulation: bodies, compute
// backend, background worker and scheduler. It drives headless runs and
// hands the same pieces to the terminal viewer.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/san-kum/marblesim/internal/compute"
	"github.com/san-kum/marblesim/internal/config"
	"github.com/san-kum/marblesim/internal/metrics"
	"github.com/san-kum/marblesim/internal/physics"
	"github.com/san-kum/marblesim/internal/sim"
)

var ErrNotSetup = errors.New("experiment not setup")

type Experiment struct {
	cfg    *config.Config
	logger *log.Logger

	bodies []physics.Body
	worker *compute.Worker
	sched  *sim.Scheduler
	cancel context.CancelFunc
}

// New samples the initial bodies from the config seed. Use WithBodies to
// start from a saved snapshot instead.
func New(cfg *config.Config, logger *log.Logger) *Experiment {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	bodies := physics.NewBodies(cfg.Bodies, cfg.InitParams(), physics.NewRand(cfg.Seed))
	return &Experiment{cfg: cfg, logger: logger, bodies: bodies}
}

func (e *Experiment) WithBodies(bodies []physics.Body) *Experiment {
	e.bodies = physics.Clone(bodies)
	return e
}

// Setup starts the worker and builds the scheduler with its clock at start.
func (e *Experiment) Setup(ctx context.Context, start time.Time) error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	backend, err := compute.NewBackend(e.cfg.Backend, e.cfg.Workers)
	if err != nil {
		return err
	}

	e.worker = compute.NewWorker(backend, e.cfg.Params(), e.logger)
	sched, err := sim.New(e.bodies, e.cfg.Params(), e.worker, sim.Options{
		MaxBehind: e.cfg.MaxBehind,
		Logger:    e.logger,
	}, start)
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	e.sched = sched

	wctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.worker.Start(wctx)
	e.logger.Printf("experiment: %d bodies on %s backend, dt %s", len(e.bodies), backend.Name(), e.cfg.Dt)
	return nil
}

// NumBodies is the size of the system actually simulated, which differs from
// Config().Bodies when started from a snapshot.
func (e *Experiment) NumBodies() int { return len(e.bodies) }

func (e *Experiment) Config() *config.Config    { return e.cfg }
func (e *Experiment) Scheduler() *sim.Scheduler { return e.sched }
func (e *Experiment) Results() <-chan compute.Result {
	if e.worker == nil {
		return nil
	}
	return e.worker.Results()
}

// Close stops the worker. It is safe to call more than once.
func (e *Experiment) Close() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	if e.worker != nil {
		e.worker.Close()
		e.worker = nil
	}
}

type RunOptions struct {
	Duration    time.Duration
	SampleEvery time.Duration // zero samples only the first and last frame
	// Realtime paces frames on the wall clock; otherwise frames are
	// simulated back to back and physics never falls behind.
	Realtime bool
}

type Result struct {
	Frames   uint64
	Elapsed  time.Duration
	Stats    sim.Stats
	Samples  []Sample
	Metrics  map[string]float64
	Momentum []float64
	Final    []physics.Body
}

// Sample is a metric snapshot at simulated time Time.
type Sample struct {
	Time      time.Duration
	Ticks     uint64
	Momentum  float64
	Energy    float64
	Spread    float64
	Anomalies uint64
}

// Run drives the frame loop for opts.Duration of simulated time.
func (e *Experiment) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	if e.sched == nil {
		return nil, ErrNotSetup
	}

	ms := metrics.Standard(e.cfg.Params())
	momentum := ms[0].(*metrics.Momentum)
	res := &Result{}
	start := e.sched.Clock()
	wallStart := time.Now()
	stats := metrics.NewStats(wallStart)
	nextSample := time.Duration(0)

	sample := func() error {
		bodies := e.sched.Bodies()
		if err := physics.CheckFinite(bodies); err != nil {
			return err
		}
		elapsed := e.sched.Clock().Sub(start)
		metrics.ObserveAll(ms, bodies, elapsed.Seconds())
		st := e.sched.Stats()
		res.Samples = append(res.Samples, Sample{
			Time:      elapsed,
			Ticks:     st.Ticks,
			Momentum:  momentum.Last(),
			Energy:    metrics.TotalEnergy(bodies, e.cfg.Physics.Gravity),
			Spread:    metrics.RMSRadius(bodies),
			Anomalies: st.Anomalies,
		})
		res.Momentum = append(res.Momentum, momentum.Last())
		return nil
	}
	if err := sample(); err != nil {
		return nil, err
	}

	frame := e.cfg.FrameInterval()
	var err error
	if opts.Realtime {
		err = e.runRealtime(ctx, opts, frame, stats, func(elapsed time.Duration) error {
			if opts.SampleEvery > 0 && elapsed >= nextSample+opts.SampleEvery {
				nextSample += opts.SampleEvery
				return sample()
			}
			return nil
		})
	} else {
		for target := start.Add(frame); target.Sub(start) <= opts.Duration; target = target.Add(frame) {
			if err = e.sched.AdvanceSync(ctx, target); err != nil {
				break
			}
			e.frame(stats)
			if elapsed := target.Sub(start); opts.SampleEvery > 0 && elapsed >= nextSample+opts.SampleEvery {
				nextSample += opts.SampleEvery
				if err = sample(); err != nil {
					break
				}
			}
		}
	}
	if err == nil {
		err = sample()
	}
	if err != nil {
		return nil, err
	}

	res.Frames = stats.Frames
	res.Elapsed = time.Since(wallStart)
	res.Stats = e.sched.Stats()
	res.Final = e.sched.Snapshot()
	res.Metrics = make(map[string]float64, len(ms))
	for _, m := range ms {
		res.Metrics[m.Name()] = m.Value()
	}
	return res, nil
}

func (e *Experiment) runRealtime(ctx context.Context, opts RunOptions, frame time.Duration, stats *metrics.Stats, onFrame func(time.Duration) error) error {
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	// The scheduler clock was set at Setup; measure run time from the first
	// target instead so setup latency is not counted as lag.
	offset := time.Since(e.sched.Clock())
	begin := e.sched.Clock()
	e.sched.AdvanceTo(time.Now().Add(-offset))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r := <-e.worker.Results():
			e.sched.HandleResult(r)
			e.sched.AdvanceTo(time.Now().Add(-offset))
		case now := <-ticker.C:
			target := now.Add(-offset)
			e.sched.AdvanceTo(target)
			e.frame(stats)
			elapsed := target.Sub(begin)
			if err := onFrame(elapsed); err != nil {
				return err
			}
			if elapsed >= opts.Duration {
				return e.drain(ctx)
			}
		}
	}
}

// drain waits for an in-flight job so the final state includes it.
func (e *Experiment) drain(ctx context.Context) error {
	if e.sched.Phase() != sim.Computing {
		return nil
	}
	select {
	case r := <-e.worker.Results():
		e.sched.HandleResult(r)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Experiment) frame(stats *metrics.Stats) {
	if stats.Frame(0) {
		st := e.sched.Stats()
		stats.Physics(st.Ticks, st.PhysicsTime)
		e.logger.Print(stats.Line(time.Now()))
	}
}
