package sim_test

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/marblesim/internal/compute"
	"github.com/san-kum/marblesim/internal/physics"
	"github.com/san-kum/marblesim/internal/sim"
)

// stallExecutor accepts snapshots and never answers.
type stallExecutor struct {
	submitted int
	results   chan compute.Result
}

func newStallExecutor() *stallExecutor {
	return &stallExecutor{results: make(chan compute.Result)}
}

func (e *stallExecutor) Submit([]physics.Body) error     { e.submitted++; return nil }
func (e *stallExecutor) Results() <-chan compute.Result { return e.results }

// manualExecutor holds one snapshot until the test calls deliver.
type manualExecutor struct {
	params    physics.Params
	pending   []physics.Body
	submitted int
	reject    error
	results   chan compute.Result
}

func newManualExecutor(p physics.Params) *manualExecutor {
	return &manualExecutor{params: p, results: make(chan compute.Result, 1)}
}

func (e *manualExecutor) Submit(snapshot []physics.Body) error {
	if e.reject != nil {
		return e.reject
	}
	if e.pending != nil {
		return compute.ErrBusy
	}
	e.pending = snapshot
	e.submitted++
	return nil
}

func (e *manualExecutor) Results() <-chan compute.Result { return e.results }

func (e *manualExecutor) deliver() {
	snap := e.pending
	e.pending = nil
	e.results <- compute.Result{
		Accels:   physics.Accelerations(snap, e.params),
		Elapsed:  time.Millisecond,
		Snapshot: snap,
	}
}

var _ = Describe("Scheduler", func() {
	var (
		params physics.Params
		start  time.Time
		bodies []physics.Body
		logBuf *bytes.Buffer
		opts   sim.Options
	)

	BeforeEach(func() {
		params = physics.DefaultParams()
		start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		bodies = physics.NewBodies(24, physics.DefaultInit(), physics.NewRand(5))
		logBuf = &bytes.Buffer{}
		opts = sim.Options{
			MaxBehind: time.Second,
			Logger:    log.New(logBuf, "", 0),
		}
	})

	ms := func(n int) time.Duration { return time.Duration(n) * time.Millisecond }

	Describe("construction", func() {
		It("starts idle with the clock at start", func() {
			s, err := sim.New(bodies, params, newStallExecutor(), opts, start)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Phase()).To(Equal(sim.Idle))
			Expect(s.Clock()).To(Equal(start))
			Expect(s.Tick()).To(Equal(ms(1)))
		})

		DescribeTable("rejects invalid input",
			func(mutate func(*[]physics.Body, *physics.Params, *sim.Options)) {
				mutate(&bodies, &params, &opts)
				_, err := sim.New(bodies, params, newStallExecutor(), opts, start)
				Expect(err).To(MatchError(sim.ErrInvalidOptions))
			},
			Entry("no bodies", func(b *[]physics.Body, _ *physics.Params, _ *sim.Options) { *b = nil }),
			Entry("zero tick", func(_ *[]physics.Body, p *physics.Params, _ *sim.Options) { p.Dt = 0 }),
			Entry("max behind under a tick", func(_ *[]physics.Body, _ *physics.Params, o *sim.Options) { o.MaxBehind = time.Microsecond }),
			Entry("zero radius", func(b *[]physics.Body, _ *physics.Params, _ *sim.Options) { (*b)[3].Radius = 0 }),
		)
	})

	Describe("AdvanceTo", func() {
		var (
			exec *manualExecutor
			s    *sim.Scheduler
		)

		BeforeEach(func() {
			exec = newManualExecutor(params)
			var err error
			s, err = sim.New(bodies, params, exec, opts, start)
			Expect(err).NotTo(HaveOccurred())
		})

		It("does nothing when less than a tick behind", func() {
			Expect(s.AdvanceTo(start.Add(ms(1) - 1))).To(Equal(sim.StatusUpToDate))
			Expect(s.Phase()).To(Equal(sim.Idle))
			Expect(exec.submitted).To(Equal(0))
		})

		It("submits once and reports busy while computing", func() {
			Expect(s.AdvanceTo(start.Add(ms(10)))).To(Equal(sim.StatusSubmitted))
			Expect(s.Phase()).To(Equal(sim.Computing))

			Expect(s.AdvanceTo(start.Add(ms(11)))).To(Equal(sim.StatusBusy))
			Expect(s.AdvanceTo(start.Add(ms(12)))).To(Equal(sim.StatusBusy))
			Expect(exec.submitted).To(Equal(1))
			Expect(s.Stats().Busy).To(BeEquivalentTo(2))
		})

		It("does not touch the live bodies while computing", func() {
			before := s.Snapshot()
			s.AdvanceTo(start.Add(ms(5)))
			Expect(s.Bodies()).To(Equal(before))
		})

		It("applies a result as exactly one tick and resubmits while behind", func() {
			expected := physics.Clone(bodies)
			physics.Step(expected, physics.Accelerations(expected, params), params)

			s.AdvanceTo(start.Add(ms(10)))
			exec.deliver()
			Expect(s.Poll()).To(BeTrue())

			Expect(s.Clock()).To(Equal(start.Add(ms(1))))
			Expect(s.Stats().Ticks).To(BeEquivalentTo(1))
			Expect(s.Bodies()).To(Equal(expected))
			Expect(s.Phase()).To(Equal(sim.Computing))
			Expect(exec.submitted).To(Equal(2))
		})

		It("runs until within a tick of the target and then idles", func() {
			s.AdvanceTo(start.Add(ms(10)))
			for s.Phase() == sim.Computing {
				exec.deliver()
				Expect(s.Poll()).To(BeTrue())
			}
			Expect(s.Clock()).To(Equal(start.Add(ms(10))))
			Expect(s.Stats().Ticks).To(BeEquivalentTo(10))
			Expect(s.Stats().Anomalies).To(BeZero())
		})

		It("keeps total momentum at zero across ticks", func() {
			s.AdvanceTo(start.Add(ms(25)))
			for s.Phase() == sim.Computing {
				exec.deliver()
				s.Poll()
			}
			b := s.Bodies()
			Expect(physics.Momentum(b).Len() / physics.TotalMass(b)).To(BeNumerically("<", 1e-9))
		})

		It("does not block when nothing is waiting", func() {
			Expect(s.Poll()).To(BeFalse())
			s.AdvanceTo(start.Add(ms(3)))
			Expect(s.Poll()).To(BeFalse())
			Expect(s.Phase()).To(Equal(sim.Computing))
		})

		It("reports executor-side busy without changing phase", func() {
			exec.pending = []physics.Body{}
			Expect(s.AdvanceTo(start.Add(ms(3)))).To(Equal(sim.StatusBusy))
			Expect(s.Phase()).To(Equal(sim.Idle))
		})

		It("logs and stays idle when the executor rejects a snapshot", func() {
			exec.reject = errors.New("worker gone")
			Expect(s.AdvanceTo(start.Add(ms(3)))).To(Equal(sim.StatusRejected))
			Expect(s.Phase()).To(Equal(sim.Idle))
			Expect(logBuf.String()).To(ContainSubstring("worker gone"))
		})

		It("panics when handed a result while idle", func() {
			Expect(func() {
				s.HandleResult(compute.Result{Accels: make([]mgl64.Vec3, len(bodies))})
			}).To(PanicWith(sim.ErrNotComputing))
		})
	})

	Describe("catch-up", func() {
		It("jumps once and logs one anomaly when the executor never returns", func() {
			exec := newStallExecutor()
			s, err := sim.New(bodies, params, exec, opts, start)
			Expect(err).NotTo(HaveOccurred())

			target := start.Add(5000 * time.Millisecond)
			Expect(s.AdvanceTo(target)).To(Equal(sim.StatusSubmitted))

			Expect(s.Clock()).To(Equal(target.Add(-ms(1))))
			Expect(s.Stats().Anomalies).To(BeEquivalentTo(1))
			Expect(s.Stats().Dropped).To(Equal(ms(4999)))
			Expect(exec.submitted).To(Equal(1))
			Expect(strings.Count(logBuf.String(), "\n")).To(Equal(1))
			Expect(logBuf.String()).To(ContainSubstring("dropping 4999ms"))

			Expect(s.AdvanceTo(target)).To(Equal(sim.StatusBusy))
			Expect(s.Stats().Anomalies).To(BeEquivalentTo(1))
			Expect(exec.submitted).To(Equal(1))
		})

		It("does not jump when exactly max behind", func() {
			s, err := sim.New(bodies, params, newStallExecutor(), opts, start)
			Expect(err).NotTo(HaveOccurred())
			s.AdvanceTo(start.Add(time.Second))
			Expect(s.Stats().Anomalies).To(BeZero())
			Expect(s.Clock()).To(Equal(start))
		})
	})

	Describe("with a compute.Worker", func() {
		var (
			w      *compute.Worker
			cancel context.CancelFunc
		)

		BeforeEach(func() {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			w = compute.NewWorker(compute.NewCPUBackend(2), params, log.New(logBuf, "", 0))
			w.Start(ctx)
		})

		AfterEach(func() {
			w.Close()
			cancel()
		})

		It("advances synchronously to a target", func() {
			s, err := sim.New(bodies, params, w, opts, start)
			Expect(err).NotTo(HaveOccurred())

			Expect(s.AdvanceSync(context.Background(), start.Add(ms(20)))).To(Succeed())
			Expect(s.Stats().Ticks).To(BeEquivalentTo(20))
			Expect(s.Phase()).To(Equal(sim.Idle))
			Expect(s.Stats().PhysicsTime).To(BeNumerically(">", 0))
		})

		It("matches direct integration tick for tick", func() {
			expected := physics.Clone(bodies)
			for i := 0; i < 5; i++ {
				physics.Step(expected, physics.Accelerations(expected, params), params)
			}

			s, err := sim.New(bodies, params, w, opts, start)
			Expect(err).NotTo(HaveOccurred())
			s.AdvanceTo(start.Add(ms(5)))
			Eventually(func() uint64 {
				s.Poll()
				return s.Stats().Ticks
			}, "5s", "1ms").Should(BeEquivalentTo(5))

			Expect(s.Phase()).To(Equal(sim.Idle))
			Expect(s.Bodies()).To(Equal(expected))
		})
	})
})

var _ = Describe("SnapshotPool", func() {
	It("hands out buffers of the body count", func() {
		pool := sim.NewSnapshotPool(4)
		Expect(pool.Get()).To(HaveLen(4))
	})

	It("copies independently of the source", func() {
		pool := sim.NewSnapshotPool(3)
		src := physics.NewBodies(3, physics.DefaultInit(), physics.NewRand(1))
		dst := pool.GetAndCopy(src)
		Expect(dst).To(Equal(src))

		dst[0].Radius = 99
		Expect(src[0].Radius).NotTo(Equal(99.0))
	})

	It("clears returned buffers", func() {
		pool := sim.NewSnapshotPool(2)
		s := pool.GetAndCopy(physics.NewBodies(2, physics.DefaultInit(), physics.NewRand(2)))
		pool.Put(s)
		Expect(s[0]).To(Equal(physics.Body{}))
	})
})

var _ = Describe("Ensemble", func() {
	It("runs every seed for the requested ticks, reproducibly", func() {
		p := physics.DefaultParams()
		e := sim.NewEnsemble(p, physics.DefaultInit(), 12, 3, 100)

		first, err := e.Run(context.Background(), 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(first).To(HaveLen(3))

		second, err := e.Run(context.Background(), 4)
		Expect(err).NotTo(HaveOccurred())

		for i := range first {
			Expect(first[i].Seed).To(BeEquivalentTo(100 + i))
			Expect(first[i].Ticks).To(Equal(4))
			Expect(first[i].Bodies).To(Equal(second[i].Bodies))
		}
	})

	It("stops on a cancelled context", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		e := sim.NewEnsemble(physics.DefaultParams(), physics.DefaultInit(), 8, 2, 1)
		_, err := e.Run(ctx, 10)
		Expect(err).To(MatchError(context.Canceled))
	})
})
