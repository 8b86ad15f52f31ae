package experiment

import (
	"bytes"
	"context"
	"errors"
	"log"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/san-kum/marblesim/internal/config"
	"github.com/san-kum/marblesim/internal/physics"
)

func smallConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Bodies = 16
	cfg.Backend = "serial"
	cfg.FrameRate = 50
	return cfg
}

func TestRun_NotSetup(t *testing.T) {
	e := New(smallConfig(), nil)
	if _, err := e.Run(context.Background(), RunOptions{Duration: time.Second}); !errors.Is(err, ErrNotSetup) {
		t.Errorf("expected ErrNotSetup, got %v", err)
	}
}

func TestSetup_InvalidConfig(t *testing.T) {
	cfg := smallConfig()
	cfg.Bodies = 0
	e := New(cfg, nil)
	defer e.Close()
	if err := e.Setup(context.Background(), time.Now()); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestSetup_UnknownBackend(t *testing.T) {
	cfg := smallConfig()
	cfg.Backend = "quantum"
	e := New(cfg, nil)
	defer e.Close()
	if err := e.Setup(context.Background(), time.Now()); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestRun_Simulated(t *testing.T) {
	var buf bytes.Buffer
	e := New(smallConfig(), log.New(&buf, "", 0))
	if err := e.Setup(context.Background(), time.Unix(0, 0)); err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer e.Close()

	res, err := e.Run(context.Background(), RunOptions{
		Duration:    100 * time.Millisecond,
		SampleEvery: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if res.Frames != 5 {
		t.Errorf("expected 5 frames, got %d", res.Frames)
	}
	if res.Stats.Ticks != 100 {
		t.Errorf("expected 100 ticks, got %d", res.Stats.Ticks)
	}
	if res.Stats.Anomalies != 0 {
		t.Errorf("simulated run should never fall behind, got %d anomalies", res.Stats.Anomalies)
	}
	if len(res.Samples) != 4 {
		t.Errorf("expected 4 samples, got %d", len(res.Samples))
	}
	last := res.Samples[len(res.Samples)-1]
	if last.Time != 100*time.Millisecond || last.Ticks != 100 {
		t.Errorf("unexpected last sample %+v", last)
	}
	if len(res.Final) != 16 {
		t.Errorf("expected 16 final bodies, got %d", len(res.Final))
	}
	if res.Metrics["momentum"] > 1e-9 {
		t.Errorf("momentum drifted to %g", res.Metrics["momentum"])
	}
	if !strings.Contains(buf.String(), "16 bodies on serial backend") {
		t.Errorf("missing setup log line in %q", buf.String())
	}
}

func TestRun_MatchesDirectIntegration(t *testing.T) {
	cfg := smallConfig()
	initial := physics.NewBodies(cfg.Bodies, cfg.InitParams(), physics.NewRand(cfg.Seed))

	e := New(cfg, nil)
	if err := e.Setup(context.Background(), time.Unix(0, 0)); err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer e.Close()
	res, err := e.Run(context.Background(), RunOptions{Duration: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	p := cfg.Params()
	for i := 0; i < 20; i++ {
		physics.Step(initial, physics.Accelerations(initial, p), p)
	}
	for i := range initial {
		if res.Final[i] != initial[i] {
			t.Fatalf("body %d diverged: %+v vs %+v", i, res.Final[i], initial[i])
		}
	}
}

func TestWithBodies(t *testing.T) {
	bodies := physics.NewBodies(3, physics.DefaultInit(), physics.NewRand(9))
	e := New(smallConfig(), nil).WithBodies(bodies)
	if err := e.Setup(context.Background(), time.Unix(0, 0)); err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer e.Close()

	if got := len(e.Scheduler().Bodies()); got != 3 {
		t.Errorf("expected 3 bodies, got %d", got)
	}
	if e.NumBodies() != 3 || e.Config().Bodies != 16 {
		t.Errorf("NumBodies %d should follow the snapshot, not config %d", e.NumBodies(), e.Config().Bodies)
	}
	bodies[0].Radius = 99
	if e.Scheduler().Bodies()[0].Radius == 99 {
		t.Error("experiment shares the caller's slice")
	}
}

func TestRun_Realtime(t *testing.T) {
	e := New(smallConfig(), nil)
	if err := e.Setup(context.Background(), time.Now()); err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer e.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := e.Run(ctx, RunOptions{Duration: 60 * time.Millisecond, Realtime: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Frames < 3 {
		t.Errorf("expected at least 3 frames, got %d", res.Frames)
	}
	if res.Stats.Ticks == 0 {
		t.Error("no physics ticks in realtime run")
	}
}

func TestClose_Twice(t *testing.T) {
	e := New(smallConfig(), nil)
	if err := e.Setup(context.Background(), time.Now()); err != nil {
		t.Fatalf("setup: %v", err)
	}
	e.Close()
	e.Close()
}

func TestRun_UnstableState(t *testing.T) {
	bodies := physics.NewBodies(4, physics.DefaultInit(), physics.NewRand(1))
	bodies[2].Vel[0] = math.NaN()

	e := New(smallConfig(), nil).WithBodies(bodies)
	defer e.Close()
	if err := e.Setup(context.Background(), time.Now()); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Run(context.Background(), RunOptions{Duration: 100 * time.Millisecond}); !errors.Is(err, physics.ErrUnstable) {
		t.Errorf("expected ErrUnstable, got %v", err)
	}
}
