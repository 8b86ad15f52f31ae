package sim

import (
	"io"
	"log"
	"time"
)

// Phase is the scheduler's background-computation state.
type Phase int

const (
	Idle Phase = iota
	Computing
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Computing:
		return "computing"
	default:
		return "unknown"
	}
}

// Status reports what a single AdvanceTo call did.
type Status int

const (
	// StatusUpToDate: the clock is within one tick of the target.
	StatusUpToDate Status = iota
	// StatusSubmitted: a snapshot went to the executor.
	StatusSubmitted
	// StatusBusy: a computation is already outstanding; nothing was done.
	StatusBusy
	// StatusRejected: the executor refused the snapshot for another reason.
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusUpToDate:
		return "up-to-date"
	case StatusSubmitted:
		return "submitted"
	case StatusBusy:
		return "busy"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

type Options struct {
	// MaxBehind is how far the physics clock may trail a requested target
	// before intervening ticks are dropped.
	MaxBehind time.Duration
	Logger    *log.Logger
}

func DefaultOptions() Options {
	return Options{
		MaxBehind: time.Second,
		Logger:    log.New(io.Discard, "", 0),
	}
}

type Stats struct {
	Ticks       uint64
	Submitted   uint64
	Busy        uint64
	Anomalies   uint64
	Dropped     time.Duration // simulated time discarded by catch-up jumps
	PhysicsTime time.Duration // wall time the executor reported
}
