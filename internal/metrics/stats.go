package metrics

import (
	"fmt"
	"math/bits"
	"time"
)

// Stats counts rendered frames and the time spent producing them alongside
// the physics totals reported by the scheduler.
type Stats struct {
	Start        time.Time
	Frames       uint64
	Ticks        uint64
	PhysicsTime  time.Duration
	GraphicsTime time.Duration
}

func NewStats(start time.Time) *Stats {
	return &Stats{Start: start}
}

// ShouldLog reports whether frame n gets a progress line: every power of
// two, then every 1024th frame.
func ShouldLog(n uint64) bool {
	return n != 0 && (bits.OnesCount64(n) == 1 || n%1024 == 0)
}

// Frame records one rendered frame and reports whether it should be logged.
func (s *Stats) Frame(graphics time.Duration) bool {
	s.GraphicsTime += graphics
	s.Frames++
	return ShouldLog(s.Frames)
}

// Physics overwrites the physics totals with the scheduler's counters.
func (s *Stats) Physics(ticks uint64, spent time.Duration) {
	s.Ticks = ticks
	s.PhysicsTime = spent
}

func (s *Stats) Line(now time.Time) string {
	return fmt.Sprintf("elapsed %ds total, %ds physics (%d ticks), %ds graphics (%d frames)",
		int64(now.Sub(s.Start).Seconds()),
		int64(s.PhysicsTime.Seconds()), s.Ticks,
		int64(s.GraphicsTime.Seconds()), s.Frames)
}
