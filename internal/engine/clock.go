package engine

import (
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
)

// Sequence stamps emitted events with a strictly increasing number so
// observers can order show/hide transitions that share a wall-clock
// millisecond.
type Sequence struct {
	seq atomic.Int64
}

// NewSequence creates a sequence starting at 0.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Next returns the next sequence number.
func (s *Sequence) Next() int64 {
	return s.seq.Add(1)
}

// millis converts a time to the epoch-millisecond form stored in counters.
func millis(t time.Time) int64 {
	return t.UnixMilli()
}

// defaultClock is the wall clock used when no clock option is given.
func defaultClock() clock.Clock {
	return clock.New()
}
