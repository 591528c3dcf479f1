package testutil

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Epoch is the default start time of mock clocks: 2024-01-01T00:00:00Z.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Runner is anything that fires timers against a clock on demand.
// engine.Engine implements it.
type Runner interface {
	NextDeadline() (time.Time, bool)
	RunDue() int
}

// NewMockClock returns a mock clock set to start, or Epoch if start is zero.
func NewMockClock(start time.Time) *clock.Mock {
	if start.IsZero() {
		start = Epoch
	}
	m := clock.NewMock()
	m.Set(start)
	return m
}

// Advance moves the mock clock forward by d, stopping at every timer
// deadline on the way so that callbacks observe the time they were due at.
// Timers scheduled by callbacks are honored if they fall inside the window.
//
// Returns the number of callbacks run.
func Advance(m *clock.Mock, r Runner, d time.Duration) int {
	end := m.Now().Add(d)
	ran := 0
	for {
		next, ok := r.NextDeadline()
		if !ok || next.After(end) {
			break
		}
		if next.After(m.Now()) {
			m.Set(next)
		}
		ran += r.RunDue()
	}
	if end.After(m.Now()) {
		m.Set(end)
	}
	ran += r.RunDue()
	return ran
}
