package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/launchpop/internal/testutil"
)

func TestScheduler_FiresInDeadlineOrder(t *testing.T) {
	mock := testutil.NewMockClock(time.Time{})
	s := newScheduler(mock)
	var got []string

	s.AfterFunc(3*time.Second, func() { got = append(got, "c") })
	s.AfterFunc(time.Second, func() { got = append(got, "a") })
	s.AfterFunc(time.Second, func() { got = append(got, "b") })

	assert.Equal(t, 0, s.RunDue())

	mock.Add(5 * time.Second)
	assert.Equal(t, 3, s.RunDue())
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, 0, s.Len())
}

func TestScheduler_Stop(t *testing.T) {
	mock := testutil.NewMockClock(time.Time{})
	s := newScheduler(mock)
	fired := false

	tm := s.AfterFunc(time.Second, func() { fired = true })
	assert.True(t, tm.Stop())
	assert.False(t, tm.Stop())

	mock.Add(2 * time.Second)
	s.RunDue()
	assert.False(t, fired)

	var nilTimer *timer
	assert.False(t, nilTimer.Stop())
}

func TestScheduler_StopAfterFire(t *testing.T) {
	mock := testutil.NewMockClock(time.Time{})
	s := newScheduler(mock)

	tm := s.AfterFunc(time.Second, func() {})
	mock.Add(time.Second)
	require.Equal(t, 1, s.RunDue())

	assert.False(t, tm.Stop())
}

func TestScheduler_EveryRepeatsUntilStopped(t *testing.T) {
	mock := testutil.NewMockClock(time.Time{})
	s := newScheduler(mock)
	var at []time.Duration

	var tm *timer
	tm = s.Every(time.Second, func() {
		at = append(at, mock.Now().Sub(testutil.Epoch))
		if len(at) == 3 {
			tm.Stop()
		}
	})

	testutil.Advance(mock, runnerFunc{s}, 10*time.Second)

	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, at)
	assert.Equal(t, 0, s.Len())
}

func TestScheduler_Next(t *testing.T) {
	mock := testutil.NewMockClock(time.Time{})
	s := newScheduler(mock)

	_, ok := s.Next()
	assert.False(t, ok)

	s.AfterFunc(2*time.Second, func() {})
	s.AfterFunc(time.Second, func() {})

	next, ok := s.Next()
	require.True(t, ok)
	assert.True(t, next.Equal(testutil.Epoch.Add(time.Second)))
}

// runnerFunc adapts a scheduler to testutil.Runner.
type runnerFunc struct {
	s *scheduler
}

func (r runnerFunc) NextDeadline() (time.Time, bool) { return r.s.Next() }
func (r runnerFunc) RunDue() int                     { return r.s.RunDue() }
