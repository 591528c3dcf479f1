package engine

import (
	"container/heap"
	"time"

	"github.com/benbjohnson/clock"
)

// timer is a scheduled callback. A repeating timer has every > 0.
type timer struct {
	id      uint64
	at      time.Time
	every   time.Duration
	fn      func()
	index   int
	stopped bool
	sched   *scheduler
}

// Stop cancels the timer. Returns false if it had already fired (one-shot)
// or been stopped.
func (t *timer) Stop() bool {
	if t == nil || t.stopped {
		return false
	}
	t.stopped = true
	if t.index >= 0 {
		heap.Remove(&t.sched.timers, t.index)
		return true
	}
	return false
}

// timerHeap is a min-heap of timers ordered by deadline, then creation.
type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].id < h[j].id
	}
	return h[i].at.Before(h[j].at)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// scheduler runs timers against an injected clock. It never starts
// goroutines: due timers fire only from RunDue, on the caller's goroutine.
type scheduler struct {
	clock  clock.Clock
	timers timerHeap
	nextID uint64
}

func newScheduler(c clock.Clock) *scheduler {
	return &scheduler{clock: c}
}

// AfterFunc schedules fn to run once, d from now.
func (s *scheduler) AfterFunc(d time.Duration, fn func()) *timer {
	return s.add(d, 0, fn)
}

// Every schedules fn to run every d, first at now+d.
func (s *scheduler) Every(d time.Duration, fn func()) *timer {
	if d <= 0 {
		d = time.Millisecond
	}
	return s.add(d, d, fn)
}

func (s *scheduler) add(d, every time.Duration, fn func()) *timer {
	if d < 0 {
		d = 0
	}
	s.nextID++
	t := &timer{
		id:    s.nextID,
		at:    s.clock.Now().Add(d),
		every: every,
		fn:    fn,
		sched: s,
	}
	heap.Push(&s.timers, t)
	return t
}

// Next returns the earliest pending deadline.
func (s *scheduler) Next() (time.Time, bool) {
	if len(s.timers) == 0 {
		return time.Time{}, false
	}
	return s.timers[0].at, true
}

// RunDue fires every timer whose deadline is at or before now, in deadline
// order. Repeating timers are re-armed before their callback runs so the
// callback may stop them. Returns the number of callbacks run.
func (s *scheduler) RunDue() int {
	now := s.clock.Now()
	ran := 0
	for len(s.timers) > 0 && !s.timers[0].at.After(now) {
		t := heap.Pop(&s.timers).(*timer)
		if t.every > 0 {
			t.at = t.at.Add(t.every)
			heap.Push(&s.timers, t)
		} else {
			t.stopped = true
		}
		ran++
		t.fn()
	}
	return ran
}

// Len returns the number of pending timers.
func (s *scheduler) Len() int {
	return len(s.timers)
}
