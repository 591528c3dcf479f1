package engine

import (
	"strconv"
	"time"

	"github.com/roach88/launchpop/internal/counter"
)

// Gate names a pass/fail check evaluated before an automatic show.
type Gate string

const (
	GateBreakpoint Gate = "breakpoint"
	GateMinutes    Gate = "minutes"
	GateMax        Gate = "max"
)

// checkGates evaluates the gates in order and returns the first failure.
func (p *Instance) checkGates() (Gate, bool) {
	if !p.passesBreakpoint() {
		return GateBreakpoint, false
	}
	if !p.passesMinutes(p.eng.clock.Now()) {
		return GateMinutes, false
	}
	if !p.passesMax() {
		return GateMax, false
	}
	return "", true
}

// passesBreakpoint fails only when the current size class is explicitly
// hidden. Without a window there is nothing to classify.
func (p *Instance) passesBreakpoint() bool {
	bp := p.cfg.Limits.Breakpoints
	if bp == nil || p.eng.window == nil {
		return true
	}
	return bp.Allows(p.eng.SizeClass())
}

// passesMinutes requires limit minutes to have elapsed since the last show.
// The boundary is inclusive.
func (p *Instance) passesMinutes(now time.Time) bool {
	limit := p.cfg.Limits.Minutes
	if limit == nil || *limit <= 0 {
		return true
	}
	store := p.eng.local
	if store == nil {
		return true
	}

	key := counter.LastShownKey(p.id)
	v, ok, err := store.Get(key)
	if err != nil {
		p.eng.storageFailure(p.id, "get", key, err)
		return true
	}
	last := counter.ParseInt(v, ok, 0)
	if last <= 0 {
		return true
	}

	span := time.Duration(*limit) * time.Minute
	return millis(now)-last >= span.Milliseconds()
}

// passesMax requires the session show count to be below the limit.
func (p *Instance) passesMax() bool {
	limit := p.cfg.Limits.Max
	if limit == nil || *limit <= 0 {
		return true
	}
	store := p.eng.session
	if store == nil {
		return true
	}

	key := counter.SessionCountKey(p.id)
	v, ok, err := store.Get(key)
	if err != nil {
		p.eng.storageFailure(p.id, "get", key, err)
		return true
	}
	return counter.ParseInt(v, ok, 0) < int64(*limit)
}

// recordShow persists the counters for the limits that are configured.
func (p *Instance) recordShow(now time.Time) {
	e := p.eng
	limits := p.cfg.Limits

	if limits.Minutes != nil && e.local != nil {
		key := counter.LastShownKey(p.id)
		if err := e.local.Set(key, strconv.FormatInt(millis(now), 10)); err != nil {
			e.storageFailure(p.id, "set", key, err)
		}
	}

	if limits.Max != nil && e.session != nil {
		key := counter.SessionCountKey(p.id)
		if inc, ok := e.session.(counter.Incrementer); ok {
			if _, err := inc.Increment(key); err != nil {
				e.storageFailure(p.id, "increment", key, err)
			}
			return
		}
		v, ok, err := e.session.Get(key)
		if err != nil {
			e.storageFailure(p.id, "get", key, err)
			return
		}
		n := counter.ParseInt(v, ok, 0) + 1
		if err := e.session.Set(key, strconv.FormatInt(n, 10)); err != nil {
			e.storageFailure(p.id, "set", key, err)
		}
	}
}
