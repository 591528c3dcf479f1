package engine

import (
	"fmt"
	"time"

	"github.com/roach88/launchpop/internal/dom"
)

// EventType names a lifecycle transition.
type EventType string

const (
	EventShow EventType = "show"
	EventHide EventType = "hide"
)

// Event is delivered to show/hide handlers.
type Event struct {
	Type     EventType
	Instance *Instance
	Trigger  Trigger
	// Native is the raw host event behind the transition, if any.
	Native    *dom.Event
	Timestamp time.Time
	Context   TriggerContext
	// Seq orders events emitted by one engine.
	Seq int64
}

// Handler receives lifecycle events. A returned error or a panic is logged
// and does not stop the remaining handlers.
type Handler func(Event) error

// Subscription identifies a registered handler so it can be removed.
type Subscription struct {
	event EventType
	id    uint64
}

type subscriber struct {
	id uint64
	fn Handler
}

// emitter is an ordered list of handlers per event type.
type emitter struct {
	nextID   uint64
	handlers map[EventType][]subscriber
}

func newEmitter() *emitter {
	return &emitter{handlers: make(map[EventType][]subscriber)}
}

func (m *emitter) on(t EventType, fn Handler) Subscription {
	if fn == nil {
		return Subscription{}
	}
	m.nextID++
	m.handlers[t] = append(m.handlers[t], subscriber{id: m.nextID, fn: fn})
	return Subscription{event: t, id: m.nextID}
}

func (m *emitter) off(sub Subscription) bool {
	list := m.handlers[sub.event]
	for i, s := range list {
		if s.id == sub.id {
			m.handlers[sub.event] = append(list[:i:i], list[i+1:]...)
			return true
		}
	}
	return false
}

func (m *emitter) clear(t EventType) {
	delete(m.handlers, t)
}

func (m *emitter) snapshot(t EventType) []subscriber {
	list := m.handlers[t]
	out := make([]subscriber, len(list))
	copy(out, list)
	return out
}

func (m *emitter) count(t EventType) int {
	return len(m.handlers[t])
}

// emit fans ev out to the instance's handlers, then the engine's.
func (e *Engine) emit(p *Instance, t EventType, tc TriggerContext) {
	ev := Event{
		Type:      t,
		Instance:  p,
		Trigger:   tc.Trigger,
		Native:    tc.Event,
		Timestamp: e.clock.Now(),
		Context:   tc,
		Seq:       e.seq.Next(),
	}

	for _, s := range p.events.snapshot(t) {
		e.invoke("instance", p, s.fn, ev)
	}
	for _, s := range e.global.snapshot(t) {
		e.invoke("global", p, s.fn, ev)
	}
}

// invoke runs one handler, isolating errors and panics.
func (e *Engine) invoke(scope string, p *Instance, fn Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			err := newListenerError(p.id, ev.Type, fmt.Errorf("panic: %v", r))
			e.logger.Error("listener panicked",
				"scope", scope,
				"popup", p.id,
				"event", ev.Type,
				"error", err,
			)
		}
	}()

	if err := fn(ev); err != nil {
		e.logger.Error("listener failed",
			"scope", scope,
			"popup", p.id,
			"event", ev.Type,
			"error", newListenerError(p.id, ev.Type, err),
		)
	}
}
