package engine

import (
	"time"

	"github.com/roach88/launchpop/internal/dom"
	"github.com/roach88/launchpop/internal/viewport"
)

// inactivityPoll is how often the inactivity signal checks idle time.
const inactivityPoll = time.Second

// subscriberSet is an insertion-ordered set of instances.
type subscriberSet struct {
	order   []*Instance
	members map[*Instance]struct{}
}

func newSubscriberSet() subscriberSet {
	return subscriberSet{members: make(map[*Instance]struct{})}
}

func (s *subscriberSet) add(p *Instance) bool {
	if _, ok := s.members[p]; ok {
		return false
	}
	s.members[p] = struct{}{}
	s.order = append(s.order, p)
	return true
}

func (s *subscriberSet) remove(p *Instance) bool {
	if _, ok := s.members[p]; !ok {
		return false
	}
	delete(s.members, p)
	for i, q := range s.order {
		if q == p {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *subscriberSet) has(p *Instance) bool {
	_, ok := s.members[p]
	return ok
}

func (s *subscriberSet) len() int {
	return len(s.order)
}

// snapshot returns the members in subscription order. Dispatch iterates a
// snapshot and re-checks membership, since handling one instance may
// unsubscribe another.
func (s *subscriberSet) snapshot() []*Instance {
	out := make([]*Instance, len(s.order))
	copy(out, s.order)
	return out
}

// scrollSignal shares one window scroll listener across instances.
type scrollSignal struct {
	e      *Engine
	subs   subscriberSet
	detach func()
	geom   viewport.Geometry
	ready  bool
}

func newScrollSignal(e *Engine) *scrollSignal {
	return &scrollSignal{e: e, subs: newSubscriberSet()}
}

func (s *scrollSignal) subscribe(p *Instance) {
	if !s.subs.add(p) || s.detach != nil || s.e.window == nil {
		return
	}
	s.update()
	s.detach = s.e.window.AddListener(dom.EventScroll, s.dispatch)
	s.e.logger.Debug("signal attached", "signal", "scroll")
}

func (s *scrollSignal) unsubscribe(p *Instance) {
	if !s.subs.remove(p) || s.subs.len() > 0 || s.detach == nil {
		return
	}
	s.detach()
	s.detach = nil
	s.e.logger.Debug("signal detached", "signal", "scroll")
}

// geometry returns the last recorded scroll state, reading it if none has
// been recorded yet.
func (s *scrollSignal) geometry() viewport.Geometry {
	if !s.ready {
		s.update()
	}
	return s.geom
}

func (s *scrollSignal) update() {
	if s.e.window == nil {
		return
	}
	s.geom = s.e.window.Geometry()
	s.ready = true
}

func (s *scrollSignal) dispatch(ev *dom.Event) {
	s.update()
	for _, p := range s.subs.snapshot() {
		if !s.subs.has(p) {
			continue
		}
		p.handleScroll(s.geom, ev)
	}
}

// exitIntentSignal shares one document mouseout listener across instances.
type exitIntentSignal struct {
	e      *Engine
	subs   subscriberSet
	detach func()
}

func newExitIntentSignal(e *Engine) *exitIntentSignal {
	return &exitIntentSignal{e: e, subs: newSubscriberSet()}
}

func (s *exitIntentSignal) subscribe(p *Instance) {
	if !s.subs.add(p) || s.detach != nil {
		return
	}
	doc := s.e.document()
	if doc == nil {
		return
	}
	s.detach = doc.AddListener(dom.EventMouseOut, s.dispatch)
	s.e.logger.Debug("signal attached", "signal", "exit_intent")
}

func (s *exitIntentSignal) unsubscribe(p *Instance) {
	if !s.subs.remove(p) || s.subs.len() > 0 || s.detach == nil {
		return
	}
	s.detach()
	s.detach = nil
	s.e.logger.Debug("signal detached", "signal", "exit_intent")
}

// dispatch forwards only pointer exits through the top edge of the window.
func (s *exitIntentSignal) dispatch(ev *dom.Event) {
	if ev.RelatedTarget != nil || ev.ClientY > 0 {
		return
	}
	for _, p := range s.subs.snapshot() {
		if !s.subs.has(p) {
			continue
		}
		p.handleExitIntent(ev)
	}
}

var activityEvents = []dom.EventType{
	dom.EventMouseMove,
	dom.EventKeyDown,
	dom.EventScroll,
	dom.EventTouchStart,
}

// inactivitySignal tracks the time of the last user activity and polls
// subscribed instances once per second.
type inactivitySignal struct {
	e            *Engine
	subs         subscriberSet
	detach       []func()
	poll         *timer
	lastActivity time.Time
}

func newInactivitySignal(e *Engine) *inactivitySignal {
	return &inactivitySignal{
		e:            e,
		subs:         newSubscriberSet(),
		lastActivity: e.clock.Now(),
	}
}

func (s *inactivitySignal) attached() bool {
	return s.poll != nil
}

func (s *inactivitySignal) subscribe(p *Instance) {
	if !s.subs.add(p) || s.attached() || s.e.window == nil {
		return
	}
	for _, t := range activityEvents {
		s.detach = append(s.detach, s.e.window.AddListener(t, s.activity))
	}
	s.poll = s.e.sched.Every(inactivityPoll, s.check)
	s.e.logger.Debug("signal attached", "signal", "inactivity")
}

func (s *inactivitySignal) unsubscribe(p *Instance) {
	if !s.subs.remove(p) || s.subs.len() > 0 || !s.attached() {
		return
	}
	for _, fn := range s.detach {
		fn()
	}
	s.detach = nil
	s.poll.Stop()
	s.poll = nil
	s.e.logger.Debug("signal detached", "signal", "inactivity")
}

func (s *inactivitySignal) activity(*dom.Event) {
	s.lastActivity = s.e.clock.Now()
}

func (s *inactivitySignal) check() {
	idle := s.e.clock.Now().Sub(s.lastActivity)
	for _, p := range s.subs.snapshot() {
		if !s.subs.has(p) {
			continue
		}
		p.handleInactivity(idle)
	}
}
