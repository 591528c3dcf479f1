package engine

import (
	"time"

	"github.com/roach88/launchpop/internal/dom"
	"github.com/roach88/launchpop/internal/viewport"
)

// Instance is one registered popup and its trigger state machine.
//
// An instance starts idle, becomes blocked if a gate fails once all of its
// automatic triggers are satisfied, or becomes shown. Both outcomes are
// permanent for automatic triggers. Disabled is an independent flag that
// suppresses all trigger evaluation while set.
//
// Instances are owned by their Engine and are not safe for concurrent use.
type Instance struct {
	eng *Engine
	id  string
	el  dom.Element
	cfg Config

	role       string
	closeOnEsc bool

	shown     bool
	blocked   bool
	blockedBy Gate
	disabled  bool
	visible   bool

	state            TriggerState
	percentThreshold *float64
	pixelsThreshold  *float64
	inactivity       time.Duration
	delayTimer       *timer

	lastTrigger *TriggerContext
	lastActive  dom.Element

	clicks        []clickBinding
	removeClose   func()
	removeKeydown func()

	events *emitter
}

type clickBinding struct {
	el     dom.Element
	remove func()
}

func newInstance(e *Engine, cfg Config) *Instance {
	p := &Instance{
		eng:        e,
		id:         cfg.ID,
		el:         cfg.Element,
		cfg:        cfg,
		role:       cfg.Role,
		closeOnEsc: cfg.CloseOnEsc == nil || *cfg.CloseOnEsc,
		state:      initialState(cfg.Triggers),
		events:     newEmitter(),
	}
	if p.id == "" {
		p.id = DefaultID
	}
	if p.role == "" {
		p.role = DefaultRole
	}
	if cfg.Triggers.InactivitySeconds != nil {
		p.inactivity = cfg.Triggers.inactivity()
	}
	if cfg.OnShow != nil {
		p.events.on(EventShow, cfg.OnShow)
	}
	if cfg.OnHide != nil {
		p.events.on(EventHide, cfg.OnHide)
	}

	p.initAccessibility()
	p.setupTriggers()

	if !cfg.Triggers.HasAuto() && cfg.Triggers.ClickSelector == "" {
		tc := autoContext(TriggerImmediate, nil)
		p.lastTrigger = &tc
		p.tryShow()
	}

	if e.disabled {
		p.Disable()
	}
	return p
}

// ID returns the popup id; instances registered without one share DefaultID.
func (p *Instance) ID() string { return p.id }

// Element returns the popup root, or nil after Destroy.
func (p *Instance) Element() dom.Element { return p.el }

// Shown reports whether the instance has ever been shown. It is never reset,
// including by Hide: a hidden instance does not re-arm its automatic
// triggers.
func (p *Instance) Shown() bool { return p.shown }

// Visible reports whether the instance is currently displayed.
func (p *Instance) Visible() bool { return p.visible }

// Blocked reports whether a gate stopped the automatic show.
func (p *Instance) Blocked() bool { return p.blocked }

// BlockedBy returns the gate that blocked the instance, or "".
func (p *Instance) BlockedBy() Gate { return p.blockedBy }

// Disabled reports whether the instance is disabled.
func (p *Instance) Disabled() bool { return p.disabled }

// TriggerState returns the current satisfaction flags.
func (p *Instance) TriggerState() TriggerState { return p.state }

// LastTrigger returns the most recent automatic trigger context.
func (p *Instance) LastTrigger() (TriggerContext, bool) {
	if p.lastTrigger == nil {
		return TriggerContext{}, false
	}
	return *p.lastTrigger, true
}

// ScrollThresholds returns the absolute scroll offsets computed at setup.
// A nil pointer means that trigger is not configured.
func (p *Instance) ScrollThresholds() (percent, pixels *float64) {
	return p.percentThreshold, p.pixelsThreshold
}

// On registers a handler for this instance's show or hide events.
func (p *Instance) On(t EventType, fn Handler) Subscription {
	return p.events.on(t, fn)
}

// Off removes a handler registered with On.
func (p *Instance) Off(sub Subscription) bool {
	return p.events.off(sub)
}

// OffAll removes every handler for t.
func (p *Instance) OffAll(t EventType) {
	p.events.clear(t)
}

// setupTriggers subscribes the instance to the signals it still needs and
// binds its click and close handlers. Called at construction and by Restore.
func (p *Instance) setupTriggers() {
	if p.el == nil {
		return
	}
	e := p.eng
	t := p.cfg.Triggers

	if !p.shown && !p.blocked {
		if t.needsScroll() && !(p.state.ScrollPercent && p.state.ScrollPixels) {
			p.computeScrollThresholds()
			e.scroll.subscribe(p)
		}
		if t.DelaySeconds != nil && !p.state.Delay && p.delayTimer == nil {
			p.delayTimer = e.sched.AfterFunc(t.delay(), p.onDelay)
		}
		if t.ExitIntent && !p.state.ExitIntent {
			e.exit.subscribe(p)
		}
		if t.InactivitySeconds != nil && !p.state.Inactivity {
			e.idle.subscribe(p)
		}
	}

	if t.ClickSelector != "" {
		if doc := e.document(); doc != nil {
			p.attachClickTargets(doc.Query(t.ClickSelector))
		}
	}
	p.attachCloseHandler()
}

// cleanupAutoTriggers removes the instance from every shared signal and
// cancels its delay timer. Click bindings are kept.
func (p *Instance) cleanupAutoTriggers() {
	e := p.eng
	e.scroll.unsubscribe(p)
	e.exit.unsubscribe(p)
	e.idle.unsubscribe(p)
	if p.delayTimer != nil {
		p.delayTimer.Stop()
		p.delayTimer = nil
	}
}

// computeScrollThresholds converts the configured scroll triggers into
// absolute offsets. They are not recomputed on resize.
func (p *Instance) computeScrollThresholds() {
	e := p.eng
	t := p.cfg.Triggers
	geom := e.scroll.geometry()

	ref := geom.ScrollableHeight()
	if t.relativeToFooter() {
		if footer := e.footerElement(p.cfg.FooterSelector); footer != nil {
			top := footer.BoundingRect().Top + geom.ScrollTop
			ref = max(0, top-geom.ViewportHeight)
		}
	}

	if t.ScrollPercent != nil {
		pct := viewport.Clamp(float64(*t.ScrollPercent), 0, MaxScrollPercent)
		v := pct / 100 * ref
		p.percentThreshold = &v
	}
	if t.ScrollPixels != nil {
		px := viewport.Clamp(float64(*t.ScrollPixels), 0, MaxScrollPixels)
		v := min(px, ref)
		p.pixelsThreshold = &v
	}
}

func (p *Instance) inert() bool {
	return p.shown || p.blocked || p.disabled || p.eng.disabled
}

func (p *Instance) handleScroll(geom viewport.Geometry, ev *dom.Event) {
	if p.inert() {
		return
	}

	y := geom.ScrollTop
	changed := false
	if p.percentThreshold != nil && !p.state.ScrollPercent && y >= *p.percentThreshold {
		p.state.ScrollPercent = true
		changed = true
	}
	if p.pixelsThreshold != nil && !p.state.ScrollPixels && y >= *p.pixelsThreshold {
		p.state.ScrollPixels = true
		changed = true
	}
	if changed {
		tc := autoContext(TriggerScroll, ev)
		p.lastTrigger = &tc
	}

	p.tryShow()
}

func (p *Instance) handleExitIntent(ev *dom.Event) {
	if p.inert() || !p.cfg.Triggers.ExitIntent {
		return
	}
	p.state.ExitIntent = true
	tc := autoContext(TriggerExitIntent, ev)
	p.lastTrigger = &tc
	p.tryShow()
}

func (p *Instance) handleInactivity(idle time.Duration) {
	if p.inert() || p.state.Inactivity || p.cfg.Triggers.InactivitySeconds == nil {
		return
	}
	if idle < p.inactivity {
		return
	}
	p.state.Inactivity = true
	tc := autoContext(TriggerInactivity, nil)
	p.lastTrigger = &tc
	p.tryShow()
}

func (p *Instance) onDelay() {
	p.delayTimer = nil
	if p.disabled || p.eng.disabled {
		return
	}
	p.state.Delay = true
	tc := autoContext(TriggerDelay, nil)
	p.lastTrigger = &tc
	p.tryShow()
}

// tryShow shows the instance once every automatic trigger is satisfied and
// every gate passes. A failing gate blocks the instance permanently.
func (p *Instance) tryShow() {
	if p.inert() || !p.state.All() {
		return
	}

	if gate, ok := p.checkGates(); !ok {
		p.blocked = true
		p.blockedBy = gate
		p.cleanupAutoTriggers()
		p.eng.logger.Info("popup blocked", "popup", p.id, "gate", gate)
		return
	}

	tc := autoContext(TriggerAuto, nil)
	if p.lastTrigger != nil {
		tc = *p.lastTrigger
	}
	p.show(tc)
}

// Show displays the popup with an API trigger context. Gates are not
// consulted.
func (p *Instance) Show() {
	p.show(apiContext())
}

// ShowWith displays the popup with the given trigger context.
func (p *Instance) ShowWith(tc TriggerContext) {
	p.show(tc)
}

// Hide hides the popup with an API trigger context.
func (p *Instance) Hide() {
	p.hide(apiContext())
}

// HideWith hides the popup with the given trigger context.
func (p *Instance) HideWith(tc TriggerContext) {
	p.hide(tc)
}

func (p *Instance) show(tc TriggerContext) {
	e := p.eng
	if p.el == nil || p.disabled || e.disabled {
		return
	}
	wasVisible := p.visible

	if prev := e.active; prev != nil && prev != p {
		prev.hide(TriggerContext{Trigger: TriggerSuperseded, Event: tc.Event, Source: SourceInternal})
	}
	e.active = p

	p.shown = true
	p.recordShow(e.clock.Now())
	p.cleanupAutoTriggers()

	p.visible = true
	p.markVisible()
	p.captureFocus(!wasVisible)
	p.attachKeydown()

	e.logger.Info("popup shown", "popup", p.id, "trigger", tc.Trigger, "source", tc.Source)
	e.emit(p, EventShow, tc)
}

func (p *Instance) hide(tc TriggerContext) {
	e := p.eng
	if p.el == nil {
		return
	}

	p.visible = false
	p.markHidden()
	if e.active == p {
		e.active = nil
	}
	p.detachKeydown()
	p.restoreFocus()

	e.logger.Info("popup hidden", "popup", p.id, "trigger", tc.Trigger, "source", tc.Source)
	e.emit(p, EventHide, tc)
}

// Disable stops all trigger evaluation for the instance and releases its
// listeners and timers. The popup's configuration is kept for Restore.
func (p *Instance) Disable() {
	p.disabled = true
	p.cleanupAutoTriggers()
	p.detachClickTargets()
	p.detachCloseHandler()
	p.detachKeydown()
}

// Restore re-enables a disabled instance. Automatic triggers that have not
// fired are re-armed unless the instance has already shown or been blocked.
func (p *Instance) Restore() {
	if p.el == nil {
		return
	}
	p.disabled = false
	p.setupTriggers()
	if p.visible {
		p.attachKeydown()
	}
}

// AttachClickElement binds one more element as a click trigger.
func (p *Instance) AttachClickElement(el dom.Element) {
	if el == nil {
		return
	}
	p.attachClickTargets([]dom.Element{el})
}

// Destroy disables the instance, drops its handlers, and removes it from the
// engine. A visible instance has its visible state cleared without emitting
// a hide event.
func (p *Instance) Destroy() {
	e := p.eng
	p.Disable()
	p.events.clear(EventShow)
	p.events.clear(EventHide)
	if p.visible && p.el != nil {
		p.visible = false
		p.markHidden()
	}
	if e.active == p {
		e.active = nil
	}
	e.remove(p)
	p.el = nil
}

func (p *Instance) attachClickTargets(targets []dom.Element) {
	for _, el := range targets {
		if p.hasClickTarget(el) {
			continue
		}
		remove := el.AddListener(dom.EventClick, p.onClick)
		p.clicks = append(p.clicks, clickBinding{el: el, remove: remove})
	}
}

func (p *Instance) hasClickTarget(el dom.Element) bool {
	for _, b := range p.clicks {
		if b.el == el {
			return true
		}
	}
	return false
}

func (p *Instance) detachClickTargets() {
	for _, b := range p.clicks {
		b.remove()
	}
	p.clicks = nil
}

// ClickTargets returns the number of elements bound as click triggers.
func (p *Instance) ClickTargets() int {
	return len(p.clicks)
}

// onClick shows the popup on every click. Frequency gates are skipped; the
// breakpoint gate still applies.
func (p *Instance) onClick(ev *dom.Event) {
	if p.disabled || p.eng.disabled {
		return
	}
	ev.PreventDefault()
	if !p.passesBreakpoint() {
		return
	}
	p.show(TriggerContext{Trigger: TriggerClick, Event: ev, Source: SourceDOM})
}
