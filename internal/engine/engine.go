package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/roach88/launchpop/internal/counter"
	"github.com/roach88/launchpop/internal/dom"
	"github.com/roach88/launchpop/internal/viewport"
)

// Engine is the registry of popup instances and the owner of everything they
// share: the active-popup pointer, the global disable flag, global
// listeners, defaults, and the three signal managers.
//
// Thread-safety model:
//   - Submit(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//   - everything else: call from the goroutine that owns the engine (the
//     Run goroutine, or the test goroutine when Run is not used)
//
// INVARIANTS:
//   - active is nil or the only visible instance
//   - instances keeps registration order; destroyed instances are removed
type Engine struct {
	clock   clock.Clock
	logger  *slog.Logger
	window  dom.Window
	local   counter.Store
	session counter.Store

	defaults Defaults
	sched    *scheduler
	queue    *taskQueue
	seq      *Sequence

	instances []*Instance
	active    *Instance
	disabled  bool
	global    *emitter

	scroll *scrollSignal
	exit   *exitIntentSignal
	idle   *inactivitySignal
}

// New creates an Engine. Both counter stores default to in-memory stores.
func New(opts ...Option) *Engine {
	e := &Engine{
		clock:    defaultClock(),
		logger:   slog.Default(),
		local:    counter.NewMemory(),
		session:  counter.NewMemory(),
		defaults: DefaultDefaults(),
		queue:    newTaskQueue(),
		seq:      NewSequence(),
		global:   newEmitter(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.sched = newScheduler(e.clock)
	e.scroll = newScrollSignal(e)
	e.exit = newExitIntentSignal(e)
	e.idle = newInactivitySignal(e)

	return e
}

// Register creates an instance for cfg. Without an element nothing is
// created and a MISSING_ELEMENT error is returned.
//
// The instance may show before Register returns when it has no automatic
// or click trigger.
func (e *Engine) Register(cfg Config) (*Instance, error) {
	if cfg.Element == nil {
		err := newMissingElementError(cfg.ID)
		e.logger.Warn("register requires an element", "popup", cfg.ID, "error", err)
		return nil, err
	}

	p := newInstance(e, cfg)
	e.instances = append(e.instances, p)

	if e.defaults.AutoAttachTriggers {
		e.autoAttachFor(p)
	}

	e.logger.Debug("popup registered",
		"popup", p.id,
		"shown", p.shown,
		"blocked", p.blocked,
	)
	return p, nil
}

// Instances returns the registered instances in registration order.
func (e *Engine) Instances() []*Instance {
	out := make([]*Instance, len(e.instances))
	copy(out, e.instances)
	return out
}

// Find returns the first instance with id, or nil.
func (e *Engine) Find(id string) *Instance {
	for _, p := range e.instances {
		if p.id == id {
			return p
		}
	}
	return nil
}

// Active returns the visible instance, or nil.
func (e *Engine) Active() *Instance {
	return e.active
}

// Disabled reports whether DisableAll is in effect.
func (e *Engine) Disabled() bool {
	return e.disabled
}

// DisableAll hides any visible instance and disables every instance.
func (e *Engine) DisableAll() {
	e.disabled = true
	for _, p := range e.Instances() {
		// Only the visible instance gets a hide event. Instances that showed
		// earlier and were already hidden stay silent, unlike the browser
		// library which re-hides every instance that has ever shown.
		if p.visible {
			p.hide(TriggerContext{Trigger: TriggerGlobalDisable, Source: SourceAPI})
		}
		p.Disable()
	}
	e.logger.Info("all popups disabled", "count", len(e.instances))
}

// RestoreAll clears the global disable flag and restores every instance.
func (e *Engine) RestoreAll() {
	e.disabled = false
	for _, p := range e.Instances() {
		p.Restore()
	}
	if e.defaults.AutoAttachTriggers {
		e.autoAttachAll()
	}
	e.logger.Info("all popups restored", "count", len(e.instances))
}

// On registers a global handler called after the instance handlers.
func (e *Engine) On(t EventType, fn Handler) Subscription {
	return e.global.on(t, fn)
}

// Off removes a global handler.
func (e *Engine) Off(sub Subscription) bool {
	return e.global.off(sub)
}

// OffAll removes every global handler for t.
func (e *Engine) OffAll(t EventType) {
	e.global.clear(t)
}

// Defaults returns a copy of the engine-wide defaults.
func (e *Engine) Defaults() Defaults {
	return e.defaults
}

// SetDefaults replaces the engine-wide defaults. Zero breakpoint thresholds
// fall back to the standard values. Scroll thresholds already computed are
// not affected.
func (e *Engine) SetDefaults(d Defaults) {
	e.defaults = d.normalized()
}

// SizeClass classifies the current window width.
func (e *Engine) SizeClass() viewport.Size {
	width := float64(viewport.FallbackWidth)
	if e.window != nil {
		width = e.window.Geometry().Width
	}
	return e.defaults.Breakpoints.Classify(width)
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// Logger returns the engine's logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

// Window returns the host window, or nil.
func (e *Engine) Window() dom.Window {
	return e.window
}

// SignalState reports which shared signals currently hold a host listener.
type SignalState struct {
	Scroll     bool
	ExitIntent bool
	Inactivity bool
}

// Signals returns the attach state of the shared signals.
func (e *Engine) Signals() SignalState {
	return SignalState{
		Scroll:     e.scroll.detach != nil,
		ExitIntent: e.exit.detach != nil,
		Inactivity: e.idle.attached(),
	}
}

// Submit queues fn to run on the Run goroutine.
// Thread-safe: may be called from any goroutine.
//
// Returns false if the engine has been stopped.
func (e *Engine) Submit(fn Task) bool {
	return e.queue.Enqueue(fn)
}

// NextDeadline returns when the next timer is due.
func (e *Engine) NextDeadline() (time.Time, bool) {
	return e.sched.Next()
}

// RunDue fires every timer due at the clock's current time and returns how
// many ran.
func (e *Engine) RunDue() int {
	return e.sched.RunDue()
}

// Run executes submitted tasks and due timers until ctx is cancelled or Stop
// is called.
//
// Task panics are logged and the loop continues.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting")

	for {
		if task, ok := e.queue.TryDequeue(); ok {
			e.runTask(task)
			continue
		}
		if e.sched.RunDue() > 0 {
			continue
		}

		var wake <-chan time.Time
		var t *clock.Timer
		if next, ok := e.sched.Next(); ok {
			t = e.clock.Timer(e.clock.Until(next))
			wake = t.C
		}

		select {
		case <-ctx.Done():
			stopTimer(t)
			e.logger.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			stopTimer(t)
			// The signal channel is closed by Stop, so it fires immediately
			if e.queue.Len() == 0 && e.queue.Closed() {
				e.logger.Info("engine stopping: queue closed")
				return nil
			}

		case <-wake:
		}
	}
}

func stopTimer(t *clock.Timer) {
	if t != nil {
		t.Stop()
	}
}

func (e *Engine) runTask(task Task) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("task panicked", "error", fmt.Errorf("panic: %v", r))
		}
	}()
	task()
}

// Stop closes the task queue, which makes Run return.
func (e *Engine) Stop() {
	e.queue.Close()
}

// Close destroys every instance, which detaches all shared listeners and
// cancels all timers, and stops the engine.
func (e *Engine) Close() {
	for _, p := range e.Instances() {
		p.Destroy()
	}
	e.Stop()
}

func (e *Engine) remove(p *Instance) {
	for i, q := range e.instances {
		if q == p {
			e.instances = append(e.instances[:i:i], e.instances[i+1:]...)
			return
		}
	}
}

func (e *Engine) document() dom.Document {
	if e.window == nil {
		return nil
	}
	return e.window.Document()
}

// footerElement resolves the element scroll thresholds are measured against:
// the instance selector, then the default selector, then a footer element.
func (e *Engine) footerElement(selector string) dom.Element {
	doc := e.document()
	if doc == nil {
		return nil
	}

	if selector != "" {
		if el := dom.QueryFirst(doc, selector); el != nil {
			return el
		}
	}
	if def := e.defaults.FooterSelector; def != "" && def != selector {
		selector = def
		if el := dom.QueryFirst(doc, selector); el != nil {
			return el
		}
	}
	if selector == "footer" {
		return nil
	}
	return dom.QueryFirst(doc, "footer")
}

func (e *Engine) storageFailure(id, op, key string, err error) {
	e.logger.Warn("counter store unavailable, rate limit skipped",
		"popup", id,
		"error", newStorageError(id, op, key, err),
	)
}
