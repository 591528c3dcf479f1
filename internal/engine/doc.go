// Package engine implements the launchpop trigger and visibility engine.
//
// The engine decides, for each registered popup, when it becomes visible and
// whether it is allowed to. Trigger sources (scroll, delay, exit intent,
// inactivity, click) mark per-instance satisfaction flags; once every
// configured flag is set the instance evaluates its breakpoint and frequency
// gates and, on pass, becomes the single active popup.
//
// ARCHITECTURE:
//
// Engine context:
// Everything that a browser library would keep in globals (signal managers,
// registry, active-popup pointer, global listeners, defaults) lives on an
// explicitly constructed Engine. Independent engines never share state.
//
// Single-writer execution:
// All state transitions happen synchronously inside whatever callback fired
// (a DOM listener, a due timer, an API call). Nothing is locked. When the
// engine is driven by Run, other goroutines hand work to it with Submit.
//
// Shared signals:
// Scroll, exit-intent, and inactivity each own one host listener (and, for
// inactivity, one poll timer) that is attached while at least one instance
// is subscribed and detached as soon as the last one leaves.
//
// Timers:
// Delay triggers and the inactivity poll run on the engine's scheduler, a
// timer heap read against the injected clock. Tests advance a mock clock and
// call RunDue to fire whatever became due.
//
// INVARIANTS:
//   - At most one instance is visible at a time.
//   - An instance's shown flag is set at most once and never cleared.
//   - Trigger satisfaction flags never go from true to false.
//   - A blocked instance makes no further automatic attempts.
package engine
