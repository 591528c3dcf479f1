// Package harness runs popup behaviour scenarios against a simulated page.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: scroll_then_exit_intent
//	description: "A scroll popup is superseded by an exit-intent popup"
//	viewport: {width: 1280, height: 800, document_height: 3000}
//	elements:
//	  - id: promo
//	  - id: exit
//	definitions: |
//	  popup: promo: triggers: scroll_percent: 50
//	  popup: exit: {triggers: exit_intent: true, limits: minutes: 30}
//	steps:
//	  - scroll: 1200
//	  - advance: 2s
//	  - mouseout: {client_y: 0}
//	  - key: Escape
//	assertions:
//	  - {type: trace_order, events: ["show promo", "hide promo", "show exit"]}
//	  - {type: active, popup: ""}
//
// Popups come from CUE definitions (bound by selector, "#<id>" by default)
// and from data-launchpop-* attributes when an init block is present.
//
// # Steps
//
// advance, scroll, mouseout, activity, click, key, resize, focus, show,
// hide, disable, restore, destroy, disable_all, restore_all and attach.
// Each step sets exactly one of these keys.
//
// # Assertion Types
//
//   - shown, visible, blocked: a popup flag, with optional want: false
//   - active: which popup is on screen ("" for none)
//   - trigger: the trigger of a popup's last show
//   - trace_order: events occur in order ("show promo", "hide promo")
//   - trace_count: number of show or hide events, optionally per popup
//   - counter: a stored value in the local or session scope
//
// # Deterministic Testing
//
// Every scenario runs on a mock clock starting at testutil.Epoch (or the
// scenario's start), with a fixed session id and a fresh in-memory SQLite
// counter store, so traces can be compared against golden files.
package harness
