package harness

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/launchpop/internal/store"
	"github.com/roach88/launchpop/internal/testutil"
)

func runYAML(t *testing.T, src string, opts ...Option) *Result {
	t.Helper()
	s, err := ParseScenario([]byte(src))
	require.NoError(t, err)
	result, err := Run(s, opts...)
	require.NoError(t, err)
	return result
}

func requirePass(t *testing.T, r *Result) {
	t.Helper()
	require.True(t, r.Pass, "errors:\n%v", r.Errors)
}

func TestRun_TestdataScenariosPass(t *testing.T) {
	files, err := FindScenarios(filepath.Join("testdata", "scenarios"), "")
	require.NoError(t, err)

	for _, f := range files {
		t.Run(filepath.Base(f), func(t *testing.T) {
			s, err := LoadScenario(f)
			require.NoError(t, err)

			result, err := Run(s)
			require.NoError(t, err)
			requirePass(t, result)
		})
	}
}

func TestRun_DelayAndInactivity(t *testing.T) {
	r := runYAML(t, `
name: timers
description: delay and inactivity share the mock clock
elements:
  - id: later
  - id: idle
definitions: |
  popup: later: triggers: delay_seconds: 3
  popup: idle: triggers: inactivity_seconds: 5
steps:
  - advance: 2s
  - activity: mousemove
  - advance: 2s
  - activity: touchstart
  - advance: 5s
assertions:
  - {type: shown, popup: later}
  - {type: shown, popup: idle}
  - {type: trace_order, events: [show later, hide later, show idle]}
  - {type: active, popup: idle}
`)
	requirePass(t, r)

	require.Len(t, r.Trace, 3)
	assert.Equal(t, int64(3000), r.Trace[0].AtMS)
	// last activity at 4s, idle threshold 5s, polled on whole seconds
	assert.Equal(t, int64(9000), r.Trace[2].AtMS)
	assert.Equal(t, "inactivity", r.Trace[2].Trigger)
}

func TestRun_ClickAndCloseButton(t *testing.T) {
	r := runYAML(t, `
name: click
description: click triggers re-show after a close button hide
elements:
  - id: promo
    children:
      - {tag: button, class: close, attrs: {data-launchpop-close: ""}}
  - {tag: a, class: cta}
  - {tag: a, id: extra}
definitions: |
  popup: promo: triggers: click_selector: ".cta"
steps:
  - click: .cta
  - click: .close
  - attach: {popup: promo, target: "#extra"}
  - click: "#extra"
assertions:
  - {type: trace_count, event: show, popup: promo, count: 2}
  - {type: trigger, popup: promo, trigger: click}
  - {type: visible, popup: promo}
`)
	requirePass(t, r)

	require.Len(t, r.Trace, 3)
	assert.Equal(t, "close-button", r.Trace[1].Trigger)
	assert.Equal(t, "dom", r.Trace[1].Source)
}

func TestRun_DisableAndRestoreAll(t *testing.T) {
	r := runYAML(t, `
name: global
description: disable_all hides the visible popup and stops timers
elements:
  - id: now
  - id: later
definitions: |
  popup: now: {}
  popup: later: triggers: delay_seconds: 10
steps:
  - disable_all: true
  - advance: 20s
  - restore_all: true
  - advance: 10s
assertions:
  - {type: trace_order, events: [show now, hide now, show later]}
  - {type: active, popup: later}
`)
	requirePass(t, r)
	assert.Equal(t, "global-disable", r.Trace[1].Trigger)
	assert.Equal(t, int64(30000), r.Trace[2].AtMS)
}

func TestRun_InstanceSteps(t *testing.T) {
	r := runYAML(t, `
name: api
description: api steps drive one popup
elements:
  - id: promo
  - id: other
definitions: |
  popup: promo: triggers: exit_intent: true
  popup: other: triggers: exit_intent: true
steps:
  - show: promo
  - hide: promo
  - disable: promo
  - mouseout: {client_y: 0}
  - restore: promo
  - destroy: other
  - mouseout: {client_y: 10}
assertions:
  - {type: trace_count, event: show, popup: promo, count: 1}
  - {type: trace_count, event: hide, count: 1}
  - {type: trigger, popup: promo, trigger: api}
  - {type: shown, popup: other, want: false}
`)
	assert.False(t, r.Pass, "other was destroyed, so its state is unknown")
	require.Len(t, r.Errors, 1)
	assert.Contains(t, r.Errors[0], "popup other registered")
	assert.Equal(t, PopupState{Shown: true, LastTrigger: ""}, r.Popups["promo"])
}

func TestRun_ResizeAndKeyboard(t *testing.T) {
	r := runYAML(t, `
name: keys
description: tab wraps focus, resize changes the size class
viewport: {width: 1400}
elements:
  - id: promo
    children:
      - {tag: button, id: first}
      - {tag: button, id: last}
  - id: cta
definitions: |
  popup: promo: {
    triggers: click_selector: "#cta"
    limits: breakpoints: large: false
  }
steps:
  - click: "#cta"
  - resize: {width: 1000}
  - click: "#cta"
  - focus: "#last"
  - key: Tab
  - key: Esc
assertions:
  - {type: trace_order, events: [show promo, hide promo]}
  - {type: active, popup: ""}
`)
	requirePass(t, r)
	assert.Equal(t, "esc", r.Trace[1].Trigger)
}

func TestRun_SeededCountersAndScenarioStart(t *testing.T) {
	r := runYAML(t, `
name: seeded
description: last_shown seeds are relative to start
start: "2025-06-01T12:00:00Z"
session: s-1
elements:
  - id: promo
definitions: |
  popup: promo: {
    triggers: delay_seconds: 1
    limits: {minutes: 10, max: 5}
  }
counters:
  last_shown: {promo: 11m}
  local: {launchpop_lastShown_other: "1"}
  session: {launchpop_sessionCount_promo: "not-a-number"}
steps:
  - advance: 1s
assertions:
  - {type: shown, popup: promo}
  - {type: counter, scope: local, key: launchpop_lastShown_promo, value: "1748779201000"}
  - {type: counter, scope: local, key: launchpop_lastShown_other, value: "1"}
  - {type: counter, scope: session, key: launchpop_sessionCount_promo, value: "1"}
`)
	requirePass(t, r)
}

func TestRun_WithStoreKeepsCounters(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "counters.db"))
	require.NoError(t, err)
	defer st.Close()

	src := `
name: persisted
description: counters survive in a shared store
session: shared
elements:
  - id: promo
definitions: |
  popup: promo: limits: max: 1
steps:
  - advance: 1s
assertions:
  - {type: active, popup: promo}
`
	requirePass(t, runYAML(t, src, WithStore(st)))

	second := runYAML(t, src, WithStore(st))
	assert.False(t, second.Pass)
	assert.True(t, second.Popups["promo"].Blocked)
	assert.Equal(t, "max", second.Popups["promo"].BlockedBy)

	sessions, err := st.Sessions(t.Context())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "shared", sessions[0].ID)

	// Rows are stamped with simulated time, the same timebase as sessions.
	rows, err := st.List(t.Context(), "")
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	for _, c := range rows {
		assert.WithinRange(t, c.UpdatedAt, testutil.Epoch, testutil.Epoch.Add(time.Second), c.Key)
	}
}

func TestRun_StepErrors(t *testing.T) {
	tests := map[string]string{
		"unknown popup":    "steps: [{show: ghost}]",
		"unknown selector": "steps: [{click: '#ghost'}]",
		"bad definitions":  "definitions: 'popup: x: triggers: scroll_percent: 500'\nsteps: [{advance: 1s}]",
		"unbound selector": "definitions: 'popup: ghost: {}'\nsteps: [{advance: 1s}]",
		"bad init root":    "init: {root: '#ghost'}\nsteps: [{advance: 1s}]",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			s, err := ParseScenario([]byte("name: e\ndescription: d\nassertions: [{type: active}]\n" + body + "\n"))
			require.NoError(t, err)
			_, err = Run(s)
			assert.Error(t, err)
		})
	}
}
