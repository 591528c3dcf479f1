package harness

import (
	"github.com/roach88/launchpop/internal/engine"
)

// TraceEvent is one show or hide observed by the harness.
type TraceEvent struct {
	// AtMS is the time since the scenario start, in milliseconds.
	AtMS    int64  `json:"at_ms"`
	Seq     int64  `json:"seq"`
	Type    string `json:"type"`
	Popup   string `json:"popup"`
	Trigger string `json:"trigger"`
	Source  string `json:"source,omitempty"`
}

// PopupState is the final state of one registered popup.
type PopupState struct {
	Shown       bool   `json:"shown"`
	Visible     bool   `json:"visible"`
	Blocked     bool   `json:"blocked"`
	BlockedBy   string `json:"blocked_by,omitempty"`
	Disabled    bool   `json:"disabled"`
	LastTrigger string `json:"last_trigger,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	Pass bool `json:"pass"`

	// Trace contains every show and hide in emission order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failures and step problems.
	Errors []string `json:"errors,omitempty"`

	// Popups is the final state keyed by popup id. When several instances
	// share an id, the last registered wins.
	Popups map[string]PopupState `json:"popups"`

	// Active is the id of the visible popup, or "".
	Active string `json:"active,omitempty"`

	// Counters holds the stored values per scope ("local", "session").
	Counters map[string]map[string]string `json:"counters"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Errors:   []string{},
		Popups:   make(map[string]PopupState),
		Counters: map[string]map[string]string{ScopeLocal: {}, ScopeSession: {}},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// snapshot records the final state of p.
func (r *Result) snapshot(p *engine.Instance) {
	st := PopupState{
		Shown:     p.Shown(),
		Visible:   p.Visible(),
		Blocked:   p.Blocked(),
		BlockedBy: string(p.BlockedBy()),
		Disabled:  p.Disabled(),
	}
	if tc, ok := p.LastTrigger(); ok {
		st.LastTrigger = string(tc.Trigger)
	}
	r.Popups[p.ID()] = st
}
