package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %6dms %s %s (%s)\n", i+1, ev.AtMS, ev.Type, ev.Popup, ev.Trigger)
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion against the result and returns
// the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for _, a := range assertions {
		if err := evaluate(result, a); err != nil {
			failures = append(failures, err.Error())
		}
	}
	return failures
}

func evaluate(r *Result, a Assertion) error {
	switch a.Type {
	case AssertShown, AssertVisible, AssertBlocked:
		return assertFlag(r, a)
	case AssertActive:
		return assertActive(r, a)
	case AssertTrigger:
		return assertTrigger(r, a)
	case AssertTraceOrder:
		return assertTraceOrder(r.Trace, a)
	case AssertTraceCount:
		return assertTraceCount(r.Trace, a)
	case AssertCounter:
		return assertCounter(r, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertFlag checks a boolean popup state. A blocked assertion with a gate
// also checks which gate blocked the popup.
func assertFlag(r *Result, a Assertion) error {
	st, ok := r.Popups[a.Popup]
	if !ok {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("popup %s registered", a.Popup),
			Actual:   "not registered",
		}
	}

	var got bool
	switch a.Type {
	case AssertShown:
		got = st.Shown
	case AssertVisible:
		got = st.Visible
	case AssertBlocked:
		got = st.Blocked
	}
	if got != a.want() {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s %s = %t", a.Popup, a.Type, a.want()),
			Actual:   fmt.Sprintf("%t", got),
			Trace:    r.Trace,
		}
	}

	if a.Type == AssertBlocked && a.Gate != "" && st.BlockedBy != a.Gate {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s blocked by %s", a.Popup, a.Gate),
			Actual:   fmt.Sprintf("blocked by %q", st.BlockedBy),
		}
	}
	return nil
}

func assertActive(r *Result, a Assertion) error {
	if r.Active == a.Popup {
		return nil
	}
	want, got := a.Popup, r.Active
	if want == "" {
		want = "(none)"
	}
	if got == "" {
		got = "(none)"
	}
	return &AssertionError{
		Type:     AssertActive,
		Expected: fmt.Sprintf("active popup %s", want),
		Actual:   got,
		Trace:    r.Trace,
	}
}

// assertTrigger checks the trigger of the popup's most recent show.
func assertTrigger(r *Result, a Assertion) error {
	for i := len(r.Trace) - 1; i >= 0; i-- {
		ev := r.Trace[i]
		if ev.Type != "show" || ev.Popup != a.Popup {
			continue
		}
		if ev.Trigger == a.Trigger {
			return nil
		}
		return &AssertionError{
			Type:     AssertTrigger,
			Expected: fmt.Sprintf("%s last shown by %s", a.Popup, a.Trigger),
			Actual:   fmt.Sprintf("shown by %s", ev.Trigger),
			Trace:    r.Trace,
		}
	}
	return &AssertionError{
		Type:     AssertTrigger,
		Expected: fmt.Sprintf("%s last shown by %s", a.Popup, a.Trigger),
		Actual:   "never shown",
		Trace:    r.Trace,
	}
}

// assertTraceOrder checks that events appear in the specified order.
// Events don't need to be consecutive; each is matched after the previous.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	pos := 0
	for _, ref := range a.Events {
		typ, popup, err := parseEventRef(ref)
		if err != nil {
			return err
		}
		found := false
		for pos < len(trace) {
			ev := trace[pos]
			pos++
			if ev.Type == typ && ev.Popup == popup {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("events in order: %v", a.Events),
				Actual:   fmt.Sprintf("%q not found after the preceding events", ref),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks how many events match Event and, if set, Popup.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Type == a.Event && (a.Popup == "" || ev.Popup == a.Popup) {
			count++
		}
	}

	if count != a.Count {
		what := a.Event
		if a.Popup != "" {
			what += " " + a.Popup
		}
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, what),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertCounter checks a stored counter. A nil Value asserts the key is
// absent.
func assertCounter(r *Result, a Assertion) error {
	got, ok := r.Counters[a.Scope][a.Key]
	switch {
	case a.Value == nil && !ok:
		return nil
	case a.Value == nil:
		return &AssertionError{
			Type:     AssertCounter,
			Expected: fmt.Sprintf("%s/%s absent", a.Scope, a.Key),
			Actual:   fmt.Sprintf("%q", got),
		}
	case !ok:
		return &AssertionError{
			Type:     AssertCounter,
			Expected: fmt.Sprintf("%s/%s = %q", a.Scope, a.Key, *a.Value),
			Actual:   "absent",
		}
	case got != *a.Value:
		return &AssertionError{
			Type:     AssertCounter,
			Expected: fmt.Sprintf("%s/%s = %q", a.Scope, a.Key, *a.Value),
			Actual:   fmt.Sprintf("%q", got),
		}
	}
	return nil
}
