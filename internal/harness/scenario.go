package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario defines a popup behaviour scenario.
// A scenario builds a simulated page, registers popups on it, drives user
// input and time through steps, and asserts on the resulting trace and
// final state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Start is the RFC 3339 wall-clock time the scenario begins at.
	// Defaults to testutil.Epoch.
	Start string `yaml:"start,omitempty"`

	// Session is the browsing-session id used to scope session counters.
	// Defaults to "test-session-default".
	Session string `yaml:"session,omitempty"`

	// Viewport sets the initial page geometry.
	Viewport Viewport `yaml:"viewport"`

	// Defaults overrides the engine-wide defaults.
	Defaults *DefaultsSpec `yaml:"defaults,omitempty"`

	// Elements are appended to the page body in order.
	Elements []ElementSpec `yaml:"elements,omitempty"`

	// Definitions is CUE source declaring `popup: <name>: {...}` values.
	// Each definition is bound to the element its selector finds.
	Definitions string `yaml:"definitions,omitempty"`

	// Init registers every element carrying data-launchpop-id.
	Init *InitSpec `yaml:"init,omitempty"`

	// Counters seeds the counter stores before registration.
	Counters Counters `yaml:"counters,omitempty"`

	// Steps drive input and time, in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// Viewport is the initial page geometry in CSS pixels.
type Viewport struct {
	Width          float64 `yaml:"width"`
	Height         float64 `yaml:"height"`
	DocumentHeight float64 `yaml:"document_height"`
}

// DefaultsSpec overrides engine.Defaults. Zero breakpoints keep the base ones.
type DefaultsSpec struct {
	AutoAttachTriggers bool   `yaml:"auto_attach_triggers"`
	FooterSelector     string `yaml:"footer_selector,omitempty"`
	SmallMax           int    `yaml:"small_max,omitempty"`
	MediumMax          int    `yaml:"medium_max,omitempty"`
}

// InitSpec configures attribute-based registration.
type InitSpec struct {
	// Root is a selector limiting the scan; empty scans the whole page.
	Root               string `yaml:"root,omitempty"`
	AutoAttachTriggers bool   `yaml:"auto_attach_triggers"`
	SmallMax           int    `yaml:"small_max,omitempty"`
	MediumMax          int    `yaml:"medium_max,omitempty"`
}

// ElementSpec describes one page element.
type ElementSpec struct {
	// Tag defaults to "div".
	Tag string `yaml:"tag,omitempty"`

	// ID sets the id attribute.
	ID string `yaml:"id,omitempty"`

	// Class sets the class attribute.
	Class string `yaml:"class,omitempty"`

	// Parent is a selector for the containing element. Empty means body.
	Parent string `yaml:"parent,omitempty"`

	// Attrs are set verbatim.
	Attrs map[string]string `yaml:"attrs,omitempty"`

	// Top and Height position the element in document coordinates.
	Top    float64 `yaml:"top,omitempty"`
	Height float64 `yaml:"height,omitempty"`

	// Children are appended to this element.
	Children []ElementSpec `yaml:"children,omitempty"`
}

// Counters seeds stored counter values.
type Counters struct {
	// LastShown maps a popup id to how long before the start it was last
	// shown, as a Go duration ("45m").
	LastShown map[string]string `yaml:"last_shown,omitempty"`

	// SessionCount maps a popup id to shows already counted this session.
	SessionCount map[string]int `yaml:"session_count,omitempty"`

	// Local and Session set raw storage keys.
	Local   map[string]string `yaml:"local,omitempty"`
	Session map[string]string `yaml:"session,omitempty"`
}

// Step is one scenario action. Exactly one field must be set.
type Step struct {
	Advance    string       `yaml:"advance,omitempty"`
	Scroll     *float64     `yaml:"scroll,omitempty"`
	MouseOut   *MouseOut    `yaml:"mouseout,omitempty"`
	Activity   string       `yaml:"activity,omitempty"`
	Click      string       `yaml:"click,omitempty"`
	Key        string       `yaml:"key,omitempty"`
	Resize     *Resize      `yaml:"resize,omitempty"`
	Focus      string       `yaml:"focus,omitempty"`
	Show       string       `yaml:"show,omitempty"`
	Hide       string       `yaml:"hide,omitempty"`
	Disable    string       `yaml:"disable,omitempty"`
	Restore    string       `yaml:"restore,omitempty"`
	Destroy    string       `yaml:"destroy,omitempty"`
	DisableAll bool         `yaml:"disable_all,omitempty"`
	RestoreAll bool         `yaml:"restore_all,omitempty"`
	Attach     *AttachClick `yaml:"attach,omitempty"`
}

// MouseOut moves the pointer out of an element.
type MouseOut struct {
	ClientY float64 `yaml:"client_y"`
	// To is a selector for the element entered; empty means the pointer
	// left the window.
	To string `yaml:"to,omitempty"`
}

// Resize changes the viewport size.
type Resize struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height,omitempty"`
}

// AttachClick binds an extra click trigger to a popup.
type AttachClick struct {
	Popup  string `yaml:"popup"`
	Target string `yaml:"target"`
}

// Step kinds, as reported by Step.Kind.
const (
	StepAdvance    = "advance"
	StepScroll     = "scroll"
	StepMouseOut   = "mouseout"
	StepActivity   = "activity"
	StepClick      = "click"
	StepKey        = "key"
	StepResize     = "resize"
	StepFocus      = "focus"
	StepShow       = "show"
	StepHide       = "hide"
	StepDisable    = "disable"
	StepRestore    = "restore"
	StepDestroy    = "destroy"
	StepDisableAll = "disable_all"
	StepRestoreAll = "restore_all"
	StepAttach     = "attach"
)

// Activity kinds accepted by the activity step.
const (
	ActivityMouseMove  = "mousemove"
	ActivityTouchStart = "touchstart"
)

// kinds lists the actions set on s.
func (s Step) kinds() []string {
	var out []string
	add := func(set bool, kind string) {
		if set {
			out = append(out, kind)
		}
	}
	add(s.Advance != "", StepAdvance)
	add(s.Scroll != nil, StepScroll)
	add(s.MouseOut != nil, StepMouseOut)
	add(s.Activity != "", StepActivity)
	add(s.Click != "", StepClick)
	add(s.Key != "", StepKey)
	add(s.Resize != nil, StepResize)
	add(s.Focus != "", StepFocus)
	add(s.Show != "", StepShow)
	add(s.Hide != "", StepHide)
	add(s.Disable != "", StepDisable)
	add(s.Restore != "", StepRestore)
	add(s.Destroy != "", StepDestroy)
	add(s.DisableAll, StepDisableAll)
	add(s.RestoreAll, StepRestoreAll)
	add(s.Attach != nil, StepAttach)
	return out
}

// Kind returns the step's kind, or "" if it is not exactly one action.
func (s Step) Kind() string {
	kinds := s.kinds()
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "shown": popup has (or has not) shown
	// - "visible": popup is (or is not) on screen
	// - "blocked": popup was (or was not) blocked, optionally by Gate
	// - "active": Popup is the visible popup; empty means none is
	// - "trigger": the popup's last trigger kind equals Trigger
	// - "trace_order": Events appear in order, e.g. "show promo"
	// - "trace_count": events matching Event and Popup occur Count times
	// - "counter": stored Key in Scope equals Value
	Type string `yaml:"type"`

	Popup   string   `yaml:"popup,omitempty"`
	Want    *bool    `yaml:"want,omitempty"`
	Gate    string   `yaml:"gate,omitempty"`
	Trigger string   `yaml:"trigger,omitempty"`
	Events  []string `yaml:"events,omitempty"`
	Event   string   `yaml:"event,omitempty"`
	Count   int      `yaml:"count,omitempty"`
	Scope   string   `yaml:"scope,omitempty"`
	Key     string   `yaml:"key,omitempty"`
	Value   *string  `yaml:"value,omitempty"`
}

// Assertion type constants.
const (
	AssertShown      = "shown"
	AssertVisible    = "visible"
	AssertBlocked    = "blocked"
	AssertActive     = "active"
	AssertTrigger    = "trigger"
	AssertTraceOrder = "trace_order"
	AssertTraceCount = "trace_count"
	AssertCounter    = "counter"
)

// Counter scopes accepted by the counter assertion.
const (
	ScopeLocal   = "local"
	ScopeSession = "session"
)

// want returns the expected boolean, defaulting to true.
func (a Assertion) want() bool {
	return a.Want == nil || *a.Want
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// FindScenarios returns the scenario files at path. A file is returned as
// is; a directory yields its .yaml and .yml files whose base name matches
// filter (all files when filter is empty), sorted.
func FindScenarios(path, filter string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		if filter != "" {
			ok, err := filepath.Match(filter, name)
			if err != nil {
				return nil, fmt.Errorf("invalid filter %q: %w", filter, err)
			}
			if !ok {
				continue
			}
		}
		files = append(files, filepath.Join(path, name))
	}
	sort.Strings(files)
	return files, nil
}

// startTime returns the parsed Start, or the zero time if unset.
func (s *Scenario) startTime() (time.Time, error) {
	if s.Start == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s.Start)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if _, err := s.startTime(); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	if s.Viewport.Width < 0 || s.Viewport.Height < 0 || s.Viewport.DocumentHeight < 0 {
		return fmt.Errorf("viewport: dimensions must not be negative")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for popup, ago := range s.Counters.LastShown {
		if _, err := time.ParseDuration(ago); err != nil {
			return fmt.Errorf("counters.last_shown[%s]: %w", popup, err)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, s Step) error {
	kinds := s.kinds()
	switch len(kinds) {
	case 0:
		return fmt.Errorf("steps[%d]: no action set", index)
	case 1:
	default:
		return fmt.Errorf("steps[%d]: multiple actions set: %s", index, strings.Join(kinds, ", "))
	}

	switch kinds[0] {
	case StepAdvance:
		d, err := time.ParseDuration(s.Advance)
		if err != nil {
			return fmt.Errorf("steps[%d].advance: %w", index, err)
		}
		if d < 0 {
			return fmt.Errorf("steps[%d].advance: must not be negative", index)
		}
	case StepActivity:
		if s.Activity != ActivityMouseMove && s.Activity != ActivityTouchStart {
			return fmt.Errorf("steps[%d].activity: unknown kind %q (want %s or %s)",
				index, s.Activity, ActivityMouseMove, ActivityTouchStart)
		}
	case StepResize:
		if s.Resize.Width <= 0 {
			return fmt.Errorf("steps[%d].resize: width must be positive", index)
		}
	case StepAttach:
		if s.Attach.Popup == "" || s.Attach.Target == "" {
			return fmt.Errorf("steps[%d].attach: popup and target are required", index)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertShown, AssertVisible, AssertBlocked:
		if a.Popup == "" {
			return fmt.Errorf("assertions[%d]: %s assertion requires 'popup' field", index, a.Type)
		}
	case AssertActive:
	case AssertTrigger:
		if a.Popup == "" || a.Trigger == "" {
			return fmt.Errorf("assertions[%d]: trigger assertion requires 'popup' and 'trigger' fields", index)
		}
	case AssertTraceOrder:
		if len(a.Events) < 2 {
			return fmt.Errorf("assertions[%d]: trace_order assertion requires at least 2 'events'", index)
		}
		for j, ev := range a.Events {
			if _, _, err := parseEventRef(ev); err != nil {
				return fmt.Errorf("assertions[%d].events[%d]: %w", index, j, err)
			}
		}
	case AssertTraceCount:
		if a.Event != "show" && a.Event != "hide" {
			return fmt.Errorf("assertions[%d]: trace_count assertion requires 'event' of show or hide", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: trace_count assertion requires non-negative 'count'", index)
		}
	case AssertCounter:
		if a.Scope != ScopeLocal && a.Scope != ScopeSession {
			return fmt.Errorf("assertions[%d]: counter assertion requires 'scope' of %s or %s", index, ScopeLocal, ScopeSession)
		}
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: counter assertion requires 'key' field", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// parseEventRef splits "show promo" into its event type and popup id.
func parseEventRef(ref string) (event, popup string, err error) {
	fields := strings.Fields(ref)
	if len(fields) != 2 {
		return "", "", fmt.Errorf("event %q must be \"<show|hide> <popup>\"", ref)
	}
	if fields[0] != "show" && fields[0] != "hide" {
		return "", "", fmt.Errorf("event %q: unknown type %q", ref, fields[0])
	}
	return fields[0], fields[1], nil
}
