package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/roach88/launchpop/internal/counter"
	"github.com/roach88/launchpop/internal/definition"
	"github.com/roach88/launchpop/internal/dom"
	"github.com/roach88/launchpop/internal/engine"
	"github.com/roach88/launchpop/internal/store"
	"github.com/roach88/launchpop/internal/testutil"
	"github.com/roach88/launchpop/internal/viewport"
)

// Default page geometry used when a scenario leaves a dimension unset.
const (
	DefaultWidth          = 1280
	DefaultHeight         = 800
	DefaultDocumentHeight = 3000
)

// Option configures a scenario run.
type Option func(*runConfig)

type runConfig struct {
	store    *store.Store
	logger   *slog.Logger
	defaults *engine.Defaults
}

// WithStore runs the scenario against st instead of a fresh in-memory
// database. Counters written by the scenario remain in st.
func WithStore(st *store.Store) Option {
	return func(c *runConfig) {
		c.store = st
	}
}

// WithLogger sets the engine logger. Logs are discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) {
		c.logger = l
	}
}

// WithDefaults replaces the engine defaults the scenario's own defaults
// section is applied on top of.
func WithDefaults(d engine.Defaults) Option {
	return func(c *runConfig) {
		c.defaults = &d
	}
}

// Harness executes one scenario against a simulated page.
type Harness struct {
	scenario *Scenario
	store    *store.Store
	page     *dom.Page
	clock    *clock.Mock
	engine   *engine.Engine
	local    *store.Bucket
	session  *store.Bucket
	start    time.Time
	logger   *slog.Logger
	defaults engine.Defaults
	result   *Result
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database unless WithStore is
// given. The mock clock and fixed session id make the trace reproducible.
//
// Execution flow:
//  1. Build the page from viewport and elements
//  2. Seed counters and start the session
//  3. Register popups from definitions and attributes
//  4. Execute steps
//  5. Snapshot state and evaluate assertions
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}
	defaults := engine.DefaultDefaults()
	if cfg.defaults != nil {
		defaults = *cfg.defaults
	}

	st := cfg.store
	if st == nil {
		var err error
		st, err = store.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		defer st.Close()
	}

	start, err := scenario.startTime()
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	mock := testutil.NewMockClock(start)

	h := &Harness{
		scenario: scenario,
		store:    st,
		page:     newPage(scenario.Viewport),
		clock:    mock,
		start:    mock.Now(),
		logger:   cfg.logger,
		defaults: defaults,
		result:   NewResult(),
	}

	ctx := context.Background()
	if err := h.setup(ctx); err != nil {
		return nil, err
	}
	defer h.engine.Close()

	for i, step := range scenario.Steps {
		if err := h.execute(step); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Kind(), err)
		}
	}

	if err := h.collect(ctx); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions) {
		h.result.AddError(msg)
	}
	return h.result, nil
}

func newPage(v Viewport) *dom.Page {
	geom := viewport.Geometry{
		Width:          v.Width,
		ViewportHeight: v.Height,
		DocumentHeight: v.DocumentHeight,
	}
	if geom.Width == 0 {
		geom.Width = DefaultWidth
	}
	if geom.ViewportHeight == 0 {
		geom.ViewportHeight = DefaultHeight
	}
	if geom.DocumentHeight == 0 {
		geom.DocumentHeight = DefaultDocumentHeight
	}
	return dom.NewPage(geom)
}

func (h *Harness) setup(ctx context.Context) error {
	s := h.scenario

	for i, el := range s.Elements {
		if err := h.addElement(h.page.Body(), el); err != nil {
			return fmt.Errorf("elements[%d]: %w", i, err)
		}
	}

	sess, err := h.store.StartSession(ctx, testutil.NewFixedSessionGenerator(s.Session), h.start)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	h.local = h.store.Bucket(store.LocalScope, h.clock)
	h.session = h.store.Bucket(store.SessionScope(sess.ID), h.clock)
	if err := h.seed(); err != nil {
		return fmt.Errorf("seed counters: %w", err)
	}

	defaults := h.defaults
	if d := s.Defaults; d != nil {
		defaults.AutoAttachTriggers = d.AutoAttachTriggers
		if d.FooterSelector != "" {
			defaults.FooterSelector = d.FooterSelector
		}
		if d.SmallMax > 0 {
			defaults.Breakpoints.SmallMax = d.SmallMax
		}
		if d.MediumMax > 0 {
			defaults.Breakpoints.MediumMax = d.MediumMax
		}
	}

	h.engine = engine.New(
		engine.WithClock(h.clock),
		engine.WithWindow(h.page),
		engine.WithLogger(h.logger),
		engine.WithLocalStore(h.local),
		engine.WithSessionStore(h.session),
		engine.WithDefaults(defaults),
	)
	h.engine.On(engine.EventShow, h.record)
	h.engine.On(engine.EventHide, h.record)

	if s.Definitions != "" {
		loader, err := definition.NewLoader()
		if err != nil {
			return err
		}
		defs, errs := loader.Compile(s.Name+".cue", []byte(s.Definitions))
		if len(errs) > 0 {
			return fmt.Errorf("definitions: %w", errs[0])
		}
		if _, errs := definition.Bind(h.engine, defs); len(errs) > 0 {
			return fmt.Errorf("definitions: %w", errs[0])
		}
	}

	if in := s.Init; in != nil {
		opts := definition.InitOptions{AutoAttachTriggers: in.AutoAttachTriggers}
		if in.Root != "" {
			root, err := h.element(in.Root)
			if err != nil {
				return fmt.Errorf("init: %w", err)
			}
			opts.Root = root
		}
		if in.SmallMax > 0 || in.MediumMax > 0 {
			opts.Breakpoints = &viewport.Breakpoints{SmallMax: in.SmallMax, MediumMax: in.MediumMax}
		}
		if _, err := definition.Init(h.engine, opts); err != nil {
			return fmt.Errorf("init: %w", err)
		}
	}

	return nil
}

func (h *Harness) addElement(parent *dom.Node, spec ElementSpec) error {
	if spec.Parent != "" {
		p, err := h.element(spec.Parent)
		if err != nil {
			return err
		}
		parent = p
	}

	tag := spec.Tag
	if tag == "" {
		tag = "div"
	}
	n := h.page.CreateElement(tag)
	if spec.ID != "" {
		n.SetAttr("id", spec.ID)
	}
	if spec.Class != "" {
		n.SetAttr("class", spec.Class)
	}
	for k, v := range spec.Attrs {
		n.SetAttr(k, v)
	}
	n.SetLayout(spec.Top, spec.Height)
	parent.AppendChild(n)

	for i, child := range spec.Children {
		if err := h.addElement(n, child); err != nil {
			return fmt.Errorf("children[%d]: %w", i, err)
		}
	}
	return nil
}

// seed writes the scenario's initial counters.
func (h *Harness) seed() error {
	c := h.scenario.Counters
	for key, v := range c.Local {
		if err := h.local.Set(key, v); err != nil {
			return err
		}
	}
	for key, v := range c.Session {
		if err := h.session.Set(key, v); err != nil {
			return err
		}
	}
	for id, ago := range c.LastShown {
		d, err := time.ParseDuration(ago)
		if err != nil {
			return err
		}
		at := h.start.Add(-d).UnixMilli()
		if err := h.local.Set(counter.LastShownKey(id), strconv.FormatInt(at, 10)); err != nil {
			return err
		}
	}
	for id, n := range c.SessionCount {
		if err := h.session.Set(counter.SessionCountKey(id), strconv.Itoa(n)); err != nil {
			return err
		}
	}
	return nil
}

// element resolves selector to the first matching page node.
func (h *Harness) element(selector string) (*dom.Node, error) {
	nodes := h.page.QueryNodes(selector)
	if len(nodes) == 0 {
		return nil, fmt.Errorf("no element matches %q", selector)
	}
	return nodes[0], nil
}

func (h *Harness) popup(id string) (*engine.Instance, error) {
	p := h.engine.Find(id)
	if p == nil {
		return nil, fmt.Errorf("no popup registered with id %q", id)
	}
	return p, nil
}

func (h *Harness) record(ev engine.Event) error {
	h.result.Trace = append(h.result.Trace, TraceEvent{
		AtMS:    ev.Timestamp.Sub(h.start).Milliseconds(),
		Seq:     ev.Seq,
		Type:    string(ev.Type),
		Popup:   ev.Instance.ID(),
		Trigger: string(ev.Trigger),
		Source:  string(ev.Context.Source),
	})
	return nil
}

// execute runs one validated step.
func (h *Harness) execute(s Step) error {
	switch s.Kind() {
	case StepAdvance:
		d, err := time.ParseDuration(s.Advance)
		if err != nil {
			return err
		}
		testutil.Advance(h.clock, h.engine, d)
	case StepScroll:
		h.page.ScrollTo(*s.Scroll)
	case StepMouseOut:
		var related dom.Element
		if s.MouseOut.To != "" {
			n, err := h.element(s.MouseOut.To)
			if err != nil {
				return err
			}
			related = n
		}
		h.page.MouseOut(s.MouseOut.ClientY, related)
	case StepActivity:
		if s.Activity == ActivityTouchStart {
			h.page.TouchStart()
		} else {
			h.page.MouseMove()
		}
	case StepClick:
		n, err := h.element(s.Click)
		if err != nil {
			return err
		}
		h.page.Click(n)
	case StepKey:
		key, shift := parseKey(s.Key)
		h.page.KeyDown(key, shift)
	case StepResize:
		height := s.Resize.Height
		if height == 0 {
			height = h.page.Geometry().ViewportHeight
		}
		h.page.Resize(s.Resize.Width, height)
	case StepFocus:
		n, err := h.element(s.Focus)
		if err != nil {
			return err
		}
		n.Focus()
	case StepShow, StepHide, StepDisable, StepRestore, StepDestroy:
		return h.instanceStep(s)
	case StepDisableAll:
		h.engine.DisableAll()
	case StepRestoreAll:
		h.engine.RestoreAll()
	case StepAttach:
		p, err := h.popup(s.Attach.Popup)
		if err != nil {
			return err
		}
		n, err := h.element(s.Attach.Target)
		if err != nil {
			return err
		}
		p.AttachClickElement(n)
	default:
		return fmt.Errorf("step must set exactly one action")
	}
	return nil
}

func (h *Harness) instanceStep(s Step) error {
	kind := s.Kind()
	id := map[string]string{
		StepShow:    s.Show,
		StepHide:    s.Hide,
		StepDisable: s.Disable,
		StepRestore: s.Restore,
		StepDestroy: s.Destroy,
	}[kind]

	p, err := h.popup(id)
	if err != nil {
		return err
	}
	switch kind {
	case StepShow:
		p.Show()
	case StepHide:
		p.Hide()
	case StepDisable:
		p.Disable()
	case StepRestore:
		p.Restore()
	case StepDestroy:
		p.Destroy()
	}
	return nil
}

// parseKey reads "Tab", "shift+Tab" or "Escape".
func parseKey(s string) (key string, shift bool) {
	if rest, ok := strings.CutPrefix(strings.TrimSpace(s), "shift+"); ok {
		return rest, true
	}
	return strings.TrimSpace(s), false
}

// collect snapshots popup state and stored counters into the result.
func (h *Harness) collect(ctx context.Context) error {
	for _, p := range h.engine.Instances() {
		h.result.snapshot(p)
	}
	if a := h.engine.Active(); a != nil {
		h.result.Active = a.ID()
	}

	buckets := map[string]*store.Bucket{ScopeLocal: h.local, ScopeSession: h.session}
	for name, b := range buckets {
		rows, err := h.store.List(ctx, b.Scope())
		if err != nil {
			return fmt.Errorf("collect counters: %w", err)
		}
		for _, c := range rows {
			h.result.Counters[name][c.Key] = c.Value
		}
	}
	return nil
}
