package engine

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/roach88/launchpop/internal/counter"
	"github.com/roach88/launchpop/internal/dom"
	"github.com/roach88/launchpop/internal/testutil"
	"github.com/roach88/launchpop/internal/viewport"
)

// fixture wires an engine to a simulated page, a mock clock, and in-memory
// counter stores. The page is 1300px wide with a 2000px scroll range.
type fixture struct {
	t       *testing.T
	page    *dom.Page
	clock   *clock.Mock
	local   *counter.Memory
	session *counter.Memory
	logs    *bytes.Buffer
	eng     *Engine
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		t:       t,
		page:    dom.NewPage(viewport.Geometry{ViewportHeight: 800, DocumentHeight: 2800, Width: 1300}),
		clock:   testutil.NewMockClock(time.Time{}),
		local:   counter.NewMemory(),
		session: counter.NewMemory(),
		logs:    &bytes.Buffer{},
	}
	logger := slog.New(slog.NewTextHandler(f.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	base := []Option{
		WithClock(f.clock),
		WithWindow(f.page),
		WithLocalStore(f.local),
		WithSessionStore(f.session),
		WithLogger(logger),
	}
	f.eng = New(append(base, opts...)...)
	t.Cleanup(f.eng.Close)
	return f
}

// popup appends an empty popup root to the body.
func (f *fixture) popup(id string) *dom.Node {
	n := f.page.CreateElement("div")
	n.SetAttr("id", id)
	f.page.Body().AppendChild(n)
	return n
}

// button appends a button to parent.
func (f *fixture) button(parent *dom.Node, class string) *dom.Node {
	b := f.page.CreateElement("button")
	if class != "" {
		b.SetAttr("class", class)
	}
	parent.AppendChild(b)
	return b
}

func (f *fixture) register(cfg Config) *Instance {
	f.t.Helper()
	p, err := f.eng.Register(cfg)
	require.NoError(f.t, err)
	require.NotNil(f.t, p)
	return p
}

func (f *fixture) advance(d time.Duration) {
	testutil.Advance(f.clock, f.eng, d)
}

func (f *fixture) visibleCount() int {
	n := 0
	for _, p := range f.eng.Instances() {
		if p.Visible() {
			n++
		}
	}
	return n
}

// recorder captures events delivered to a handler.
type recorder struct {
	events []Event
}

func (r *recorder) handle(ev Event) error {
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) triggers() []Trigger {
	out := make([]Trigger, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Trigger
	}
	return out
}

// failingStore is a counter store whose every call fails.
type failingStore struct{}

func (failingStore) Get(string) (string, bool, error) { return "", false, errors.New("access denied") }
func (failingStore) Set(string, string) error         { return errors.New("access denied") }

// hideSmall hides the popup on small viewports only.
func hideSmall() *viewport.Visibility {
	return &viewport.Visibility{Small: false, Medium: true, Large: true}
}
