package dom

import (
	"strings"

	"github.com/roach88/launchpop/internal/viewport"
)

// Page is a simulated window and document.
// It is not safe for concurrent use; drive it from the goroutine that owns
// the engine.
type Page struct {
	body   *Node
	active *Node
	geom   viewport.Geometry

	win *listenerSet
	doc *document
}

type document struct {
	page      *Page
	listeners *listenerSet
}

// NewPage creates an empty page with the given geometry.
func NewPage(geom viewport.Geometry) *Page {
	p := &Page{
		geom: geom,
		win:  newListenerSet(),
	}
	p.doc = &document{page: p, listeners: newListenerSet()}
	p.body = p.CreateElement("body")
	return p
}

// Body returns the document body.
func (p *Page) Body() *Node {
	return p.body
}

// CreateElement returns a detached element owned by this page.
func (p *Page) CreateElement(tag string) *Node {
	return &Node{
		page:      p,
		tag:       strings.ToLower(tag),
		attrs:     make(map[string]string),
		listeners: newListenerSet(),
	}
}

// Document implements Window.
func (p *Page) Document() Document {
	return p.doc
}

// Geometry implements Window.
func (p *Page) Geometry() viewport.Geometry {
	return p.geom
}

// AddListener implements Window.
func (p *Page) AddListener(t EventType, fn Listener) func() {
	return p.win.add(t, fn)
}

// WindowListeners returns the number of window listeners for t.
func (p *Page) WindowListeners(t EventType) int {
	return p.win.count(t)
}

// DocumentListeners returns the number of document listeners for t.
func (p *Page) DocumentListeners(t EventType) int {
	return p.doc.listeners.count(t)
}

// ScrollTo moves the scroll offset, clamped to the scrollable range, and
// dispatches a scroll event.
func (p *Page) ScrollTo(y float64) {
	p.geom.ScrollTop = viewport.Clamp(y, 0, p.geom.ScrollableHeight())
	p.win.fire(&Event{Type: EventScroll})
}

// Resize changes the viewport dimensions and dispatches a resize event.
func (p *Page) Resize(width, height float64) {
	p.geom.Width = width
	if height > 0 {
		p.geom.ViewportHeight = height
	}
	p.geom.ScrollTop = viewport.Clamp(p.geom.ScrollTop, 0, p.geom.ScrollableHeight())
	p.win.fire(&Event{Type: EventResize})
}

// SetDocumentHeight changes the document height without dispatching events.
func (p *Page) SetDocumentHeight(h float64) {
	p.geom.DocumentHeight = h
}

// MouseOut dispatches a mouseout event from the body. A nil related target
// means the pointer left the window.
func (p *Page) MouseOut(clientY float64, related Element) *Event {
	ev := &Event{Type: EventMouseOut, Target: p.body, RelatedTarget: related, ClientY: clientY}
	p.dispatch(p.body, ev)
	return ev
}

// MouseMove dispatches a mousemove event from the body.
func (p *Page) MouseMove() *Event {
	ev := &Event{Type: EventMouseMove, Target: p.body}
	p.dispatch(p.body, ev)
	return ev
}

// TouchStart dispatches a touchstart event from the body.
func (p *Page) TouchStart() *Event {
	ev := &Event{Type: EventTouchStart, Target: p.body}
	p.dispatch(p.body, ev)
	return ev
}

// KeyDown dispatches a keydown event from the focused element.
func (p *Page) KeyDown(key string, shift bool) *Event {
	target := p.active
	if target == nil {
		target = p.body
	}
	ev := &Event{Type: EventKeyDown, Target: target, Key: key, ShiftKey: shift}
	p.dispatch(target, ev)
	return ev
}

// Click dispatches a click event on n.
func (p *Page) Click(n *Node) *Event {
	ev := &Event{Type: EventClick, Target: n}
	p.dispatch(n, ev)
	return ev
}

// dispatch bubbles ev from target through its ancestors, then to the
// document and the window.
func (p *Page) dispatch(target *Node, ev *Event) {
	for n := target; n != nil; n = n.parent {
		n.listeners.fire(ev)
	}
	p.doc.listeners.fire(ev)
	p.win.fire(ev)
}

// QueryNodes returns the attached nodes matching selector in document order.
func (p *Page) QueryNodes(selector string) []*Node {
	sels, err := parseSelectorList(selector)
	if err != nil {
		return nil
	}
	var out []*Node
	p.body.walk(func(n *Node) {
		if matchesAny(sels, n) {
			out = append(out, n)
		}
	})
	return out
}

// ActiveNode returns the focused node, or nil.
func (p *Page) ActiveNode() *Node {
	return p.active
}

func (d *document) Query(selector string) []Element {
	nodes := d.page.QueryNodes(selector)
	out := make([]Element, len(nodes))
	for i, n := range nodes {
		out[i] = n
	}
	return out
}

func (d *document) ActiveElement() Element {
	if d.page.active == nil {
		return d.page.body
	}
	return d.page.active
}

func (d *document) AddListener(t EventType, fn Listener) func() {
	return d.listeners.add(t, fn)
}
