package dom

import "github.com/roach88/launchpop/internal/viewport"

// EventType names a DOM event.
type EventType string

const (
	EventScroll     EventType = "scroll"
	EventResize     EventType = "resize"
	EventMouseOut   EventType = "mouseout"
	EventMouseMove  EventType = "mousemove"
	EventKeyDown    EventType = "keydown"
	EventTouchStart EventType = "touchstart"
	EventClick      EventType = "click"
)

// Event is a raw DOM event as seen by listeners.
type Event struct {
	Type EventType

	// Target is the element the event was dispatched to (nil for window events).
	Target Element

	// RelatedTarget is the element the pointer moved to (mouseout only).
	// Nil when the pointer left the window.
	RelatedTarget Element

	// ClientY is the pointer's vertical position relative to the viewport.
	ClientY float64

	// Key and ShiftKey describe keyboard events.
	Key      string
	ShiftKey bool

	defaultPrevented bool
}

// PreventDefault marks the event's default action as cancelled.
func (e *Event) PreventDefault() {
	e.defaultPrevented = true
}

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool {
	return e.defaultPrevented
}

// Listener receives dispatched events.
type Listener func(ev *Event)

// Rect is an element's bounding box relative to the viewport.
type Rect struct {
	Top    float64
	Height float64
}

// Element is a node in the host document.
type Element interface {
	Tag() string
	ID() string
	Attr(name string) (string, bool)
	SetAttr(name, value string)
	RemoveAttr(name string)
	AddClass(name string)
	RemoveClass(name string)
	HasClass(name string) bool
	Focus()
	// Focusables returns the focusable descendants in document order.
	Focusables() []Element
	Contains(other Element) bool
	// Closest returns the nearest inclusive ancestor matching selector, or nil.
	Closest(selector string) Element
	BoundingRect() Rect
	AddListener(t EventType, fn Listener) (remove func())
}

// Document is the host document.
type Document interface {
	Query(selector string) []Element
	// ActiveElement returns the focused element, or nil.
	ActiveElement() Element
	AddListener(t EventType, fn Listener) (remove func())
}

// Window is the host window.
type Window interface {
	Document() Document
	Geometry() viewport.Geometry
	AddListener(t EventType, fn Listener) (remove func())
}

// QueryFirst returns the first element matching selector, or nil.
func QueryFirst(doc Document, selector string) Element {
	if doc == nil || selector == "" {
		return nil
	}
	found := doc.Query(selector)
	if len(found) == 0 {
		return nil
	}
	return found[0]
}
