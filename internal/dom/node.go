package dom

import "strings"

// Node is a simulated element.
type Node struct {
	page      *Page
	tag       string
	attrs     map[string]string
	parent    *Node
	children  []*Node
	offsetTop float64
	height    float64
	listeners *listenerSet
}

// AppendChild attaches c as the last child of n and returns c.
func (n *Node) AppendChild(c *Node) *Node {
	if c.parent != nil {
		c.parent.removeChild(c)
	}
	c.parent = n
	n.children = append(n.children, c)
	return c
}

// Remove detaches n from its parent.
func (n *Node) Remove() {
	if n.parent != nil {
		n.parent.removeChild(n)
	}
}

func (n *Node) removeChild(c *Node) {
	for i, child := range n.children {
		if child == c {
			n.children = append(n.children[:i:i], n.children[i+1:]...)
			break
		}
	}
	c.parent = nil
	if n.page.active != nil && c.containsNode(n.page.active) {
		n.page.active = nil
	}
}

// SetLayout sets the node's absolute document offset and height.
func (n *Node) SetLayout(offsetTop, height float64) *Node {
	n.offsetTop = offsetTop
	n.height = height
	return n
}

// Parent returns the parent node, or nil.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns the child nodes.
func (n *Node) Children() []*Node {
	return n.children
}

// Attrs returns a copy of the attribute map.
func (n *Node) Attrs() map[string]string {
	out := make(map[string]string, len(n.attrs))
	for k, v := range n.attrs {
		out[k] = v
	}
	return out
}

func (n *Node) Tag() string {
	return n.tag
}

func (n *Node) ID() string {
	return n.attrs["id"]
}

func (n *Node) Attr(name string) (string, bool) {
	v, ok := n.attrs[name]
	return v, ok
}

func (n *Node) SetAttr(name, value string) {
	n.attrs[name] = value
}

func (n *Node) RemoveAttr(name string) {
	delete(n.attrs, name)
}

func (n *Node) classes() []string {
	return strings.Fields(n.attrs["class"])
}

func (n *Node) HasClass(name string) bool {
	for _, c := range n.classes() {
		if c == name {
			return true
		}
	}
	return false
}

func (n *Node) AddClass(name string) {
	if n.HasClass(name) {
		return
	}
	n.attrs["class"] = strings.TrimSpace(n.attrs["class"] + " " + name)
}

func (n *Node) RemoveClass(name string) {
	classes := n.classes()
	kept := classes[:0]
	for _, c := range classes {
		if c != name {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		delete(n.attrs, "class")
		return
	}
	n.attrs["class"] = strings.Join(kept, " ")
}

// Focus makes n the page's active element.
func (n *Node) Focus() {
	n.page.active = n
}

// Focused reports whether n is the page's active element.
func (n *Node) Focused() bool {
	return n.page.active == n
}

func (n *Node) Focusables() []Element {
	var out []Element
	for _, c := range n.children {
		c.walk(func(d *Node) {
			if d.focusable() {
				out = append(out, d)
			}
		})
	}
	return out
}

// focusable mirrors a[href], enabled form controls and [tabindex] other than -1.
func (n *Node) focusable() bool {
	if tabindex, ok := n.attrs["tabindex"]; ok {
		return tabindex != "-1"
	}
	_, disabled := n.attrs["disabled"]
	switch n.tag {
	case "a":
		_, ok := n.attrs["href"]
		return ok
	case "button", "input", "select", "textarea":
		return !disabled
	}
	return false
}

func (n *Node) Contains(other Element) bool {
	o, ok := other.(*Node)
	if !ok || o == nil {
		return false
	}
	return n.containsNode(o)
}

func (n *Node) containsNode(o *Node) bool {
	for cur := o; cur != nil; cur = cur.parent {
		if cur == n {
			return true
		}
	}
	return false
}

func (n *Node) Closest(selector string) Element {
	sels, err := parseSelectorList(selector)
	if err != nil {
		return nil
	}
	for cur := n; cur != nil; cur = cur.parent {
		if matchesAny(sels, cur) {
			return cur
		}
	}
	return nil
}

func (n *Node) BoundingRect() Rect {
	return Rect{Top: n.offsetTop - n.page.geom.ScrollTop, Height: n.height}
}

func (n *Node) AddListener(t EventType, fn Listener) func() {
	return n.listeners.add(t, fn)
}

// Listeners returns the number of listeners registered on n for t.
func (n *Node) Listeners(t EventType) int {
	return n.listeners.count(t)
}

// walk visits n and its descendants in document order.
func (n *Node) walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.children {
		c.walk(fn)
	}
}
