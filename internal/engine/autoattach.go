package engine

import "github.com/roach88/launchpop/internal/dom"

// triggerElements returns the elements whose data-launchpop-triggers value
// equals id.
func (e *Engine) triggerElements(id string) []dom.Element {
	doc := e.document()
	if doc == nil {
		return nil
	}
	var out []dom.Element
	for _, el := range doc.Query("[" + AttrTriggers + "]") {
		if v, _ := el.Attr(AttrTriggers); v == id {
			out = append(out, el)
		}
	}
	return out
}

// autoAttachFor binds every trigger element naming p as a click trigger.
func (e *Engine) autoAttachFor(p *Instance) {
	for _, el := range e.triggerElements(p.id) {
		p.AttachClickElement(el)
	}
}

// autoAttachAll binds trigger elements to every instance with a matching id.
// Instances sharing an id all receive the element.
func (e *Engine) autoAttachAll() {
	doc := e.document()
	if doc == nil {
		return
	}
	for _, el := range doc.Query("[" + AttrTriggers + "]") {
		id, _ := el.Attr(AttrTriggers)
		if id == "" {
			continue
		}
		for _, p := range e.instances {
			if p.id == id {
				p.AttachClickElement(el)
			}
		}
	}
}
