package engine

import "github.com/roach88/launchpop/internal/dom"

// Attributes and classes maintained on the popup root.
const (
	AttrVisible     = "data-launchpop-visible"
	AttrClose       = "data-launchpop-close"
	AttrTriggers    = "data-launchpop-triggers"
	AttrAriaHidden  = "aria-hidden"
	AttrAriaModal   = "aria-modal"
	AttrRole        = "role"
	AttrTabIndex    = "tabindex"
	ClassVisible    = "launchpop-visible"
	closeSelector   = "[" + AttrClose + "]"
	keyEscape       = "Escape"
	keyEscapeLegacy = "Esc"
	keyTab          = "Tab"
)

// initAccessibility applies the initial ARIA attributes without overriding
// ones the page already set.
func (p *Instance) initAccessibility() {
	el := p.el
	if el == nil {
		return
	}
	if _, ok := el.Attr(AttrVisible); !ok {
		el.SetAttr(AttrAriaHidden, "true")
	}
	if v, _ := el.Attr(AttrRole); v == "" {
		el.SetAttr(AttrRole, p.role)
	}
	if _, ok := el.Attr(AttrAriaModal); !ok {
		el.SetAttr(AttrAriaModal, "true")
	}
}

func (p *Instance) markVisible() {
	p.el.SetAttr(AttrVisible, "true")
	p.el.SetAttr(AttrAriaHidden, "false")
	p.el.AddClass(ClassVisible)
}

func (p *Instance) markHidden() {
	p.el.RemoveAttr(AttrVisible)
	p.el.SetAttr(AttrAriaHidden, "true")
	p.el.RemoveClass(ClassVisible)
}

// captureFocus moves focus into the popup. When remember is set the focused
// element is saved first so hide can return focus to it; a repeat show of a
// visible popup keeps the element saved by the first show.
func (p *Instance) captureFocus(remember bool) {
	if doc := p.eng.document(); remember && doc != nil {
		p.lastActive = doc.ActiveElement()
	}
	if focusables := p.el.Focusables(); len(focusables) > 0 {
		focusables[0].Focus()
		return
	}
	p.el.SetAttr(AttrTabIndex, "-1")
	p.el.Focus()
}

func (p *Instance) restoreFocus() {
	if p.lastActive == nil {
		return
	}
	p.lastActive.Focus()
	p.lastActive = nil
}

func (p *Instance) attachCloseHandler() {
	if p.el == nil || p.removeClose != nil {
		return
	}
	p.removeClose = p.el.AddListener(dom.EventClick, func(ev *dom.Event) {
		if ev.Target == nil || ev.Target.Closest(closeSelector) == nil {
			return
		}
		p.hide(TriggerContext{Trigger: TriggerCloseButton, Event: ev, Source: SourceDOM})
	})
}

func (p *Instance) detachCloseHandler() {
	if p.removeClose == nil {
		return
	}
	p.removeClose()
	p.removeClose = nil
}

// attachKeydown installs the Escape and focus-trap handler while visible.
func (p *Instance) attachKeydown() {
	if p.removeKeydown != nil {
		return
	}
	doc := p.eng.document()
	if doc == nil {
		return
	}
	p.removeKeydown = doc.AddListener(dom.EventKeyDown, p.onKeyDown)
}

func (p *Instance) detachKeydown() {
	if p.removeKeydown == nil {
		return
	}
	p.removeKeydown()
	p.removeKeydown = nil
}

func (p *Instance) onKeyDown(ev *dom.Event) {
	if p.disabled || p.eng.disabled || p.el == nil {
		return
	}

	switch ev.Key {
	case keyEscape, keyEscapeLegacy:
		if p.closeOnEsc {
			p.hide(TriggerContext{Trigger: TriggerEsc, Event: ev, Source: SourceKeyboard})
		}
	case keyTab:
		p.trapFocus(ev)
	}
}

// trapFocus wraps Tab and Shift+Tab at the ends of the popup's focusables.
func (p *Instance) trapFocus(ev *dom.Event) {
	focusables := p.el.Focusables()
	if len(focusables) == 0 {
		return
	}
	first := focusables[0]
	last := focusables[len(focusables)-1]

	var active dom.Element
	if doc := p.eng.document(); doc != nil {
		active = doc.ActiveElement()
	}
	outside := active == nil || !p.el.Contains(active)

	if ev.ShiftKey {
		if outside || active == first {
			ev.PreventDefault()
			last.Focus()
		}
		return
	}
	if outside || active == last {
		ev.PreventDefault()
		first.Focus()
	}
}
