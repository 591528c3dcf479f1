package definition

import (
	"fmt"

	"cuelang.org/go/cue/token"

	"github.com/roach88/launchpop/internal/dom"
	"github.com/roach88/launchpop/internal/engine"
)

// Definition describes one popup independently of the page it binds to.
type Definition struct {
	// ID names the popup. CUE definitions default it to their field label.
	ID string `json:"id,omitempty"`
	// Selector locates the popup root. Defaults to "#<id>".
	Selector       string          `json:"selector,omitempty"`
	Triggers       engine.Triggers `json:"triggers"`
	Limits         engine.Limits   `json:"limits"`
	FooterSelector string          `json:"footer_selector,omitempty"`
	Role           string          `json:"role,omitempty"`
	CloseOnEsc     *bool           `json:"close_on_esc,omitempty"`
}

// ElementSelector returns the selector used to find the popup root.
func (d Definition) ElementSelector() string {
	if d.Selector != "" {
		return d.Selector
	}
	return "#" + d.ID
}

// Config builds the engine registration for d rooted at el.
func (d Definition) Config(el dom.Element) engine.Config {
	return engine.Config{
		ID:             d.ID,
		Element:        el,
		Triggers:       d.Triggers,
		Limits:         d.Limits,
		FooterSelector: d.FooterSelector,
		Role:           d.Role,
		CloseOnEsc:     d.CloseOnEsc,
	}
}

// Error codes reported while loading definitions.
const (
	ErrCodeNotFound    = "E005" // path not found
	ErrCodeNoFiles     = "E003" // no CUE files found
	ErrCodeReadFailed  = "E004" // file could not be read
	ErrCodeBuildFailed = "E006" // CUE compile failed
	ErrCodeSchema      = "E201" // value violates #Popup
	ErrCodeDuplicateID = "E202" // two definitions share an id
	ErrCodeNoElement   = "E203" // selector matched nothing on the page
)

// LoadError is a definition failure with an optional CUE source position.
type LoadError struct {
	Code    string
	Popup   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.Popup != "" {
		msg = fmt.Sprintf("popup %s: %s", e.Popup, msg)
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}
