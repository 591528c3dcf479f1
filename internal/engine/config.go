package engine

import (
	"time"

	"github.com/roach88/launchpop/internal/dom"
	"github.com/roach88/launchpop/internal/viewport"
)

// DefaultID is the id shared by instances registered without one. Such
// instances pool their frequency counters under this id.
const DefaultID = "launchpop_default"

// DefaultRole is the ARIA role applied when the config names none.
const DefaultRole = "dialog"

// Trigger input ranges.
const (
	MaxScrollPercent     = 100
	MaxScrollPixels      = 3000
	MaxDelaySeconds      = 120
	MaxInactivitySeconds = 1800
)

// Triggers configures the automatic and click triggers of a popup.
// A nil field means that trigger kind is not configured.
type Triggers struct {
	ScrollPercent          *int   `json:"scroll_percent,omitempty"`
	ScrollPixels           *int   `json:"scroll_pixels,omitempty"`
	ScrollRelativeToFooter *bool  `json:"scroll_relative_to_footer,omitempty"`
	DelaySeconds           *int   `json:"delay_seconds,omitempty"`
	ExitIntent             bool   `json:"exit_intent,omitempty"`
	InactivitySeconds      *int   `json:"inactivity_seconds,omitempty"`
	ClickSelector          string `json:"click_selector,omitempty"`
}

// HasAuto reports whether any automatic trigger is configured.
func (t Triggers) HasAuto() bool {
	return t.ScrollPercent != nil ||
		t.ScrollPixels != nil ||
		t.DelaySeconds != nil ||
		t.ExitIntent ||
		t.InactivitySeconds != nil
}

func (t Triggers) needsScroll() bool {
	return t.ScrollPercent != nil || t.ScrollPixels != nil || t.ScrollRelativeToFooter != nil
}

func (t Triggers) relativeToFooter() bool {
	return t.ScrollRelativeToFooter != nil && *t.ScrollRelativeToFooter
}

func (t Triggers) delay() time.Duration {
	return seconds(*t.DelaySeconds, MaxDelaySeconds)
}

func (t Triggers) inactivity() time.Duration {
	return seconds(*t.InactivitySeconds, MaxInactivitySeconds)
}

// Limits configures the gates evaluated before an automatic show.
type Limits struct {
	// Minutes is the minimum time between shows, persisted across sessions.
	Minutes *int `json:"minutes,omitempty"`
	// Max is the maximum number of shows per browsing session.
	Max *int `json:"max,omitempty"`
	// Breakpoints hides the popup on the size classes marked false.
	Breakpoints *viewport.Visibility `json:"breakpoints,omitempty"`
}

// Config is the registration input for one popup.
type Config struct {
	ID             string
	Element        dom.Element
	Triggers       Triggers
	Limits         Limits
	FooterSelector string
	Role           string
	// CloseOnEsc defaults to true.
	CloseOnEsc *bool
	OnShow     Handler
	OnHide     Handler
}

// Defaults are the engine-wide settings shared by every instance.
type Defaults struct {
	AutoAttachTriggers bool
	FooterSelector     string
	Breakpoints        viewport.Breakpoints
}

// DefaultDefaults returns the settings used when none are given.
func DefaultDefaults() Defaults {
	return Defaults{
		AutoAttachTriggers: false,
		FooterSelector:     "footer",
		Breakpoints:        viewport.DefaultBreakpoints(),
	}
}

func (d Defaults) normalized() Defaults {
	if d.Breakpoints.SmallMax <= 0 {
		d.Breakpoints.SmallMax = viewport.DefaultSmallMax
	}
	if d.Breakpoints.MediumMax <= 0 {
		d.Breakpoints.MediumMax = viewport.DefaultMediumMax
	}
	return d
}

// Int returns a pointer to v, for building configs.
func Int(v int) *int { return &v }

// Bool returns a pointer to v, for building configs.
func Bool(v bool) *bool { return &v }

func seconds(v, limit int) time.Duration {
	return time.Duration(viewport.Clamp(float64(v), 0, float64(limit))) * time.Second
}
