package definition

import (
	"strings"

	"github.com/roach88/launchpop/internal/counter"
	"github.com/roach88/launchpop/internal/dom"
	"github.com/roach88/launchpop/internal/engine"
	"github.com/roach88/launchpop/internal/viewport"
)

// Attribute names read from popup root elements.
const (
	AttrID                     = "data-launchpop-id"
	AttrScrollPercent          = "data-launchpop-scroll-percent"
	AttrScrollPixels           = "data-launchpop-scroll-pixels"
	AttrScrollRelativeToFooter = "data-launchpop-scroll-relative-to-footer"
	AttrDelaySeconds           = "data-launchpop-delay-seconds"
	AttrExitIntent             = "data-launchpop-exit-intent"
	AttrMinutesLimit           = "data-launchpop-minutes-limit"
	AttrMaxLimit               = "data-launchpop-max-limit"
	AttrFooterSelector         = "data-launchpop-footer-selector"
	AttrClickSelector          = "data-launchpop-click-selector"
	AttrInactivitySeconds      = "data-launchpop-inactivity-seconds"
	AttrRole                   = "data-launchpop-role"
	AttrHideSmall              = "data-launchpop-hide-small"
	AttrHideMedium             = "data-launchpop-hide-medium"
	AttrHideLarge              = "data-launchpop-hide-large"
)

// FromElement reads a popup definition from el's data-launchpop-*
// attributes. An attribute that is absent leaves its setting unconfigured;
// one that is present but malformed reads as 0 or false.
func FromElement(el dom.Element) Definition {
	var d Definition
	d.ID, _ = el.Attr(AttrID)

	t := &d.Triggers
	if v, ok := el.Attr(AttrScrollPercent); ok {
		t.ScrollPercent = engine.Int(clampInt(parseInt(v), engine.MaxScrollPercent))
	}
	if v, ok := el.Attr(AttrScrollPixels); ok {
		t.ScrollPixels = engine.Int(clampInt(parseInt(v), engine.MaxScrollPixels))
	}
	if v, ok := el.Attr(AttrScrollRelativeToFooter); ok {
		t.ScrollRelativeToFooter = engine.Bool(parseBool(v))
	}
	if v, ok := el.Attr(AttrDelaySeconds); ok {
		t.DelaySeconds = engine.Int(clampInt(parseInt(v), engine.MaxDelaySeconds))
	}
	if v, ok := el.Attr(AttrExitIntent); ok {
		t.ExitIntent = parseBool(v)
	}
	if v, ok := el.Attr(AttrClickSelector); ok {
		t.ClickSelector = v
	}
	if v, ok := el.Attr(AttrInactivitySeconds); ok {
		t.InactivitySeconds = engine.Int(clampInt(parseInt(v), engine.MaxInactivitySeconds))
	}

	if v, ok := el.Attr(AttrMinutesLimit); ok {
		d.Limits.Minutes = engine.Int(parseInt(v))
	}
	if v, ok := el.Attr(AttrMaxLimit); ok {
		d.Limits.Max = engine.Int(parseInt(v))
	}

	small, hasSmall := el.Attr(AttrHideSmall)
	medium, hasMedium := el.Attr(AttrHideMedium)
	large, hasLarge := el.Attr(AttrHideLarge)
	if hasSmall || hasMedium || hasLarge {
		d.Limits.Breakpoints = &viewport.Visibility{
			Small:  !parseBool(small),
			Medium: !parseBool(medium),
			Large:  !parseBool(large),
		}
	}

	d.FooterSelector, _ = el.Attr(AttrFooterSelector)
	d.Role, _ = el.Attr(AttrRole)
	return d
}

// parseInt reads leading decimal digits the way attribute values are
// written by hand. Anything unparseable is 0.
func parseInt(s string) int {
	n, ok := counter.LeadingInt(s)
	if !ok {
		return 0
	}
	return int(n)
}

// parseBool accepts "true" and "false" in any case; anything else is false.
func parseBool(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}

func clampInt(v, limit int) int {
	return min(max(v, 0), limit)
}
