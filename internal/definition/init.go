package definition

import (
	"fmt"

	"github.com/roach88/launchpop/internal/dom"
	"github.com/roach88/launchpop/internal/engine"
	"github.com/roach88/launchpop/internal/viewport"
)

// InitOptions configures a bulk registration from page attributes.
type InitOptions struct {
	// Root limits the scan to its descendants (inclusive). Nil scans the
	// whole document.
	Root dom.Element
	// AutoAttachTriggers replaces the engine default before registering.
	AutoAttachTriggers bool
	// Breakpoints overrides the non-zero thresholds it carries.
	Breakpoints *viewport.Breakpoints
}

// Init applies opts to the engine defaults and registers every element
// carrying data-launchpop-id, in document order. Without a document it logs
// a warning and registers nothing.
func Init(eng *engine.Engine, opts InitOptions) ([]*engine.Instance, error) {
	win := eng.Window()
	if win == nil || win.Document() == nil {
		eng.Logger().Warn("init skipped: no document available")
		return nil, nil
	}

	defaults := eng.Defaults()
	defaults.AutoAttachTriggers = opts.AutoAttachTriggers
	if bp := opts.Breakpoints; bp != nil {
		if bp.SmallMax > 0 {
			defaults.Breakpoints.SmallMax = bp.SmallMax
		}
		if bp.MediumMax > 0 {
			defaults.Breakpoints.MediumMax = bp.MediumMax
		}
	}
	eng.SetDefaults(defaults)

	var out []*engine.Instance
	for _, el := range win.Document().Query("[" + AttrID + "]") {
		if opts.Root != nil && !opts.Root.Contains(el) {
			continue
		}
		p, err := eng.Register(FromElement(el).Config(el))
		if err != nil {
			return out, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Bind registers each definition against the element its selector finds in
// doc. Definitions whose element is missing are skipped and reported.
func Bind(eng *engine.Engine, defs []Definition) ([]*engine.Instance, []error) {
	var doc dom.Document
	if win := eng.Window(); win != nil {
		doc = win.Document()
	}

	var (
		out  []*engine.Instance
		errs []error
	)
	for _, d := range defs {
		el := dom.QueryFirst(doc, d.ElementSelector())
		if el == nil {
			errs = append(errs, &LoadError{
				Code:    ErrCodeNoElement,
				Popup:   d.ID,
				Message: fmt.Sprintf("no element matches %q", d.ElementSelector()),
			})
			continue
		}
		p, err := eng.Register(d.Config(el))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, p)
	}
	return out, errs
}
