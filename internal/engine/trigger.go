package engine

import "github.com/roach88/launchpop/internal/dom"

// Trigger names the cause of a show or hide transition.
type Trigger string

const (
	TriggerImmediate     Trigger = "immediate"
	TriggerScroll        Trigger = "scroll"
	TriggerDelay         Trigger = "delay"
	TriggerExitIntent    Trigger = "exit_intent"
	TriggerInactivity    Trigger = "inactivity"
	TriggerClick         Trigger = "click"
	TriggerSuperseded    Trigger = "superseded"
	TriggerCloseButton   Trigger = "close-button"
	TriggerEsc           Trigger = "esc"
	TriggerGlobalDisable Trigger = "global-disable"
	TriggerAPI           Trigger = "api"
	TriggerAuto          Trigger = "auto"
)

// Source says whether a transition was automatic, user-driven, or
// programmatic.
type Source string

const (
	SourceAuto     Source = "auto"
	SourceDOM      Source = "dom"
	SourceKeyboard Source = "keyboard"
	SourceInternal Source = "internal"
	SourceAPI      Source = "api"
)

// TriggerContext records why a transition happened.
type TriggerContext struct {
	Trigger Trigger
	// Event is the raw host event, nil for timer and API causes.
	Event  *dom.Event
	Source Source
}

func autoContext(t Trigger, ev *dom.Event) TriggerContext {
	return TriggerContext{Trigger: t, Event: ev, Source: SourceAuto}
}

func apiContext() TriggerContext {
	return TriggerContext{Trigger: TriggerAPI, Source: SourceAPI}
}

// TriggerState holds one satisfaction flag per automatic trigger kind.
// A kind that is not configured starts satisfied.
type TriggerState struct {
	ScrollPercent bool
	ScrollPixels  bool
	Delay         bool
	ExitIntent    bool
	Inactivity    bool
}

// All reports whether every automatic trigger is satisfied.
func (s TriggerState) All() bool {
	return s.ScrollPercent && s.ScrollPixels && s.Delay && s.ExitIntent && s.Inactivity
}

func initialState(t Triggers) TriggerState {
	return TriggerState{
		ScrollPercent: t.ScrollPercent == nil,
		ScrollPixels:  t.ScrollPixels == nil,
		Delay:         t.DelaySeconds == nil,
		ExitIntent:    !t.ExitIntent,
		Inactivity:    t.InactivitySeconds == nil,
	}
}
