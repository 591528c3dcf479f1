package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvents_HandlerFailuresAreIsolated(t *testing.T) {
	f := newFixture(t)
	var order []string

	p := f.register(Config{
		ID:       "promo",
		Element:  f.popup("promo"),
		Triggers: Triggers{DelaySeconds: Int(1)},
		OnShow: func(Event) error {
			order = append(order, "config")
			return nil
		},
	})
	p.On(EventShow, func(Event) error {
		order = append(order, "failing")
		return errors.New("boom")
	})
	p.On(EventShow, func(Event) error {
		order = append(order, "panicking")
		panic("kaboom")
	})
	p.On(EventShow, func(Event) error {
		order = append(order, "instance")
		return nil
	})
	f.eng.On(EventShow, func(Event) error {
		order = append(order, "global")
		return nil
	})

	f.advance(time.Second)

	assert.True(t, p.Visible())
	assert.Equal(t, []string{"config", "failing", "panicking", "instance", "global"}, order)
	logs := f.logs.String()
	assert.Contains(t, logs, string(ErrCodeListenerFailed))
	assert.Contains(t, logs, "boom")
	assert.Contains(t, logs, "kaboom")
}

func TestEvents_Payload(t *testing.T) {
	f := newFixture(t)
	var got recorder
	f.eng.On(EventShow, got.handle)

	p := f.register(Config{ID: "promo", Element: f.popup("promo"), Triggers: Triggers{ExitIntent: true}})
	ev := f.page.MouseOut(0, nil)

	require.Len(t, got.events, 1)
	e := got.events[0]
	assert.Equal(t, EventShow, e.Type)
	assert.Same(t, p, e.Instance)
	assert.Equal(t, TriggerExitIntent, e.Trigger)
	assert.Same(t, ev, e.Native)
	assert.True(t, e.Timestamp.Equal(f.clock.Now()))
	assert.Equal(t, SourceAuto, e.Context.Source)
}

func TestEvents_APIContext(t *testing.T) {
	f := newFixture(t)
	var got recorder
	f.eng.On(EventShow, got.handle)
	f.eng.On(EventHide, got.handle)

	p := f.register(Config{ID: "promo", Element: f.popup("promo"), Triggers: Triggers{ExitIntent: true}})
	p.Show()
	p.Hide()

	assert.Equal(t, []Trigger{TriggerAPI, TriggerAPI}, got.triggers())
	assert.Equal(t, SourceAPI, got.events[0].Context.Source)
}

func TestEvents_ShowWithCustomContext(t *testing.T) {
	f := newFixture(t)
	var got recorder
	p := f.register(Config{ID: "promo", Element: f.popup("promo"), Triggers: Triggers{ExitIntent: true}})
	p.On(EventShow, got.handle)
	p.On(EventHide, got.handle)

	p.ShowWith(TriggerContext{Trigger: "campaign", Source: SourceAPI})
	p.HideWith(TriggerContext{Trigger: "timeout", Source: SourceInternal})

	assert.Equal(t, []Trigger{"campaign", "timeout"}, got.triggers())
}

func TestEvents_Off(t *testing.T) {
	f := newFixture(t)
	var kept, removed, global recorder

	p := f.register(Config{ID: "promo", Element: f.popup("promo"), Triggers: Triggers{ExitIntent: true}})
	p.On(EventShow, kept.handle)
	sub := p.On(EventShow, removed.handle)
	gsub := f.eng.On(EventShow, global.handle)

	assert.True(t, p.Off(sub))
	assert.False(t, p.Off(sub))
	assert.True(t, f.eng.Off(gsub))

	p.Show()

	assert.Len(t, kept.events, 1)
	assert.Empty(t, removed.events)
	assert.Empty(t, global.events)
}

func TestEvents_OffAll(t *testing.T) {
	f := newFixture(t)
	var a, b recorder

	p := f.register(Config{ID: "promo", Element: f.popup("promo"), Triggers: Triggers{ExitIntent: true}})
	p.On(EventHide, a.handle)
	f.eng.On(EventHide, b.handle)
	p.OffAll(EventHide)
	f.eng.OffAll(EventHide)

	p.Show()
	p.Hide()

	assert.Empty(t, a.events)
	assert.Empty(t, b.events)
}

func TestEvents_NilHandlerIgnored(t *testing.T) {
	f := newFixture(t)

	f.eng.On(EventShow, nil)
	assert.Equal(t, 0, f.eng.global.count(EventShow))
}
