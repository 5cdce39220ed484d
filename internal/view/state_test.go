package view

import (
	"testing"

	"storefront-service/internal/events"

	"github.com/stretchr/testify/assert"
)

func TestStateTracksRenderRegions(t *testing.T) {
	bus := events.NewBus()
	state := NewState(bus)

	bus.Publish(events.RenderScreen, events.ScreenPayload{Screen: events.ScreenBasket, Data: "contents"})
	bus.Publish(events.RenderCounter, events.CounterPayload{Count: 2})
	bus.Publish(events.RenderErrors, events.ErrorsPayload{Errors: []string{"address must be at least 5 characters"}})
	bus.Publish(events.RenderNotice, events.NoticePayload{Message: "heads up"})

	snap := state.Snapshot()
	assert.Equal(t, events.ScreenBasket, snap.Screen)
	assert.Equal(t, "contents", snap.ScreenData)
	assert.Equal(t, 2, snap.CartCount)
	assert.Len(t, snap.Errors, 1)
	assert.Equal(t, "heads up", snap.Notice)
}

func TestScreenRenderClearsErrorsAndNotice(t *testing.T) {
	bus := events.NewBus()
	state := NewState(bus)

	bus.Publish(events.RenderErrors, events.ErrorsPayload{Errors: []string{"email must contain @"}})
	bus.Publish(events.RenderNotice, events.NoticePayload{Message: "stale"})
	bus.Publish(events.RenderCounter, events.CounterPayload{Count: 3})

	bus.Publish(events.RenderScreen, events.ScreenPayload{Screen: events.ScreenCatalog})

	snap := state.Snapshot()
	assert.Empty(t, snap.Errors)
	assert.Empty(t, snap.Notice)
	// The counter region is independent of screen changes.
	assert.Equal(t, 3, snap.CartCount)
}

func TestSnapshotIsACopy(t *testing.T) {
	bus := events.NewBus()
	state := NewState(bus)

	bus.Publish(events.RenderErrors, events.ErrorsPayload{Errors: []string{"phone must contain at least 10 digits"}})

	snap := state.Snapshot()
	snap.Errors[0] = "mutated"

	assert.Equal(t, "phone must contain at least 10 digits", state.Snapshot().Errors[0])
}
