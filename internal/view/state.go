// Package view holds the render state a storefront client observes. It is
// the View collaborator of the flow controller: it consumes render events
// from the bus and keeps the latest render per region, and the HTTP surface
// reads it back to the client.
package view

import (
	"sync"

	"storefront-service/internal/events"
)

// Snapshot is the full render state at a point in time.
type Snapshot struct {
	Screen        string      `json:"screen"`
	ScreenData    interface{} `json:"screen_data"`
	CartCount     int         `json:"cart_count"`
	Errors        []string    `json:"errors"`
	SubmitEnabled bool        `json:"submit_enabled"`
	Notice        string      `json:"notice,omitempty"`
}

// State subscribes to the four render regions and stores the latest value of
// each. A broken sibling handler on the bus never prevents the counter or
// notice regions from updating, since the bus isolates handler panics.
type State struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewState creates a render state subscribed to bus.
func NewState(bus *events.Bus) *State {
	s := &State{snap: Snapshot{Screen: events.ScreenCatalog}}

	bus.Subscribe(events.RenderScreen, func(payload interface{}) {
		p, ok := payload.(events.ScreenPayload)
		if !ok {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.snap.Screen = p.Screen
		s.snap.ScreenData = p.Data
		// A fresh screen starts without stale form errors or notices.
		s.snap.Errors = nil
		s.snap.SubmitEnabled = false
		s.snap.Notice = ""
	})

	bus.Subscribe(events.RenderCounter, func(payload interface{}) {
		p, ok := payload.(events.CounterPayload)
		if !ok {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.snap.CartCount = p.Count
	})

	bus.Subscribe(events.RenderErrors, func(payload interface{}) {
		p, ok := payload.(events.ErrorsPayload)
		if !ok {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.snap.Errors = p.Errors
		s.snap.SubmitEnabled = p.SubmitEnabled
	})

	bus.Subscribe(events.RenderNotice, func(payload interface{}) {
		p, ok := payload.(events.NoticePayload)
		if !ok {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.snap.Notice = p.Message
	})

	return s
}

// Snapshot returns a copy of the current render state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snap
	snap.Errors = append([]string(nil), s.snap.Errors...)
	return snap
}
