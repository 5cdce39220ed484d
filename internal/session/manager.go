// Package session manages per-client storefront sessions. Each session owns
// an isolated bus, basket, order form, flow controller and render state;
// sessions share only the read-only catalog.
package session

import (
	"context"
	"sync"
	"time"

	"storefront-service/internal/apiclient"
	"storefront-service/internal/controller"
	"storefront-service/internal/events"
	"storefront-service/internal/models"
	"storefront-service/internal/util"
	"storefront-service/internal/view"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session bundles one client's coordinator.
type Session struct {
	ID        string
	CreatedAt time.Time
	Flow      *controller.Flow
	View      *view.State

	mu       sync.Mutex
	lastSeen time.Time
}

// Touch marks the session as recently used.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
}

func (s *Session) lastSeenAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Manager creates sessions and evicts idle ones.
type Manager struct {
	catalog        *models.Catalog
	api            apiclient.ShopAPI
	paymentMethods []string
	submitTimeout  time.Duration
	analytics      controller.Analytics
	idleTTL        time.Duration
	logger         *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager. analytics may be nil.
func NewManager(
	catalog *models.Catalog,
	api apiclient.ShopAPI,
	paymentMethods []string,
	submitTimeout time.Duration,
	analytics controller.Analytics,
	idleTTL time.Duration,
) *Manager {
	return &Manager{
		catalog:        catalog,
		api:            api,
		paymentMethods: paymentMethods,
		submitTimeout:  submitTimeout,
		analytics:      analytics,
		idleTTL:        idleTTL,
		logger:         util.GetLogger(),
		sessions:       make(map[string]*Session),
	}
}

// Create builds a new session and renders its initial catalog screen. The
// render state subscribes before the controller so no render event is lost.
func (m *Manager) Create() *Session {
	id := uuid.New().String()
	bus := events.NewBus()
	viewState := view.NewState(bus)
	flow := controller.NewFlow(id, bus, m.catalog, m.api, m.paymentMethods, m.submitTimeout, m.analytics)

	now := time.Now()
	s := &Session{
		ID:        id,
		CreatedAt: now,
		Flow:      flow,
		View:      viewState,
		lastSeen:  now,
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	flow.Init()

	util.SessionsCreatedTotal.Inc()
	m.logger.Info("Session created", zap.String("session_id", id))
	return s
}

// Get looks up a session and marks it as used.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if ok {
		s.Touch()
	}
	return s, ok
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// StartJanitor evicts sessions idle longer than the TTL until ctx is done.
func (m *Manager) StartJanitor(ctx context.Context) {
	interval := m.idleTTL / 4
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.evictIdle()
		}
	}
}

func (m *Manager) evictIdle() {
	cutoff := time.Now().Add(-m.idleTTL)

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.lastSeenAt().Before(cutoff) {
			delete(m.sessions, id)
			util.SessionsEvictedTotal.Inc()
			m.logger.Info("Idle session evicted", zap.String("session_id", id))
		}
	}
}
