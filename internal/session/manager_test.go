package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront-service/internal/apiclient"
	"storefront-service/internal/events"
	"storefront-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubShopAPI struct{}

func (stubShopAPI) FetchProducts(ctx context.Context) ([]models.Product, error) {
	return nil, errors.New("not used")
}

func (stubShopAPI) SubmitOrder(ctx context.Context, payload models.OrderPayload, idempotencyKey string) (*apiclient.OrderResult, error) {
	return nil, errors.New("not used")
}

func newTestManager(ttl time.Duration) *Manager {
	price := int64(100)
	catalog := models.NewCatalog()
	catalog.Replace([]models.Product{{ID: "p1", Title: "alpha", Price: &price}})
	return NewManager(catalog, stubShopAPI{}, []string{"card", "cash"}, time.Second, nil, ttl)
}

func TestCreateAndGet(t *testing.T) {
	m := newTestManager(time.Minute)

	s := m.Create()
	require.NotEmpty(t, s.ID)
	assert.Equal(t, events.ScreenCatalog, s.Flow.Screen())
	assert.Equal(t, events.ScreenCatalog, s.View.Snapshot().Screen)

	got, ok := m.Get(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)

	_, ok = m.Get("unknown")
	assert.False(t, ok)
}

func TestSessionsAreIsolated(t *testing.T) {
	m := newTestManager(time.Minute)

	s1 := m.Create()
	s2 := m.Create()

	s1.Flow.Dispatch(events.BasketAdd, events.ProductPayload{ID: "p1"})

	assert.Equal(t, 1, s1.View.Snapshot().CartCount)
	assert.Equal(t, 0, s2.View.Snapshot().CartCount)
}

func TestEvictIdleSessions(t *testing.T) {
	m := newTestManager(10 * time.Millisecond)

	s := m.Create()
	require.Equal(t, 1, m.Len())

	time.Sleep(20 * time.Millisecond)
	m.evictIdle()

	assert.Equal(t, 0, m.Len())
	_, ok := m.Get(s.ID)
	assert.False(t, ok)
}

func TestTouchKeepsSessionAlive(t *testing.T) {
	m := newTestManager(50 * time.Millisecond)

	s := m.Create()
	time.Sleep(30 * time.Millisecond)
	s.Touch()
	time.Sleep(30 * time.Millisecond)

	m.evictIdle()
	assert.Equal(t, 1, m.Len())
}
