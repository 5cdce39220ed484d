package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront-service/internal/apiclient"
	"storefront-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeShopAPI struct {
	products []models.Product
	err      error
	fetches  int
}

func (f *fakeShopAPI) FetchProducts(ctx context.Context) ([]models.Product, error) {
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	return f.products, nil
}

func (f *fakeShopAPI) SubmitOrder(ctx context.Context, payload models.OrderPayload, idempotencyKey string) (*apiclient.OrderResult, error) {
	return nil, errors.New("not used")
}

type fakeCache struct {
	products []models.Product
	hit      bool
	sets     int
}

func (f *fakeCache) GetCatalog(ctx context.Context) ([]models.Product, bool, error) {
	return f.products, f.hit, nil
}

func (f *fakeCache) SetCatalog(ctx context.Context, products []models.Product) error {
	f.products = products
	f.sets++
	return nil
}

func price(v int64) *int64 {
	return &v
}

func TestLoadPrefersCacheHit(t *testing.T) {
	catalog := models.NewCatalog()
	api := &fakeShopAPI{products: []models.Product{{ID: "fresh", Price: price(1)}}}
	cache := &fakeCache{products: []models.Product{{ID: "cached", Price: price(2)}}, hit: true}

	w := NewCatalogRefresher(catalog, api, cache, time.Minute)
	require.NoError(t, w.Load(context.Background()))

	assert.Equal(t, 0, api.fetches)
	_, ok := catalog.Get("cached")
	assert.True(t, ok)
}

func TestLoadFallsBackToUpstreamOnMiss(t *testing.T) {
	catalog := models.NewCatalog()
	api := &fakeShopAPI{products: []models.Product{{ID: "fresh", Price: price(1)}}}
	cache := &fakeCache{hit: false}

	w := NewCatalogRefresher(catalog, api, cache, time.Minute)
	require.NoError(t, w.Load(context.Background()))

	assert.Equal(t, 1, api.fetches)
	_, ok := catalog.Get("fresh")
	assert.True(t, ok)
	assert.Equal(t, 1, cache.sets)
}

func TestLoadWithoutCache(t *testing.T) {
	catalog := models.NewCatalog()
	api := &fakeShopAPI{products: []models.Product{{ID: "fresh", Price: price(1)}}}

	w := NewCatalogRefresher(catalog, api, nil, time.Minute)
	require.NoError(t, w.Load(context.Background()))

	assert.Equal(t, 1, catalog.Len())
}

func TestRefreshReplacesWholesale(t *testing.T) {
	catalog := models.NewCatalog()
	catalog.Replace([]models.Product{{ID: "old", Price: price(1)}})

	api := &fakeShopAPI{products: []models.Product{{ID: "new", Price: price(2)}}}
	w := NewCatalogRefresher(catalog, api, nil, time.Minute)

	require.NoError(t, w.Refresh(context.Background()))

	_, ok := catalog.Get("old")
	assert.False(t, ok)
	_, ok = catalog.Get("new")
	assert.True(t, ok)
}

func TestRefreshFailureLeavesCatalogIntact(t *testing.T) {
	catalog := models.NewCatalog()
	catalog.Replace([]models.Product{{ID: "old", Price: price(1)}})

	api := &fakeShopAPI{err: errors.New("upstream down")}
	w := NewCatalogRefresher(catalog, api, nil, time.Minute)

	assert.Error(t, w.Refresh(context.Background()))
	assert.Equal(t, 1, catalog.Len())
}
