package worker

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"storefront-service/internal/apiclient"
	"storefront-service/internal/broker"
	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"
)

// CatalogCache is the optional Redis-backed catalog cache.
type CatalogCache interface {
	GetCatalog(ctx context.Context) ([]models.Product, bool, error)
	SetCatalog(ctx context.Context, products []models.Product) error
}

// CatalogRefresher keeps the shared catalog fresh: it loads it once at
// startup (cache first, upstream on miss) and then refetches on an interval,
// replacing the catalog wholesale each time.
type CatalogRefresher struct {
	catalog  *models.Catalog
	api      apiclient.ShopAPI
	cache    CatalogCache
	interval time.Duration
}

// NewCatalogRefresher creates a catalog refresher. cache may be nil.
func NewCatalogRefresher(
	catalog *models.Catalog,
	api apiclient.ShopAPI,
	cache CatalogCache,
	interval time.Duration,
) *CatalogRefresher {
	return &CatalogRefresher{
		catalog:  catalog,
		api:      api,
		cache:    cache,
		interval: interval,
	}
}

// Load performs the initial catalog population. A cache hit skips the
// upstream call; a failed upstream fetch leaves the catalog empty, which
// sessions surface as "catalog unavailable".
func (w *CatalogRefresher) Load(ctx context.Context) error {
	if w.cache != nil {
		products, hit, err := w.cache.GetCatalog(ctx)
		if err != nil {
			log.Printf("Catalog cache read failed: %v", err)
		} else if hit {
			w.catalog.Replace(products)
			util.CatalogSize.Set(float64(len(products)))
			log.Printf("Catalog loaded from cache: %d products", len(products))
			return nil
		}
	}

	return w.Refresh(ctx)
}

// Refresh fetches the catalog from upstream and replaces the shared catalog.
func (w *CatalogRefresher) Refresh(ctx context.Context) error {
	start := time.Now()
	products, err := w.api.FetchProducts(ctx)
	util.CatalogFetchLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		util.CatalogFetchesTotal.WithLabelValues("error").Inc()
		return err
	}
	util.CatalogFetchesTotal.WithLabelValues("success").Inc()

	w.catalog.Replace(products)
	util.CatalogSize.Set(float64(len(products)))

	if w.cache != nil {
		if err := w.cache.SetCatalog(ctx, products); err != nil {
			log.Printf("Catalog cache write failed: %v", err)
		}
	}

	return nil
}

// Start runs the periodic refresh loop until ctx is done.
func (w *CatalogRefresher) Start(ctx context.Context) error {
	log.Println("Starting catalog refresher...")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Catalog refresher stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := w.Refresh(ctx); err != nil {
				log.Printf("Catalog refresh failed: %v", err)
			}
		}
	}
}

// ArchiveWorker consumes checkout events and records completed orders in
// the archive store.
type ArchiveWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        *store.Store
}

// NewArchiveWorker creates a new archive worker
func NewArchiveWorker(consumer *broker.Consumer, archive *store.Store) *ArchiveWorker {
	w := &ArchiveWorker{
		consumer: consumer,
		store:    archive,
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderCompleted(w.handleOrderCompleted)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *ArchiveWorker) Start(ctx context.Context) error {
	log.Println("Starting archive worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *ArchiveWorker) Stop() error {
	log.Println("Stopping archive worker...")
	return w.consumer.Close()
}

func (w *ArchiveWorker) handleOrderCompleted(ctx context.Context, event *broker.OrderCompletedEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return err
	}
	if processed {
		return nil
	}

	items, err := json.Marshal(event.Items)
	if err != nil {
		return err
	}

	order := &store.ArchivedOrder{
		OrderID:     event.OrderID,
		SessionID:   event.SessionID,
		Payment:     event.Payment,
		Total:       event.Total,
		Items:       string(items),
		CompletedAt: event.Timestamp,
	}

	if err := w.store.ArchiveOrder(ctx, order); err != nil {
		return err
	}
	util.OrdersArchivedTotal.Inc()

	return w.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
}
