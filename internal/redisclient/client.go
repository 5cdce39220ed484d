package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront-service/internal/models"

	"github.com/go-redis/redis/v8"
)

const catalogKey = "catalog:products"

// Client caches the fetched catalog in Redis so restarts and catalog
// refreshes don't hammer the upstream shop API.
type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewClient creates a new Redis client and verifies connectivity.
func NewClient(addr, password string, db int, ttl time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb, ttl: ttl}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// SetCatalog stores the product list with the configured TTL.
func (c *Client) SetCatalog(ctx context.Context, products []models.Product) error {
	data, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	if err := c.rdb.Set(ctx, catalogKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache catalog: %w", err)
	}
	return nil
}

// GetCatalog retrieves the cached product list. A cache miss returns
// (nil, false, nil).
func (c *Client) GetCatalog(ctx context.Context) ([]models.Product, bool, error) {
	data, err := c.rdb.Get(ctx, catalogKey).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached catalog: %w", err)
	}

	var products []models.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached catalog: %w", err)
	}

	return products, true, nil
}

// InvalidateCatalog drops the cached catalog.
func (c *Client) InvalidateCatalog(ctx context.Context) error {
	return c.rdb.Del(ctx, catalogKey).Err()
}
