package models

import "sync"

// Category is one of the five tags the shop assigns to products.
type Category string

const (
	CategorySoftSkill  Category = "софт-скил"
	CategoryOther      Category = "другое"
	CategoryAdditional Category = "дополнительное"
	CategoryButton     Category = "кнопка"
	CategoryHardSkill  Category = "хард-скил"
)

// Product is an immutable catalog entry. A nil Price marks a priceless
// product: displayable but not purchasable, contributing zero to basket
// totals.
type Product struct {
	ID          string   `json:"id" db:"id"`
	Title       string   `json:"title" db:"title"`
	Description string   `json:"description" db:"description"`
	Image       string   `json:"image" db:"image"`
	Category    Category `json:"category" db:"category"`
	Price       *int64   `json:"price" db:"price"`
}

// HasPrice reports whether the product is purchasable.
func (p Product) HasPrice() bool {
	return p.Price != nil
}

// PriceValue returns the price, or 0 for a priceless product.
func (p Product) PriceValue() int64 {
	if p.Price == nil {
		return 0
	}
	return *p.Price
}

// Catalog is the read-only registry of products fetched from the upstream
// shop API. It is shared across sessions and replaced wholesale on every
// fetch; individual products are never mutated.
type Catalog struct {
	mu    sync.RWMutex
	items []Product
	byID  map[string]Product
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{byID: make(map[string]Product)}
}

// Replace swaps the full product set in catalog order.
func (c *Catalog) Replace(items []Product) {
	byID := make(map[string]Product, len(items))
	for _, p := range items {
		byID[p.ID] = p
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append([]Product(nil), items...)
	c.byID = byID
}

// Get looks up a product by id.
func (c *Catalog) Get(id string) (Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.byID[id]
	return p, ok
}

// List returns the products in catalog order.
func (c *Catalog) List() []Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Product(nil), c.items...)
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
