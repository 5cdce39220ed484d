package models

// Basket holds the ordered set of products selected for purchase and the
// derived total. The total is recomputed synchronously inside every mutation,
// so callers never observe a stale value. Priceless products contribute zero.
//
// A product appears at most once: the detail screen toggles membership and no
// quantity field exists, so adding an id already present is a no-op.
//
// Basket is not safe for concurrent use; the flow controller is its single
// writer.
type Basket struct {
	products []Product
	total    int64
}

// NewBasket creates an empty basket.
func NewBasket() *Basket {
	return &Basket{}
}

// Add appends product to the basket. Adding an id already present is a no-op.
func (b *Basket) Add(product Product) {
	if b.Contains(product.ID) {
		return
	}
	b.products = append(b.products, product)
	b.recompute()
}

// Remove removes every entry matching productID. Unknown ids are a no-op.
func (b *Basket) Remove(productID string) {
	kept := b.products[:0]
	for _, p := range b.products {
		if p.ID != productID {
			kept = append(kept, p)
		}
	}
	b.products = kept
	b.recompute()
}

// Clear empties the basket and resets the total to zero.
func (b *Basket) Clear() {
	b.products = nil
	b.total = 0
}

// Contains reports whether a product with the given id is in the basket.
func (b *Basket) Contains(productID string) bool {
	for _, p := range b.products {
		if p.ID == productID {
			return true
		}
	}
	return false
}

// Products returns the entries in basket order.
func (b *Basket) Products() []Product {
	return append([]Product(nil), b.products...)
}

// ProductIDs returns the entry ids in basket order.
func (b *Basket) ProductIDs() []string {
	ids := make([]string, len(b.products))
	for i, p := range b.products {
		ids[i] = p.ID
	}
	return ids
}

// Len returns the number of entries.
func (b *Basket) Len() int {
	return len(b.products)
}

// Total returns the derived total.
func (b *Basket) Total() int64 {
	return b.total
}

func (b *Basket) recompute() {
	var total int64
	for _, p := range b.products {
		total += p.PriceValue()
	}
	b.total = total
}
