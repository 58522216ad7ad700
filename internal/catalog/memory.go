package catalog

import (
	"context"
	"sync"
)

// MemoryCatalog is an in-memory Catalog used by tests and the demo binary.
// Production deployments plug in a client for the real catalog service.
type MemoryCatalog struct {
	mu       sync.RWMutex
	products map[string]PriceStock
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		products: make(map[string]PriceStock),
	}
}

func (c *MemoryCatalog) GetPriceAndStock(ctx context.Context, productID string) (*PriceStock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	ps, exists := c.products[productID]
	if !exists {
		return nil, ErrProductNotFound
	}
	return &ps, nil
}

// SetProduct creates or replaces a product entry.
func (c *MemoryCatalog) SetProduct(productID, name string, price int64, stock int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.products[productID] = PriceStock{
		ProductID: productID,
		Name:      name,
		Price:     price,
		Stock:     stock,
		Available: true,
	}
}

// SetStock adjusts the stock level of an existing product.
func (c *MemoryCatalog) SetStock(productID string, stock int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ps, exists := c.products[productID]; exists {
		ps.Stock = stock
		c.products[productID] = ps
	}
}

// SetPrice adjusts the unit price of an existing product.
func (c *MemoryCatalog) SetPrice(productID string, price int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ps, exists := c.products[productID]; exists {
		ps.Price = price
		c.products[productID] = ps
	}
}

// Discontinue marks a product as no longer available.
func (c *MemoryCatalog) Discontinue(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ps, exists := c.products[productID]; exists {
		ps.Available = false
		c.products[productID] = ps
	}
}
