package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/services/cart/internal/domain"
)

// Catalog is a fixed, in-process product list. It stands in for the product
// service in development and tests.
type Catalog struct {
	mu       sync.RWMutex
	products map[string]domain.Product
}

// New creates a catalog holding the given products.
func New(products ...domain.Product) *Catalog {
	c := &Catalog{products: make(map[string]domain.Product, len(products))}
	for _, p := range products {
		c.Put(p)
	}
	return c
}

// NewSeeded creates a catalog holding the storefront's demo products.
func NewSeeded() *Catalog {
	return New(SeedProducts()...)
}

// SeedProducts returns the demo product set.
func SeedProducts() []domain.Product {
	return []domain.Product{
		domain.MustProduct("sku-1001", "Premium Arabica Beans 1kg", 3200, 32, true),
		domain.MustProduct("sku-1002", "Barista Oat Milk 12x1L", 4200, 42, true),
		domain.MustProduct("sku-1003", "Compostable Cups 500pk", 1850, 18, true),
		domain.MustProduct("sku-1004", "Cold Brew Concentrate 5L", 6900, 69, false),
		domain.MustProduct("sku-1005", "Vanilla Syrup 750ml", 990, 9, true),
		domain.MustProduct("sku-1006", "Espresso Machine Descaler", 1450, 0, true),
	}
}

// GetProduct looks up a product by ID.
func (c *Catalog) GetProduct(_ context.Context, id string) (domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[id]
	if !ok {
		return domain.Product{}, apperrors.NotFound("product", id)
	}
	return p, nil
}

// Put adds or replaces a product.
func (c *Catalog) Put(p domain.Product) {
	c.mu.Lock()
	c.products[p.ID()] = p
	c.mu.Unlock()
}

// List returns all products ordered by ID.
func (c *Catalog) List() []domain.Product {
	c.mu.RLock()
	out := make([]domain.Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	c.mu.RUnlock()

	slices.SortFunc(out, func(a, b domain.Product) int {
		return strings.Compare(a.ID(), b.ID())
	})
	return out
}
