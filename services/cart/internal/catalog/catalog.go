// Package catalog resolves product IDs into the product snapshots a cart holds.
package catalog

import (
	"context"

	"github.com/utafrali/storefront/services/cart/internal/domain"
)

// Catalog is the read-only product source used by the cart service.
type Catalog interface {
	// GetProduct returns the product with the given ID or an
	// apperrors.ErrNotFound error.
	GetProduct(ctx context.Context, id string) (domain.Product, error)
}
