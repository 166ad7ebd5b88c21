package repository

import (
	"context"

	"github.com/utafrali/storefront/services/cart/internal/domain"
)

// CartRepository stores one cart per session.
type CartRepository interface {
	// Get retrieves the cart for a session. A missing or expired cart yields
	// an apperrors.ErrNotFound error.
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)

	// SaveIfVersion stores the cart only when the stored version equals
	// expectedVersion (a missing cart counts as version 0). On success
	// cart.Version is set to expectedVersion+1. A version mismatch returns
	// false with a nil error.
	//
	// Carts are never deleted explicitly: clearing stores an empty cart under
	// the next version, so a stale copy can never win after a clear. Carts
	// only disappear when their TTL lapses.
	SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (bool, error)
}
