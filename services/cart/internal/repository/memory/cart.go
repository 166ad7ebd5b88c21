package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/services/cart/internal/domain"
)

type entry struct {
	data      []byte
	version   int
	expiresAt time.Time
}

// CartRepository implements repository.CartRepository in process memory.
// Carts are stored in encoded form so callers never share line state.
type CartRepository struct {
	mu    sync.Mutex
	carts map[string]entry
	ttl   time.Duration
	now   func() time.Time
}

// NewCartRepository creates an in-memory cart store whose entries expire after ttl.
func NewCartRepository(ttl time.Duration) *CartRepository {
	return &CartRepository{
		carts: make(map[string]entry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// WithClock replaces the clock used for expiry. Intended for tests.
func (r *CartRepository) WithClock(now func() time.Time) *CartRepository {
	r.now = now
	return r
}

// Get retrieves a cart by session ID, evicting it if expired.
func (r *CartRepository) Get(_ context.Context, sessionID string) (*domain.Cart, error) {
	r.mu.Lock()
	e, ok := r.lookup(sessionID)
	r.mu.Unlock()

	if !ok {
		return nil, apperrors.NotFound("cart", sessionID)
	}

	var cart domain.Cart
	if err := json.Unmarshal(e.data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}
	return &cart, nil
}

// SaveIfVersion stores the cart if the stored version matches expectedVersion.
func (r *CartRepository) SaveIfVersion(_ context.Context, cart *domain.Cart, expectedVersion int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := 0
	if e, ok := r.lookup(cart.SessionID); ok {
		current = e.version
	}
	if current != expectedVersion {
		return false, nil
	}

	previous := cart.Version
	cart.Version = expectedVersion + 1
	data, err := json.Marshal(cart)
	if err != nil {
		cart.Version = previous
		return false, fmt.Errorf("marshal cart: %w", err)
	}

	r.carts[cart.SessionID] = entry{
		data:      data,
		version:   cart.Version,
		expiresAt: r.now().Add(r.ttl),
	}
	return true, nil
}

// lookup must be called with mu held.
func (r *CartRepository) lookup(sessionID string) (entry, bool) {
	e, ok := r.carts[sessionID]
	if !ok {
		return entry{}, false
	}
	if r.ttl > 0 && !r.now().Before(e.expiresAt) {
		delete(r.carts, sessionID)
		return entry{}, false
	}
	return e, true
}
