package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/tracing"
	"github.com/utafrali/storefront/services/cart/internal/catalog"
	"github.com/utafrali/storefront/services/cart/internal/domain"
	"github.com/utafrali/storefront/services/cart/internal/repository"
)

// Cart operation upper-bound limits to prevent abuse.
const (
	// MaxQuantityPerItem is the maximum quantity allowed for a single cart line.
	MaxQuantityPerItem = 100
	// MaxItemsPerCart is the maximum number of distinct lines allowed in a cart.
	MaxItemsPerCart = 50
)

var errConcurrentModification = apperrors.Conflict("cart was modified concurrently, please retry")

// AddItemInput holds the parameters for adding an item to the cart.
type AddItemInput struct {
	ProductID string `json:"product_id" validate:"required,max=128"`
}

// Summary is the cart badge view: counts and totals without the lines.
type Summary struct {
	ItemCount          int    `json:"item_count"`
	TotalPrice         int64  `json:"total_price"`
	TotalLoyaltyPoints int64  `json:"total_loyalty_points"`
	Currency           string `json:"currency"`
}

// EventPublisher emits cart domain events. Failures are logged by the
// service and never fail the operation.
type EventPublisher interface {
	PublishCartUpdated(ctx context.Context, cart *domain.Cart) error
	PublishCartCleared(ctx context.Context, sessionID string) error
}

// CartService implements the business logic for cart operations.
type CartService struct {
	repo     repository.CartRepository
	catalog  catalog.Catalog
	events   EventPublisher
	logger   *slog.Logger
	tracer   trace.Tracer
	cartTTL  time.Duration
	currency string
	now      func() time.Time
}

// NewCartService creates a new cart service.
func NewCartService(
	repo repository.CartRepository,
	cat catalog.Catalog,
	events EventPublisher,
	logger *slog.Logger,
	cartTTL time.Duration,
	currency string,
) *CartService {
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	return &CartService{
		repo:     repo,
		catalog:  cat,
		events:   events,
		logger:   logger,
		tracer:   tracing.Tracer("cart-service"),
		cartTTL:  cartTTL,
		currency: currency,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// GetCart retrieves the cart for a session. If no cart exists, an empty one
// is returned without being stored.
func (s *CartService) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	ctx, span := s.startSpan(ctx, "CartService.GetCart", sessionID)
	defer span.End()

	if err := requireSession(sessionID); err != nil {
		return nil, s.fail(span, "get", err)
	}

	cart, err := s.getOrCreateCart(ctx, sessionID)
	if err != nil {
		return nil, s.fail(span, "get", err)
	}
	return cart, nil
}

// Summary returns the item count and totals for a session's cart.
func (s *CartService) Summary(ctx context.Context, sessionID string) (*Summary, error) {
	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &Summary{
		ItemCount:          cart.ItemCount(),
		TotalPrice:         cart.TotalPrice(),
		TotalLoyaltyPoints: cart.TotalLoyaltyPoints(),
		Currency:           cart.Currency,
	}, nil
}

// AddItem adds one unit of a catalog product to the cart, merging into an
// existing line. Unavailable products are rejected.
func (s *CartService) AddItem(ctx context.Context, sessionID string, input AddItemInput) (*domain.Cart, error) {
	const op = "add_item"
	ctx, span := s.startSpan(ctx, "CartService.AddItem", sessionID)
	defer span.End()
	span.SetAttributes(attribute.String("cart.product_id", input.ProductID))

	if err := requireSession(sessionID); err != nil {
		return nil, s.fail(span, op, err)
	}
	if strings.TrimSpace(input.ProductID) == "" {
		return nil, s.fail(span, op, apperrors.InvalidInput("product id is required"))
	}

	product, err := s.catalog.GetProduct(ctx, input.ProductID)
	if err != nil {
		return nil, s.fail(span, op, fmt.Errorf("resolve product: %w", err))
	}
	if !product.Available() {
		return nil, s.fail(span, op, apperrors.InvalidInput(fmt.Sprintf("product %s is unavailable", product.ID())))
	}

	cart, err := s.mutate(ctx, span, op, sessionID, s.publishUpdated, func(cart *domain.Cart) (bool, error) {
		if li, ok := cart.Item(product.ID()); ok {
			if li.Quantity+1 > MaxQuantityPerItem {
				return false, apperrors.InvalidInput(fmt.Sprintf("combined quantity must not exceed %d", MaxQuantityPerItem))
			}
		} else if cart.Len() >= MaxItemsPerCart {
			return false, apperrors.InvalidInput(fmt.Sprintf("cart must not contain more than %d items", MaxItemsPerCart))
		}
		return cart.Add(product), nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("session_id", sessionID),
		slog.String("product_id", product.ID()),
	)

	return cart, nil
}

// SetQuantity sets the quantity of an existing line; zero removes it. A
// product that is not in the cart leaves the cart unchanged.
func (s *CartService) SetQuantity(ctx context.Context, sessionID, productID string, quantity int) (*domain.Cart, error) {
	const op = "set_quantity"
	ctx, span := s.startSpan(ctx, "CartService.SetQuantity", sessionID)
	defer span.End()
	span.SetAttributes(
		attribute.String("cart.product_id", productID),
		attribute.Int("cart.quantity", quantity),
	)

	if err := requireSession(sessionID); err != nil {
		return nil, s.fail(span, op, err)
	}
	if productID == "" {
		return nil, s.fail(span, op, apperrors.InvalidInput("product id is required"))
	}
	if quantity < 0 {
		return nil, s.fail(span, op, apperrors.InvalidInput("quantity must not be negative"))
	}
	if quantity > MaxQuantityPerItem {
		return nil, s.fail(span, op, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem)))
	}

	cart, err := s.mutate(ctx, span, op, sessionID, s.publishUpdated, func(cart *domain.Cart) (bool, error) {
		return cart.SetQuantity(productID, quantity), nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "cart item quantity set",
		slog.String("session_id", sessionID),
		slog.String("product_id", productID),
		slog.Int("quantity", quantity),
	)

	return cart, nil
}

// RemoveItem removes a line from the cart. Removing an absent line is not an error.
func (s *CartService) RemoveItem(ctx context.Context, sessionID, productID string) (*domain.Cart, error) {
	const op = "remove_item"
	ctx, span := s.startSpan(ctx, "CartService.RemoveItem", sessionID)
	defer span.End()
	span.SetAttributes(attribute.String("cart.product_id", productID))

	if err := requireSession(sessionID); err != nil {
		return nil, s.fail(span, op, err)
	}
	if productID == "" {
		return nil, s.fail(span, op, apperrors.InvalidInput("product id is required"))
	}

	cart, err := s.mutate(ctx, span, op, sessionID, s.publishUpdated, func(cart *domain.Cart) (bool, error) {
		return cart.Remove(productID), nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "item removed from cart",
		slog.String("session_id", sessionID),
		slog.String("product_id", productID),
	)

	return cart, nil
}

// ClearCart empties the session's cart. The empty cart is stored under the
// next version rather than deleted, so a writer still holding the old cart
// gets a conflict instead of resurrecting it. Clearing an empty or absent
// cart is a no-op and publishes nothing.
func (s *CartService) ClearCart(ctx context.Context, sessionID string) error {
	const op = "clear"
	ctx, span := s.startSpan(ctx, "CartService.ClearCart", sessionID)
	defer span.End()

	if err := requireSession(sessionID); err != nil {
		return s.fail(span, op, err)
	}

	if _, err := s.mutate(ctx, span, op, sessionID, s.publishCleared, func(cart *domain.Cart) (bool, error) {
		return cart.Clear(), nil
	}); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "cart cleared",
		slog.String("session_id", sessionID),
	)

	return nil
}

// mutate loads the session cart, applies fn and, if fn reports a change,
// stores the cart under an optimistic version check and hands it to publish.
// An unchanged cart is returned as loaded.
func (s *CartService) mutate(
	ctx context.Context,
	span trace.Span,
	op, sessionID string,
	publish func(context.Context, *domain.Cart),
	fn func(cart *domain.Cart) (bool, error),
) (*domain.Cart, error) {
	cart, err := s.getOrCreateCart(ctx, sessionID)
	if err != nil {
		return nil, s.fail(span, op, err)
	}

	expectedVersion := cart.Version

	changed, err := fn(cart)
	if err != nil {
		return nil, s.fail(span, op, err)
	}
	if !changed {
		cartOperations.WithLabelValues(op, outcomeNoop).Inc()
		span.SetAttributes(attribute.Bool("cart.changed", false))
		return cart, nil
	}

	cart.Touch(s.now(), s.cartTTL)

	ok, err := s.repo.SaveIfVersion(ctx, cart, expectedVersion)
	if err != nil {
		return nil, s.fail(span, op, apperrors.Wrap(err, "save cart"))
	}
	if !ok {
		return nil, s.fail(span, op, errConcurrentModification)
	}

	cartOperations.WithLabelValues(op, outcomeChanged).Inc()
	span.SetAttributes(
		attribute.Bool("cart.changed", true),
		attribute.Int("cart.version", cart.Version),
		attribute.Int("cart.item_count", cart.ItemCount()),
	)

	publish(ctx, cart)

	return cart, nil
}

// Publishing failures are logged; the cart is already saved.
func (s *CartService) publishUpdated(ctx context.Context, cart *domain.Cart) {
	if err := s.events.PublishCartUpdated(ctx, cart); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("session_id", cart.SessionID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *CartService) publishCleared(ctx context.Context, cart *domain.Cart) {
	if err := s.events.PublishCartCleared(ctx, cart.SessionID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("session_id", cart.SessionID),
			slog.String("error", err.Error()),
		)
	}
}

// getOrCreateCart retrieves the cart for a session, creating an empty one if it does not exist.
func (s *CartService) getOrCreateCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	cart, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.NewCart(uuid.New().String(), sessionID, s.currency, s.now(), s.cartTTL), nil
		}
		return nil, apperrors.Wrap(err, "get cart")
	}
	return cart, nil
}

func (s *CartService) startSpan(ctx context.Context, name, sessionID string) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, name)
	span.SetAttributes(attribute.String("cart.session_id", sessionID))
	return ctx, span
}

// fail records err on the span and the operation counter and returns it.
func (s *CartService) fail(span trace.Span, op string, err error) error {
	tracing.RecordError(span, err)
	cartOperations.WithLabelValues(op, errorOutcome(err)).Inc()
	return err
}

func requireSession(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return apperrors.InvalidInput("session id is required")
	}
	return nil
}
