package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/services/cart/internal/domain"
)

// Kafka topic constants for cart domain events.
const (
	TopicCartUpdated = "storefront.cart.updated"
	TopicCartCleared = "storefront.cart.cleared"
)

// Aggregate type constant.
const AggregateTypeCart = "cart"

// Source identifier for events originating from the cart service.
const SourceCartService = "cart-service"

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	SessionID          string         `json:"session_id"`
	Items              []CartItemData `json:"items"`
	ItemCount          int            `json:"item_count"`
	TotalPrice         int64          `json:"total_price"`
	TotalLoyaltyPoints int64          `json:"total_loyalty_points"`
	Currency           string         `json:"currency"`
}

// CartItemData is the item payload within cart events.
type CartItemData struct {
	ProductID     string `json:"product_id"`
	Name          string `json:"name"`
	UnitPrice     int64  `json:"unit_price"`
	LoyaltyPoints int64  `json:"loyalty_points"`
	Quantity      int    `json:"quantity"`
}

// CartClearedData is the payload for a cart.cleared event.
type CartClearedData struct {
	SessionID string `json:"session_id"`
}

// Publisher sends an event envelope to a topic. *pkgkafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes cart domain events.
type Producer struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer for the cart service.
func NewProducer(publisher Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		publisher: publisher,
		logger:    logger,
	}
}

// NewDiscardProducer creates a producer that builds events but never sends
// them. Used when Kafka is disabled.
func NewDiscardProducer(logger *slog.Logger) *Producer {
	return NewProducer(discard{}, logger)
}

// PublishCartUpdated publishes a cart.updated event carrying the full cart contents.
func (p *Producer) PublishCartUpdated(ctx context.Context, cart *domain.Cart) error {
	lines := cart.Items()
	items := make([]CartItemData, len(lines))
	for i, li := range lines {
		items[i] = CartItemData{
			ProductID:     li.Product.ID(),
			Name:          li.Product.Name(),
			UnitPrice:     li.Product.Price(),
			LoyaltyPoints: li.Product.LoyaltyPoints(),
			Quantity:      li.Quantity,
		}
	}

	data := CartUpdatedData{
		SessionID:          cart.SessionID,
		Items:              items,
		ItemCount:          cart.ItemCount(),
		TotalPrice:         cart.TotalPrice(),
		TotalLoyaltyPoints: cart.TotalLoyaltyPoints(),
		Currency:           cart.Currency,
	}

	if err := p.publish(ctx, TopicCartUpdated, cart.SessionID, data); err != nil {
		return fmt.Errorf("publish cart.updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.updated event",
		slog.String("session_id", cart.SessionID),
		slog.Int("item_count", data.ItemCount),
	)

	return nil
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, sessionID string) error {
	if err := p.publish(ctx, TopicCartCleared, sessionID, CartClearedData{SessionID: sessionID}); err != nil {
		return fmt.Errorf("publish cart.cleared event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.cleared event",
		slog.String("session_id", sessionID),
	)

	return nil
}

func (p *Producer) publish(ctx context.Context, topic, sessionID string, data any) error {
	evt, err := pkgkafka.NewEvent(topic, sessionID, AggregateTypeCart, SourceCartService, data)
	if err != nil {
		return err
	}
	return p.publisher.Publish(ctx, topic, evt.WithRequestContext(ctx))
}

type discard struct{}

func (discard) Publish(context.Context, string, *pkgkafka.Event) error { return nil }
