package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/services/cart/internal/domain"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestProducer(w *fakeWriter) *Producer {
	l := testLogger()
	return NewProducer(pkgkafka.NewProducerWithWriter(w, []string{"localhost:9092"}, l), l)
}

func sampleCart() *domain.Cart {
	c := &domain.Cart{ID: "cart-1", SessionID: "sess-1", Currency: "USD"}
	c.Add(domain.MustProduct("prod-a", "A", 3200, 32, true))
	c.Add(domain.MustProduct("prod-a", "A", 3200, 32, true))
	c.Add(domain.MustProduct("prod-b", "B", 4200, 42, true))
	return c
}

func TestPublishCartUpdated(t *testing.T) {
	w := &fakeWriter{}
	p := newTestProducer(w)
	ctx := logger.WithCorrelationID(context.Background(), "corr-42")

	require.NoError(t, p.PublishCartUpdated(ctx, sampleCart()))

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, TopicCartUpdated, msg.Topic)
	assert.Equal(t, []byte("sess-1"), msg.Key)

	evt, err := pkgkafka.UnmarshalEvent(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, TopicCartUpdated, evt.EventType)
	assert.Equal(t, AggregateTypeCart, evt.AggregateType)
	assert.Equal(t, SourceCartService, evt.Source)
	assert.Equal(t, "corr-42", evt.CorrelationID)

	var data CartUpdatedData
	require.NoError(t, evt.UnmarshalData(&data))
	assert.Equal(t, "sess-1", data.SessionID)
	assert.Equal(t, 3, data.ItemCount)
	assert.Equal(t, int64(10600), data.TotalPrice)
	assert.Equal(t, int64(106), data.TotalLoyaltyPoints)
	assert.Equal(t, "USD", data.Currency)
	require.Len(t, data.Items, 2)
	assert.Equal(t, CartItemData{ProductID: "prod-a", Name: "A", UnitPrice: 3200, LoyaltyPoints: 32, Quantity: 2}, data.Items[0])
	assert.Equal(t, "prod-b", data.Items[1].ProductID)
}

func TestPublishCartUpdated_EmptyCartHasEmptyItems(t *testing.T) {
	w := &fakeWriter{}
	p := newTestProducer(w)

	require.NoError(t, p.PublishCartUpdated(context.Background(), &domain.Cart{SessionID: "s"}))

	evt, err := pkgkafka.UnmarshalEvent(w.messages[0].Value)
	require.NoError(t, err)
	assert.Contains(t, string(evt.Data), `"items":[]`)
}

func TestPublishCartCleared(t *testing.T) {
	w := &fakeWriter{}
	p := newTestProducer(w)

	require.NoError(t, p.PublishCartCleared(context.Background(), "sess-9"))

	require.Len(t, w.messages, 1)
	assert.Equal(t, TopicCartCleared, w.messages[0].Topic)

	evt, err := pkgkafka.UnmarshalEvent(w.messages[0].Value)
	require.NoError(t, err)
	assert.Empty(t, evt.CorrelationID)

	var data CartClearedData
	require.NoError(t, evt.UnmarshalData(&data))
	assert.Equal(t, "sess-9", data.SessionID)
}

func TestPublish_WriterError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := newTestProducer(w)

	err := p.PublishCartCleared(context.Background(), "sess-9")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish cart.cleared event")
	assert.Contains(t, err.Error(), "broker down")
}

func TestDiscardProducer(t *testing.T) {
	p := NewDiscardProducer(testLogger())

	assert.NoError(t, p.PublishCartUpdated(context.Background(), sampleCart()))
	assert.NoError(t, p.PublishCartCleared(context.Background(), "sess-1"))
}
