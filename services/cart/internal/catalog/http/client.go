// Package http is a catalog backed by the product service's REST API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/services/cart/internal/domain"
)

const (
	serviceName        = "catalog"
	unavailableMessage = "product catalog is temporarily unavailable, please retry"
)

// CircuitOpenFallback maps an open breaker to a retryable 503.
func CircuitOpenFallback(_ context.Context, _ error) (*http.Response, error) {
	return nil, apperrors.ServiceUnavailable(unavailableMessage)
}

type productPayload struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Price         int64  `json:"price"`
	LoyaltyPoints int64  `json:"loyalty_points"`
	Available     bool   `json:"available"`
}

type productResponse struct {
	Data *productPayload `json:"data"`
}

// Client fetches products from the product service.
type Client struct {
	doer    httpclient.Doer
	baseURL string
	logger  *slog.Logger
}

// NewClient creates a catalog client. doer is typically a
// httpclient.CircuitBreakerClient wrapping a retrying httpclient.Client.
func NewClient(doer httpclient.Doer, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		doer:    doer,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// GetProduct fetches a single product by ID.
func (c *Client) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	endpoint := c.baseURL + "/api/v1/products/" + url.PathEscape(id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return domain.Product{}, fmt.Errorf("create product request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return domain.Product{}, c.callError(ctx, id, err)
	}

	if resp.StatusCode != http.StatusOK {
		return domain.Product{}, httpclient.ParseResponseError(resp, serviceName)
	}
	defer resp.Body.Close()

	var body productResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.Product{}, fmt.Errorf("decode product response: %w", err)
	}
	if body.Data == nil {
		return domain.Product{}, fmt.Errorf("catalog returned empty product payload for %q", id)
	}
	if body.Data.ID != id {
		c.logger.WarnContext(ctx, "catalog returned a different product",
			slog.String("product_id", id),
			slog.String("returned_id", body.Data.ID),
		)
		return domain.Product{}, fmt.Errorf("catalog returned product %q for %q", body.Data.ID, id)
	}

	p, err := domain.NewProduct(body.Data.ID, body.Data.Name, body.Data.Price, body.Data.LoyaltyPoints, body.Data.Available)
	if err != nil {
		c.logger.WarnContext(ctx, "catalog returned invalid product",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
		return domain.Product{}, fmt.Errorf("invalid product %q from catalog: %s", id, err.Error())
	}

	return p, nil
}

// callError classifies a failed round trip. Errors that already carry a
// status (the breaker fallback) and caller cancellation pass through; server
// errors and transport failures mean the catalog is unavailable.
func (c *Client) callError(ctx context.Context, id string, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("call catalog service: %w", err)
	}

	c.logger.WarnContext(ctx, "catalog call failed",
		slog.String("product_id", id),
		slog.String("error", err.Error()),
	)
	unavailable := apperrors.ServiceUnavailable(unavailableMessage)
	unavailable.Err = fmt.Errorf("%w: call catalog service: %w", apperrors.ErrServiceUnavail, err)
	return unavailable
}
