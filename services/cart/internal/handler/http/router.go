package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/services/cart/internal/service"
)

const (
	metricsLabel   = "cart"
	requestTimeout = 30 * time.Second
)

// NewRouter mounts the cart API under /api/v1/cart next to the health and
// metrics endpoints.
func NewRouter(
	cartService *service.CartService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cors middleware.CORSConfig,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recovery(logger),
		chimw.RealIP,
		chimw.CleanPath,
		middleware.CORS(cors),
		chimw.Compress(5),
		chimw.Timeout(requestTimeout),
		middleware.RequestLogging(logger),
		middleware.PrometheusMetrics(metricsLabel),
		middleware.Tracing(metricsLabel),
		middleware.RequestLogger(logger),
	)

	r.NotFound(jsonError(http.StatusNotFound, "NOT_FOUND", "route not found"))
	r.MethodNotAllowed(jsonError(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed"))

	r.Group(func(ops chi.Router) {
		ops.Get("/health/live", healthHandler.LivenessHandler())
		ops.Get("/health/ready", healthHandler.ReadinessHandler())
		ops.Method(http.MethodGet, "/metrics", promhttp.Handler())
	})

	r.Route("/api/v1/cart", cartRoutes(NewCartHandler(cartService, logger)))

	return r
}

func cartRoutes(h *CartHandler) func(chi.Router) {
	return func(r chi.Router) {
		r.Use(ContentTypeJSON, SessionIDFromHeader)

		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Get("/summary", h.GetSummary)

		r.Route("/items", func(r chi.Router) {
			r.Post("/", h.AddItem)
			r.Put("/{productId}", h.SetQuantity)
			r.Delete("/{productId}", h.RemoveItem)
		})
	}
}

func jsonError(status int, code, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, status, httputil.Response{
			Error: &httputil.ErrorResponse{Code: code, Message: message},
		})
	}
}
