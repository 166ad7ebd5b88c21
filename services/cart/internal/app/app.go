package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httpclient"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/tracing"
	"github.com/utafrali/storefront/services/cart/internal/catalog"
	cataloghttp "github.com/utafrali/storefront/services/cart/internal/catalog/http"
	catalogmemory "github.com/utafrali/storefront/services/cart/internal/catalog/memory"
	"github.com/utafrali/storefront/services/cart/internal/config"
	"github.com/utafrali/storefront/services/cart/internal/event"
	handler "github.com/utafrali/storefront/services/cart/internal/handler/http"
	"github.com/utafrali/storefront/services/cart/internal/repository"
	memoryrepo "github.com/utafrali/storefront/services/cart/internal/repository/memory"
	redisrepo "github.com/utafrali/storefront/services/cart/internal/repository/redis"
	"github.com/utafrali/storefront/services/cart/internal/service"
)

const serviceName = "cart-service"

type closer struct {
	name  string
	close func(ctx context.Context) error
}

// App wires together all dependencies and runs the cart service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	// closers run in reverse order on shutdown.
	closers []closer
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	healthHandler := health.NewHandler()

	// Tracing.
	tracingCfg := tracing.DefaultConfig(serviceName)
	tracingCfg.Environment = cfg.Environment
	tracingCfg.Enabled = cfg.OTELEnabled
	tracingCfg.OTLPEndpoint = cfg.OTELEndpoint
	tracingCfg.SampleRate = cfg.OTELSampleRate
	shutdownTracer, err := tracing.InitTracer(ctx, tracingCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.closers = append(a.closers, closer{"tracer", shutdownTracer})
	if cfg.OTELEnabled {
		logger.Info("tracing enabled",
			slog.String("endpoint", cfg.OTELEndpoint),
			slog.Float64("sample_rate", cfg.OTELSampleRate),
		)
	}

	// Session store.
	cartTTL := cfg.CartTTLDuration()
	repo, err := a.newRepository(ctx, healthHandler, cartTTL)
	if err != nil {
		a.closeAll(ctx)
		return nil, err
	}

	// Catalog.
	cat := a.newCatalog()

	// Events.
	var producer *event.Producer
	if cfg.KafkaEnabled {
		kafkaProducer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		producer = event.NewProducer(kafkaProducer, logger)
		healthHandler.Register("kafka", kafkaProducer.Ping)
		a.closers = append(a.closers, closer{"kafka producer", func(context.Context) error { return kafkaProducer.Close() }})
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		producer = event.NewDiscardProducer(logger)
		logger.Info("kafka disabled, cart events are discarded")
	}

	// Build the dependency graph.
	cartService := service.NewCartService(repo, cat, producer, logger, cartTTL, cfg.Currency)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	corsCfg.Environment = cfg.Environment

	router := handler.NewRouter(cartService, healthHandler, logger, corsCfg)

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return a, nil
}

func (a *App) newRepository(ctx context.Context, hh *health.Handler, ttl time.Duration) (repository.CartRepository, error) {
	if a.cfg.Store != config.StoreRedis {
		a.logger.Info("using in-memory cart store")
		return memoryrepo.NewCartRepository(ttl), nil
	}

	redisCfg := database.DefaultRedisConfig()
	redisCfg.Addr = a.cfg.RedisAddr
	redisCfg.Password = a.cfg.RedisPass
	redisCfg.DB = a.cfg.RedisDB

	rdb, err := database.NewRedisClient(ctx, redisCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	hh.Register("redis", database.RedisChecker(rdb))
	database.SetSlowCommandLogging(a.cfg.RedisSlowThreshold, a.logger)
	a.closers = append(a.closers, closer{"redis", func(context.Context) error { return rdb.Close() }})

	a.logger.Info("connected to Redis",
		slog.String("addr", a.cfg.RedisAddr),
		slog.Int("db", a.cfg.RedisDB),
	)
	return redisrepo.NewCartRepository(rdb, ttl), nil
}

func (a *App) newCatalog() catalog.Catalog {
	if a.cfg.CatalogURL == "" {
		cat := catalogmemory.NewSeeded()
		a.logger.Info("using built-in demo catalog",
			slog.Int("products", len(cat.List())),
		)
		return cat
	}

	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = a.cfg.CatalogTimeout
	cbCfg := httpclient.DefaultCircuitBreakerConfig("cart-catalog")
	cbClient := httpclient.NewCircuitBreakerClient(httpclient.New(httpCfg), cbCfg, a.logger).
		WithFallback(cataloghttp.CircuitOpenFallback)

	a.logger.Info("using remote catalog",
		slog.String("url", a.cfg.CatalogURL),
		slog.Duration("timeout", a.cfg.CatalogTimeout),
		slog.String("breaker", cbCfg.Name),
	)
	return cataloghttp.NewClient(cbClient, a.cfg.CatalogURL, a.logger)
}

// Handler returns the HTTP handler serving the cart API.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.closeAll(context.Background())
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	a.closeAll(shutdownCtx)

	a.logger.Info("application shutdown complete")
	return nil
}

func (a *App) closeAll(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(ctx); err != nil {
			a.logger.Error(c.name+" close error", slog.String("error", err.Error()))
		}
	}
	a.closers = nil
}
