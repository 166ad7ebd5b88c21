package database

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/utafrali/storefront/pkg/database"

var slowCommands struct {
	sync.RWMutex
	threshold time.Duration
	logger    *slog.Logger
}

// SetSlowCommandLogging makes TraceCommand warn about commands slower than
// threshold. Zero disables it.
func SetSlowCommandLogging(threshold time.Duration, logger *slog.Logger) {
	slowCommands.Lock()
	defer slowCommands.Unlock()
	slowCommands.threshold = threshold
	slowCommands.logger = logger
}

func slowCommandConfig() (time.Duration, *slog.Logger) {
	slowCommands.RLock()
	defer slowCommands.RUnlock()
	return slowCommands.threshold, slowCommands.logger
}

// TraceCommand opens a client span around one Redis round trip. Call the
// returned func exactly once with the outcome:
//
//	ctx, end := database.TraceCommand(ctx, "GET", key)
//	data, err := client.Get(ctx, key).Bytes()
//	end(err)
//
// A miss (redis.Nil) is not a failure; callers pass nil for it.
func TraceCommand(ctx context.Context, operation, key string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "redis."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "redis"),
			attribute.String("db.operation", operation),
			attribute.String("db.redis.key", key),
		),
	)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		threshold, logger := slowCommandConfig()
		if threshold <= 0 || logger == nil {
			return
		}
		if elapsed := time.Since(start); elapsed >= threshold {
			logger.WarnContext(ctx, "slow redis command",
				slog.String("operation", operation),
				slog.String("key", key),
				slog.Duration("duration", elapsed),
				slog.Bool("failed", err != nil),
			)
		}
	}
}
