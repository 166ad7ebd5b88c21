package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/logger"
)

// Recovery converts a handler panic into a logged 500 in the standard error
// envelope. http.ErrAbortHandler is re-raised so net/http can drop the
// connection.
func Recovery(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				switch v {
				case nil:
					return
				case http.ErrAbortHandler:
					panic(v)
				}

				ctx := r.Context()
				cause := fmt.Errorf("panic: %v", v)
				trace.SpanFromContext(ctx).RecordError(cause, trace.WithStackTrace(true))
				l.ErrorContext(ctx, "panic recovered",
					slog.Any("panic", v),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)

				appErr := apperrors.Internal(cause)
				httputil.WriteJSON(w, appErr.Status, httputil.Response{Error: &httputil.ErrorResponse{
					Code:      appErr.Code,
					Message:   appErr.Message,
					RequestID: logger.CorrelationIDFromContext(ctx),
				}})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
