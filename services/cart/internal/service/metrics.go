package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Operation outcomes recorded by cartOperations.
const (
	outcomeChanged  = "changed"
	outcomeNoop     = "noop"
	outcomeRejected = "rejected"
	outcomeConflict = "conflict"
	outcomeError    = "error"
)

var cartOperations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cart_operations_total",
		Help: "Total number of cart operations by outcome",
	},
	[]string{"operation", "outcome"},
)

func errorOutcome(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrConflict):
		return outcomeConflict
	case errors.Is(err, apperrors.ErrInvalidInput), errors.Is(err, apperrors.ErrNotFound):
		return outcomeRejected
	default:
		return outcomeError
	}
}
