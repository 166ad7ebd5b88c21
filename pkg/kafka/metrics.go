package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

var (
	// ProducerMessages counts publish attempts by topic and outcome (ok, error).
	ProducerMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "kafka_producer",
		Name:      "messages_total",
		Help:      "Kafka publish attempts by topic and outcome.",
	}, []string{"topic", "outcome"})

	producerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "storefront",
		Subsystem: "kafka_producer",
		Name:      "publish_duration_seconds",
		Help:      "Time spent in WriteMessages.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"topic"})
)
