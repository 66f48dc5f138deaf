package kafka

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "storefront"

// Consumer outcomes. Every fetched message is counted as received and then
// exactly one of processed, failed or undecodable. dead_lettered is counted
// in addition when the DLQ write succeeds.
const (
	outcomeReceived     = "received"
	outcomeProcessed    = "processed"
	outcomeFailed       = "failed"
	outcomeUndecodable  = "undecodable"
	outcomeDeadLettered = "dead_lettered"

	outcomePublished = "published"
)

var (
	consumerMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "kafka_consumer",
			Name:      "messages_total",
			Help:      "Event messages read by a consumer group, by outcome.",
		},
		[]string{"topic", "group", "outcome"},
	)

	consumerHandleSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "kafka_consumer",
			Name:      "handle_duration_seconds",
			Help:      "Time spent handling one event, retries included.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"topic", "group"},
	)

	duplicateEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "kafka_consumer",
			Name:      "duplicate_events_total",
			Help:      "Events skipped because their id was already handled.",
		},
		[]string{"event_type"},
	)

	producerMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "kafka_producer",
			Name:      "messages_total",
			Help:      "Domain events written to Kafka, by outcome.",
		},
		[]string{"topic", "outcome"},
	)

	producerWriteSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "kafka_producer",
			Name:      "write_duration_seconds",
			Help:      "Latency of a single event write, failed writes included.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"topic"},
	)
)

// consumerMetrics holds the series of one consumer, resolved once so the
// fetch loop does no label lookups.
type consumerMetrics struct {
	received     prometheus.Counter
	processed    prometheus.Counter
	failed       prometheus.Counter
	undecodable  prometheus.Counter
	deadLettered prometheus.Counter
	handle       prometheus.Observer
}

func newConsumerMetrics(topic, group string) consumerMetrics {
	outcome := func(o string) prometheus.Counter {
		return consumerMessages.WithLabelValues(topic, group, o)
	}
	return consumerMetrics{
		received:     outcome(outcomeReceived),
		processed:    outcome(outcomeProcessed),
		failed:       outcome(outcomeFailed),
		undecodable:  outcome(outcomeUndecodable),
		deadLettered: outcome(outcomeDeadLettered),
		handle:       consumerHandleSeconds.WithLabelValues(topic, group),
	}
}

func observePublish(topic string, start time.Time, err error) {
	producerWriteSeconds.WithLabelValues(topic).Observe(time.Since(start).Seconds())
	outcome := outcomePublished
	if err != nil {
		outcome = outcomeFailed
	}
	producerMessages.WithLabelValues(topic, outcome).Inc()
}
