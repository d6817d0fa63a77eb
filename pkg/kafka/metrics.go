package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	published = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bookify",
		Subsystem: "kafka",
		Name:      "published_total",
		Help:      "Events published, by topic and outcome.",
	}, []string{"topic", "outcome"})

	consumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bookify",
		Subsystem: "kafka",
		Name:      "consumed_total",
		Help:      "Messages consumed, by topic and outcome (ok, failed, malformed, duplicate).",
	}, []string{"topic", "outcome"})

	handleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bookify",
		Subsystem: "kafka",
		Name:      "handle_duration_seconds",
		Help:      "Time spent in message handlers.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"topic"})
)
