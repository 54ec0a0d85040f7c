package freespace

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusLabel = "status"
)

var (
	explorations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "freespace_explorations",
		Help: "The number of free space explorations by status.",
	}, []string{
		statusLabel,
	})

	explorationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "freespace_exploration_duration_seconds",
		Help:    "The duration of free space explorations.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{
		statusLabel,
	})

	explorationMarkedCells = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "freespace_exploration_marked_cells",
		Help:    "The number of cells marked as free per exploration.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	explorationsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "freespace_explorations_dropped",
		Help: "The number of exploration results dropped because a newer exploration superseded them.",
	})

	explorationsIgnored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "freespace_explorations_ignored",
		Help: "The number of exploration requests ignored because another exploration was running.",
	})
)

func instrumentExploration(r Result) {
	labels := prometheus.Labels{statusLabel: string(r.Status)}

	explorations.With(labels).Inc()
	explorationDuration.With(labels).Observe(r.Duration.Seconds())

	if r.Marked > 0 {
		explorationMarkedCells.Observe((float64)(r.Marked))
	}
}

func instrumentDroppedExploration() {
	explorationsDropped.Inc()
}

func instrumentIgnoredExploration() {
	explorationsIgnored.Inc()
}
