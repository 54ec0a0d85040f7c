package models

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "session_count",
		Help: "The number of sessions.",
	})

	sessionCountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_count_total",
		Help: "The total number of sessions.",
	})
)

func instrumentIncreaseSessionGauge() {
	sessionCount.Inc()
}

func instrumentDecreaseSessionGauge() {
	sessionCount.Dec()
}

func instrumentCountSession() {
	sessionCountTotal.Inc()
}
