package collision

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	verdictLabel = "verdict"

	verdictCollided       = "collided"
	verdictFree           = "free"
	verdictSensorNotReady = "sensor_not_ready"
	verdictNoData         = "no_data"
)

var (
	collisionTests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collision_tests",
		Help: "The number of collision queries by verdict.",
	}, []string{
		verdictLabel,
	})

	collisionInvalidRatio = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "collision_invalid_sample_ratio",
		Help:    "The fraction of samples without depth per collision query.",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	})
)

func instrumentVerdict(v Verdict) {
	var verdict string
	switch {
	case v.SensorNotReady:
		verdict = verdictSensorNotReady
	case v.TotalTested <= 0:
		verdict = verdictNoData
	case v.Collided:
		verdict = verdictCollided
	default:
		verdict = verdictFree
	}

	collisionTests.
		With(prometheus.Labels{verdictLabel: verdict}).
		Inc()

	if total := v.TotalTested + v.InvalidCount; total > 0 {
		collisionInvalidRatio.Observe((float64)(v.InvalidCount) / (float64)(total))
	}
}
