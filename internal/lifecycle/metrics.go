package lifecycle

import "github.com/prometheus/client_golang/prometheus"

var (
	loadAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aihostd",
			Subsystem: "lifecycle",
			Name:      "load_attempts_total",
			Help:      "Total load attempts per capability",
		},
		[]string{"capability"},
	)

	loadSuccessTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aihostd",
			Subsystem: "lifecycle",
			Name:      "load_success_total",
			Help:      "Successful loads per capability",
		},
		[]string{"capability"},
	)

	loadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "aihostd",
			Subsystem: "lifecycle",
			Name:      "load_duration_seconds",
			Help:      "Duration of successful loads in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		},
		[]string{"capability"},
	)

	loadedGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "aihostd",
			Subsystem: "lifecycle",
			Name:      "loaded",
			Help:      "Whether a capability currently holds a loaded resource (0 or 1)",
		},
		[]string{"capability"},
	)
)

func init() {
	prometheus.MustRegister(loadAttemptsTotal, loadSuccessTotal, loadDuration, loadedGauge)
}
