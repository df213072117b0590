package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inspection",
		Subsystem: "lifecycle",
		Name:      "transitions_total",
		Help:      "Total number of lifecycle transitions broken down by action and result.",
	}, []string{"action", "result"})

	lockWait = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "inspection",
		Subsystem: "lifecycle",
		Name:      "lock_wait_seconds",
		Help:      "Time spent waiting for the per-call lock.",
		Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"backend"})

	refreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inspection",
		Subsystem: "registry",
		Name:      "refresh_total",
		Help:      "Total number of registry reloads from the data source broken down by result.",
	}, []string{"result"})

	bucketSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "inspection",
		Subsystem: "registry",
		Name:      "calls",
		Help:      "Number of calls currently held per lifecycle bucket.",
	}, []string{"bucket"})
)

// RecordTransition counts one engine operation. result is "ok" or an error kind.
func RecordTransition(action, result string) {
	if result == "" {
		result = "ok"
	}
	transitions.WithLabelValues(action, result).Inc()
}

func ObserveLockWait(backend string, d time.Duration) {
	if backend == "" {
		backend = "local"
	}
	lockWait.WithLabelValues(backend).Observe(d.Seconds())
}

func RecordRefresh(ok bool) {
	result := "error"
	if ok {
		result = "ok"
	}
	refreshes.WithLabelValues(result).Inc()
}

func SetBucketSize(bucket string, n int) {
	bucketSize.WithLabelValues(bucket).Set(float64(n))
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
