package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchSucceededTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commodity_fetch_succeeded_total",
		Help: "Symbols whose quote fetch succeeded",
	})

	fetchFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commodity_fetch_failed_total",
		Help: "Symbols whose quote fetch failed after retries",
	})

	recordsLoadedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commodity_records_loaded_total",
		Help: "Market records persisted",
	})

	recordsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commodity_records_failed_total",
		Help: "Market records rejected by the store",
	})

	runDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "commodity_run_duration_seconds",
		Help:    "Wall-clock duration of one pipeline run",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})
)

func FetchSucceeded() {
	fetchSucceededTotal.Inc()
}

func FetchFailed() {
	fetchFailedTotal.Inc()
}

func RecordsLoaded(n int) {
	recordsLoadedTotal.Add(float64(n))
}

func RecordsFailed(n int) {
	recordsFailedTotal.Add(float64(n))
}

func ObserveRunDuration(d time.Duration) {
	runDurationSeconds.Observe(d.Seconds())
}
