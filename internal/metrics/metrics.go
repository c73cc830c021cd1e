package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vino_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vino_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vino_recommend_duration_seconds",
			Help:    "Time spent ranking the catalog for one request",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	RecommendResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vino_recommend_results",
			Help:    "Number of wines returned per recommendation",
			Buckets: prometheus.LinearBuckets(0, 1, 11),
		},
	)

	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vino_store_operations_total",
			Help: "Preference store operations by backend, operation and outcome",
		},
		[]string{"backend", "operation", "outcome"},
	)

	CatalogWines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vino_catalog_wines",
			Help: "Number of wines in the loaded catalog",
		},
	)

	CatalogSkippedRows = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vino_catalog_skipped_rows_total",
			Help: "Catalog rows skipped because their price was unusable",
		},
	)
)

func RecordAPIRequest(method, route string, status int, d time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func RecordRecommendation(d time.Duration, results int) {
	RecommendDuration.Observe(d.Seconds())
	RecommendResults.Observe(float64(results))
}

// RecordStoreOp counts one store call. Expected failures (duplicate, missing
// user) are labelled by outcome rather than "error".
func RecordStoreOp(backend, op string, err error, outcomes map[error]string) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		for target, label := range outcomes {
			if errors.Is(err, target) {
				outcome = label
				break
			}
		}
	}
	StoreOperations.WithLabelValues(backend, op, outcome).Inc()
}

var StoreUsers = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "vino_store_users",
		Help: "Users with saved preferences, refreshed periodically",
	},
)
