package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "restoboost"

var (
	once sync.Once

	slotsRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slots_requests_total",
			Help:      "Available-slot computations by outcome (ok, empty, degraded, invalid, failed).",
		},
		[]string{"outcome"},
	)

	slotsCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slots_cache_total",
			Help:      "Slot cache lookups by result (hit, miss).",
		},
		[]string{"result"},
	)

	slotsGenerated = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "slots_generated",
			Help:      "Number of slots returned per computation.",
			Buckets:   []float64{0, 1, 4, 8, 16, 32, 64, 128},
		},
	)

	storeRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_requests_total",
			Help:      "Data store calls by table, method and status.",
		},
		[]string{"table", "method", "status"},
	)

	storeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_request_duration_seconds",
			Help:      "Latency of data store calls.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"table", "method"},
	)

	cacheInvalidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_invalidations_total",
			Help:      "Slot cache invalidations by scope (restaurant, all).",
		},
		[]string{"scope"},
	)

	bookingStatus = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_status_total",
			Help:      "Booking lifecycle transitions by resulting status.",
		},
		[]string{"status"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests by route and status code.",
		},
		[]string{"route", "code"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			slotsRequests,
			slotsCache,
			slotsGenerated,
			storeRequests,
			storeDuration,
			cacheInvalidations,
			bookingStatus,
			httpRequests,
		)
	})
}

func IncSlotsRequest(outcome string) {
	slotsRequests.WithLabelValues(outcome).Inc()
}

func IncSlotsCache(hit bool) {
	if hit {
		slotsCache.WithLabelValues("hit").Inc()
		return
	}
	slotsCache.WithLabelValues("miss").Inc()
}

func ObserveSlotsGenerated(n int) {
	slotsGenerated.Observe(float64(n))
}

// ObserveStoreCall records one data store round trip.
func ObserveStoreCall(table, method, status string, elapsed time.Duration) {
	storeRequests.WithLabelValues(table, method, status).Inc()
	storeDuration.WithLabelValues(table, method).Observe(elapsed.Seconds())
}

func IncCacheInvalidation(scope string) {
	cacheInvalidations.WithLabelValues(scope).Inc()
}

func IncBookingStatus(status string) {
	bookingStatus.WithLabelValues(status).Inc()
}

func IncHTTP(route string, code int) {
	httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
