package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-systems/welfare-canteen-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation plus a lightweight
// snapshot for in-band consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	checkoutsTotal  prometheus.Counter
	depositsTotal   prometheus.Counter
	reversalsTotal  prometheus.Counter
	salesAmount     prometheus.Counter
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	requestCount         uint64
	requestDurationTotal uint64
	checkoutCount        uint64
	depositCount         uint64
	reversalCount        uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	checkoutsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pos_checkouts_total",
		Help: "Total completed POS checkouts",
	})

	depositsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "deposits_total",
		Help: "Total completed wallet deposits",
	})

	reversalsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reversals_total",
		Help: "Total reversed transactions",
	})

	salesAmount := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pos_sales_amount_total",
		Help: "Cumulative POS sales amount",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, checkoutsTotal, depositsTotal, reversalsTotal, salesAmount, cacheHits, cacheMisses, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		checkoutsTotal:  checkoutsTotal,
		depositsTotal:   depositsTotal,
		reversalsTotal:  reversalsTotal,
		salesAmount:     salesAmount,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCheckout counts a completed sale and its amount.
func (m *MetricsService) RecordCheckout(amount float64) {
	if m == nil {
		return
	}
	m.checkoutsTotal.Inc()
	m.salesAmount.Add(amount)
	atomic.AddUint64(&m.checkoutCount, 1)
}

// RecordDeposit counts a completed deposit.
func (m *MetricsService) RecordDeposit() {
	if m == nil {
		return
	}
	m.depositsTotal.Inc()
	atomic.AddUint64(&m.depositCount, 1)
}

// RecordReversal counts a reversal.
func (m *MetricsService) RecordReversal() {
	if m == nil {
		return
	}
	m.reversalsTotal.Inc()
	atomic.AddUint64(&m.reversalCount, 1)
}

// RecordCacheOperation records a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// Snapshot returns aggregated counters for in-band display.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		Checkouts:                atomic.LoadUint64(&m.checkoutCount),
		Deposits:                 atomic.LoadUint64(&m.depositCount),
		Reversals:                atomic.LoadUint64(&m.reversalCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
