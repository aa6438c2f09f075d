// Package metrics holds the prometheus collectors of the recyclehub backend
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application collectors
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recyclehub",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "recyclehub",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	collectionTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recyclehub",
			Subsystem: "collections",
			Name:      "transitions_total",
			Help:      "Collection status changes, by target status.",
		},
		[]string{"status"},
	)

	pointsMoved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recyclehub",
			Subsystem: "ledger",
			Name:      "points_total",
			Help:      "Points credited and debited.",
		},
		[]string{"kind"},
	)

	vouchersIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "recyclehub",
			Subsystem: "ledger",
			Name:      "vouchers_issued_total",
			Help:      "Vouchers issued in exchange for points.",
		},
	)

	vouchersExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "recyclehub",
			Subsystem: "ledger",
			Name:      "vouchers_expired_total",
			Help:      "Vouchers flagged as expired by the sweep.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		collectionTransitions,
		pointsMoved,
		vouchersIssued,
		vouchersExpired,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registry in the prometheus text format
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency per route template
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// RecordTransition counts a collection entering status
func RecordTransition(status string) {
	collectionTransitions.WithLabelValues(status).Inc()
}

// RecordPoints counts points moved by kind ("credit" or "debit")
func RecordPoints(kind string, points int) {
	if points <= 0 {
		return
	}
	pointsMoved.WithLabelValues(kind).Add(float64(points))
}

// RecordVoucherIssued counts one issued voucher
func RecordVoucherIssued() {
	vouchersIssued.Inc()
}

// RecordVouchersExpired counts vouchers flagged by an expiry sweep
func RecordVouchersExpired(n int64) {
	if n > 0 {
		vouchersExpired.Add(float64(n))
	}
}
