// Package metrics exposes Prometheus collectors for the booking service.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bookingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_transitions_total",
			Help: "Booking status transitions committed to the store",
		},
		[]string{"from", "to"},
	)

	bookingRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_rejections_total",
			Help: "Booking operations refused, by operation and error kind",
		},
		[]string{"operation", "kind"},
	)

	classesRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "classes_removed_total",
			Help: "Classes removed together with their bookings",
		},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// RecordTransition counts a committed status change. from is empty for a
// newly created booking.
func RecordTransition(from, to string) {
	if from == "" {
		from = "none"
	}
	bookingTransitions.WithLabelValues(from, to).Inc()
}

// RecordRejection counts an operation that failed with an error of kind.
func RecordRejection(operation, kind string) {
	bookingRejections.WithLabelValues(operation, kind).Inc()
}

// RecordClassRemoved counts a class removal.
func RecordClassRemoved() {
	classesRemoved.Inc()
}

// Middleware observes request latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
