// Package metrics exposes Prometheus collectors for HTTP traffic and
// booking operations.
package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	BookingOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "museum_booking_operations_total",
			Help: "Booking operations by operation, reservation kind and outcome",
		},
		[]string{"op", "kind", "outcome"},
	)
	BookingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "museum_booking_operation_duration_seconds",
			Help:    "Booking operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

// ObserveBooking records one finished booking operation.  outcome is "ok"
// or the error kind.
func ObserveBooking(op, kind, outcome string, d time.Duration) {
	if kind == "" {
		kind = "any"
	}
	BookingOperations.WithLabelValues(op, kind, outcome).Inc()
	BookingDuration.WithLabelValues(op).Observe(d.Seconds())
}

// NormalizePath keeps the first segment after the version prefix so the
// path label stays low-cardinality.
func NormalizePath(p string) string {
	p = strings.TrimPrefix(p, "/")
	p = strings.TrimPrefix(p, "v1/")
	if idx := strings.Index(p, "/"); idx >= 0 {
		p = p[:idx]
	}
	if p == "" {
		return "root"
	}
	return p
}

func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().URL.Path == "/metrics" {
				return next(c)
			}
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			path := NormalizePath(c.Request().URL.Path)
			status := strconv.Itoa(c.Response().Status)
			RequestTotal.WithLabelValues(c.Request().Method, path, status).Inc()
			RequestDuration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
