package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labbooking",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "labbooking",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	bookingOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labbooking",
			Subsystem: "bookings",
			Name:      "operations_total",
			Help:      "Booking operations by outcome.",
		},
		[]string{"op", "outcome"},
	)
	eventSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "labbooking",
			Subsystem: "events",
			Name:      "subscribers",
			Help:      "Connected booking event subscribers.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, bookingOps, eventSubscribers)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

func RecordBooking(op, outcome string) {
	RegisterMetrics()
	bookingOps.WithLabelValues(op, outcome).Inc()
}

func SetEventSubscribers(n int) {
	RegisterMetrics()
	eventSubscribers.Set(float64(n))
}
