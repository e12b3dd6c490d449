// Package metrics exposes the process-wide Prometheus collectors.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests served, by method, route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	bookings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vetclinic_bookings_total",
		Help: "Appointment booking attempts by outcome.",
	}, []string{"outcome"})

	adoptionDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vetclinic_adoption_decisions_total",
		Help: "Adoption request decisions, including cascaded rejections.",
	}, []string{"decision"})

	notificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vetclinic_notifications_failed_total",
		Help: "Outbox writes that failed and were dropped.",
	})
)

func ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Booking outcomes.
const (
	BookingBooked   = "booked"
	BookingTaken    = "slot_taken"
	BookingBusy     = "slot_busy"
	BookingRejected = "rejected"
	BookingError    = "error"
)

func ObserveBooking(outcome string) {
	bookings.WithLabelValues(outcome).Inc()
}

func ObserveAdoptionDecision(decision string, n int) {
	if n <= 0 {
		return
	}
	adoptionDecisions.WithLabelValues(decision).Add(float64(n))
}

func NotificationFailed() {
	notificationFailures.Inc()
}
