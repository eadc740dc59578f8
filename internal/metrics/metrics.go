package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookline",
			Name:      "booking_created_total",
			Help:      "Count of bookings created by status.",
		},
		[]string{"status"},
	)

	bookingRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookline",
			Name:      "booking_rejected_total",
			Help:      "Count of rejected booking attempts by reason.",
		},
		[]string{"reason"},
	)

	slotTransition = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookline",
			Name:      "slot_transition_total",
			Help:      "Count of admin slot transitions.",
		},
		[]string{"transition"},
	)

	slotsProvisioned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bookline",
			Name:      "slots_provisioned_total",
			Help:      "Count of slot rows created by provisioning.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookline",
			Name:      "http_requests_total",
			Help:      "Count of API requests by endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingCreated, bookingRejected, slotTransition, slotsProvisioned, httpRequests)
	})
}

func IncBookingCreated(status string) {
	bookingCreated.WithLabelValues(status).Inc()
}

func IncBookingRejected(reason string) {
	bookingRejected.WithLabelValues(reason).Inc()
}

func IncSlotTransition(transition string) {
	slotTransition.WithLabelValues(transition).Inc()
}

func AddSlotsProvisioned(n int64) {
	slotsProvisioned.Add(float64(n))
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}
