package booking

import "github.com/prometheus/client_golang/prometheus"

var (
	bookingsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "timebank",
		Name:      "bookings_created_total",
		Help:      "Total bookings created.",
	})

	bookingsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "timebank",
		Name:      "bookings_completed_total",
		Help:      "Total bookings completed and settled.",
	})
)

func init() {
	prometheus.MustRegister(bookingsCreated, bookingsCompleted)
}
