package dispute

import "github.com/prometheus/client_golang/prometheus"

var (
	disputesRaised = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "timebank",
		Name:      "disputes_raised_total",
		Help:      "Total disputes raised.",
	})

	disputesResolved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timebank",
		Name:      "disputes_resolved_total",
		Help:      "Total disputes resolved by outcome.",
	}, []string{"resolution"})
)

func init() {
	prometheus.MustRegister(disputesRaised, disputesResolved)
}
