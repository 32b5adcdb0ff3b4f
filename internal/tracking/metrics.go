package tracking

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Sent      prometheus.Counter
	Throttled prometheus.Counter
	Failed    prometheus.Counter
}

// NewMetrics builds the uplink counters on reg. A nil reg leaves them
// unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Sent: f.NewCounter(prometheus.CounterOpts{
			Namespace: "logbook",
			Subsystem: "tracker",
			Name:      "samples_sent_total",
			Help:      "Location samples delivered to the API.",
		}),
		Throttled: f.NewCounter(prometheus.CounterOpts{
			Namespace: "logbook",
			Subsystem: "tracker",
			Name:      "samples_throttled_total",
			Help:      "Location fixes dropped by the send interval.",
		}),
		Failed: f.NewCounter(prometheus.CounterOpts{
			Namespace: "logbook",
			Subsystem: "tracker",
			Name:      "samples_failed_total",
			Help:      "Location samples the API did not accept.",
		}),
	}
}
