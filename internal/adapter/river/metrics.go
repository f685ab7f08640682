package river

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	jobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tillpoint",
		Subsystem: "jobs",
		Name:      "runs_total",
		Help:      "Background job runs by kind and outcome.",
	}, []string{"kind", "outcome"})

	jobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tillpoint",
		Subsystem: "jobs",
		Name:      "duration_seconds",
		Help:      "Duration of background job runs in seconds.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	}, []string{"kind"})

	subscriptionsExpired = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tillpoint",
		Subsystem: "subscriptions",
		Name:      "expired_total",
		Help:      "Subscriptions moved to expired by the sweep.",
	})

	remindersSent = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tillpoint",
		Subsystem: "subscriptions",
		Name:      "reminders_sent_total",
		Help:      "Renewal reminders delivered.",
	})
)

func init() {
	prometheus.MustRegister(jobRuns, jobDuration, subscriptionsExpired, remindersSent)
}

// observe records one run of kind that started at start.
func observe(kind string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	jobRuns.WithLabelValues(kind, outcome).Inc()
	jobDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
