package notifications

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func queueOpts(name, help string) prometheus.Opts {
	return prometheus.Opts{Namespace: "sellerdesk", Subsystem: "notifications", Name: name, Help: help}
}

var (
	jobsByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts(queueOpts("jobs", "Notification jobs by state; failed counts jobs with a recorded error.")),
		[]string{"state"},
	)

	jobsEnqueued = promauto.NewCounter(
		prometheus.CounterOpts(queueOpts("jobs_enqueued_total", "Notification jobs accepted into the queue.")),
	)

	jobsRequeued = promauto.NewCounter(
		prometheus.CounterOpts(queueOpts("jobs_requeued_total", "In-flight jobs recovered from interrupted passes.")),
	)

	jobsPurged = promauto.NewCounter(
		prometheus.CounterOpts(queueOpts("jobs_purged_total", "Terminal jobs removed by retention.")),
	)

	attempts = promauto.NewCounterVec(
		prometheus.CounterOpts(queueOpts("attempts_total", "Delivery attempts by outcome.")),
		[]string{"outcome"},
	)

	sendSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sellerdesk",
		Subsystem: "notifications",
		Name:      "send_duration_seconds",
		Help:      "Time spent in the sender per attempt.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2.5, 9),
	})

	passSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sellerdesk",
		Subsystem: "notifications",
		Name:      "pass_duration_seconds",
		Help:      "Queue pass duration by result.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 3, 10),
	}, []string{"result"})
)

func recordJobEnqueued() { jobsEnqueued.Inc() }

func recordAttempt(outcome Outcome) {
	attempts.WithLabelValues(string(outcome)).Inc()
}

func recordSendDuration(d time.Duration) {
	sendSeconds.Observe(d.Seconds())
}

func recordPass(result string, d time.Duration) {
	passSeconds.WithLabelValues(result).Observe(d.Seconds())
}

// RecordQueueStats publishes a stats snapshot.
func RecordQueueStats(s QueueStats) {
	for state, n := range map[string]int{
		string(JobStatePending):   s.Pending,
		string(JobStateInFlight):  s.InFlight,
		string(JobStateDelivered): s.Delivered,
		string(JobStateAbandoned): s.Abandoned,
		"failed":                  s.Failed,
	} {
		jobsByState.WithLabelValues(state).Set(float64(n))
	}
}
