// Package metrics provides Prometheus metrics for feedrelay.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PollJobsActive tracks production poll jobs, one per subscribed source.
	PollJobsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "feedrelay",
			Name:      "poll_jobs_active",
			Help:      "Number of sources currently being polled",
		},
	)

	// ValidationsTotal counts settled feed validations by result.
	ValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "feedrelay",
			Name:      "validations_total",
			Help:      "Total number of feed validations",
		},
		[]string{"result"},
	)

	// DispatchTotal counts new-item events by outcome.
	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "feedrelay",
			Name:      "dispatch_total",
			Help:      "Total number of new-item events handled",
		},
		[]string{"result"},
	)

	// PollErrorsTotal counts steady-state poll failures.
	PollErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "feedrelay",
			Name:      "poll_errors_total",
			Help:      "Total number of poll errors on subscribed sources",
		},
	)
)

// Recorder writes subscription manager events to the global collectors.
type Recorder struct{}

// SetPollJobs records the number of active production jobs.
func (Recorder) SetPollJobs(n int) {
	PollJobsActive.Set(float64(n))
}

// ObserveValidation records a settled validation ("ok", "timeout", "feed_error").
func (Recorder) ObserveValidation(result string) {
	ValidationsTotal.WithLabelValues(result).Inc()
}

// ObserveDispatch records a dispatch outcome ("broadcast", "dropped").
func (Recorder) ObserveDispatch(result string) {
	DispatchTotal.WithLabelValues(result).Inc()
}

// ObservePollError records a steady-state poll failure.
func (Recorder) ObservePollError() {
	PollErrorsTotal.Inc()
}
