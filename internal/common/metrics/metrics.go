// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "worker_job_duration_seconds",
			Help:    "Duration of job processing in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	// AccessDecisions counts evaluate-access outcomes. reason is empty for grants.
	AccessDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mangastream_access_decisions_total",
			Help: "Access decisions by outcome and reason code",
		},
		[]string{"allowed", "reason", "required_tier"},
	)

	DonationsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mangastream_donations_recorded_total",
			Help: "Payments applied to a title's donation total",
		},
		[]string{"currency"},
	)

	DonationAmount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mangastream_donation_amount_minor_total",
			Help: "Sum of recorded donation amounts in minor currency units",
		},
		[]string{"currency"},
	)

	EpisodesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mangastream_episodes_published_total",
			Help: "Episodes made available to readers",
		},
	)

	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mangastream_rate_limit_rejections_total",
			Help: "Community actions rejected by the rate limiter",
		},
		[]string{"action"},
	)
)

// RecordAccessDecision increments AccessDecisions for a single evaluation.
func RecordAccessDecision(allowed bool, reason, requiredTier string) {
	label := "false"
	if allowed {
		label = "true"
	}
	AccessDecisions.WithLabelValues(label, reason, requiredTier).Inc()
}

// RecordDonation counts a recorded payment and its amount.
func RecordDonation(currency string, amount int64) {
	DonationsRecorded.WithLabelValues(currency).Inc()
	DonationAmount.WithLabelValues(currency).Add(float64(amount))
}
