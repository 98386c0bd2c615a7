// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"repurposer/internal/models"
)

var (
	jobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repurposer_jobs_total",
			Help: "Finished jobs by media kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	jobStageSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "repurposer_job_stage_seconds",
			Help:    "Time spent in each job stage.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"kind", "stage"},
	)

	jobsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "repurposer_jobs_in_flight",
		Help: "Jobs currently running.",
	})

	tokens = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "repurposer_tokens",
			Help: "Issued access tokens by state.",
		},
		[]string{"state"},
	)

	updatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repurposer_updates_total",
			Help: "Inbound chat updates by type.",
		},
		[]string{"type"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repurposer_http_requests_total",
			Help: "Ops HTTP requests by route and status.",
		},
		[]string{"method", "route", "status"},
	)

	panicsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repurposer_panics_total",
			Help: "Recovered panics by source (http, job, update).",
		},
		[]string{"source"},
	)
)

func JobStarted() {
	jobsInFlight.Inc()
}

func JobFinished(kind, outcome string) {
	jobsInFlight.Dec()
	jobsTotal.WithLabelValues(kind, outcome).Inc()
}

func ObserveStage(kind, stage string, d time.Duration) {
	jobStageSeconds.WithLabelValues(kind, stage).Observe(d.Seconds())
}

func Update(kind string) {
	updatesTotal.WithLabelValues(kind).Inc()
}

func HTTPRequest(method, route, status string) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
}

func Panic(source string) {
	panicsTotal.WithLabelValues(source).Inc()
}

// SetTokens replaces the token gauges with a fresh ledger summary.
func SetTokens(summary map[models.TokenState]int) {
	for _, state := range []models.TokenState{
		models.TokenStateActive, models.TokenStateRevoked, models.TokenStateExpired, models.TokenStateDamaged,
	} {
		tokens.WithLabelValues(string(state)).Set(float64(summary[state]))
	}
}
