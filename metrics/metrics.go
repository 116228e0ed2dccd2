package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	JobsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spotletter_jobs_finished_total",
			Help: "Total number of jobs that reached a terminal status",
		},
		[]string{"job_type", "status"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spotletter_job_duration_seconds",
			Help:    "Duration of job processing in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"job_type"},
	)

	JobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "spotletter_jobs_active",
			Help: "Number of jobs currently processing",
		},
		[]string{"job_type"},
	)

	ResolveStage = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spotletter_place_resolve_stage_total",
			Help: "Place resolution outcomes by stage",
		},
		[]string{"stage", "outcome"},
	)

	InventoryMatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spotletter_inventory_matches_total",
			Help: "Inventory matching outcomes by provider",
		},
		[]string{"provider", "outcome"},
	)
)

// Handler 는 /metrics 엔드포인트 핸들러다.
func Handler() http.Handler {
	return promhttp.Handler()
}
