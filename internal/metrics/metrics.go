package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsOnce sync.Once

	// stageJobsTotal counts stage invocations by stage and typed outcome.
	stageJobsTotal *prometheus.CounterVec

	// stageDuration tracks stage invocation latency per stage.
	stageDuration *prometheus.HistogramVec

	// incidentsTotal counts incidents created by the correlate stage.
	incidentsTotal prometheus.Counter

	// documentsFetchedTotal counts documents persisted by the fetch stage.
	documentsFetchedTotal prometheus.Counter
)

// Init registers all pipeline metrics. Call once at process startup; extra
// calls are no-ops.
func Init() {
	metricsOnce.Do(func() {
		stageJobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "argus_stage_jobs_total",
				Help: "Total pipeline stage invocations by stage and outcome",
			},
			[]string{"stage", "outcome"},
		)

		stageDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "argus_stage_duration_seconds",
				Help:    "Duration of pipeline stage invocations in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"stage"},
		)

		incidentsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "argus_incidents_total",
				Help: "Total incidents created by the correlate stage",
			},
		)

		documentsFetchedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "argus_documents_fetched_total",
				Help: "Total documents persisted by the fetch stage",
			},
		)
	})
}

// RecordJob records one stage invocation with its outcome and duration.
func RecordJob(stage, outcome string, duration time.Duration) {
	if stageJobsTotal != nil {
		stageJobsTotal.WithLabelValues(stage, outcome).Inc()
	}
	if stageDuration != nil {
		stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	}
}

// IncIncidents records one created incident.
func IncIncidents() {
	if incidentsTotal != nil {
		incidentsTotal.Inc()
	}
}

// IncDocumentsFetched records one persisted document.
func IncDocumentsFetched() {
	if documentsFetchedTotal != nil {
		documentsFetchedTotal.Inc()
	}
}
