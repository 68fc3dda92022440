package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// repoDurationBuckets covers sub-second toy repositories through
// multi-minute monorepo analyses.
var repoDurationBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

// Metrics holds the Prometheus instruments of the analysis pipeline.
type Metrics struct {
	ReposAnalyzed prometheus.Counter
	RepoFailures  *prometheus.CounterVec
	RepoDuration  prometheus.Histogram
	FilesBlamed   prometheus.Counter
	BlameLines    prometheus.Counter
}

// NewMetrics creates and registers the pipeline instruments. Pass a fresh
// registry in tests to keep them isolated.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ReposAnalyzed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gitinspect_repos_analyzed_total",
			Help: "Repositories analyzed to completion.",
		}),
		RepoFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gitinspect_repo_failures_total",
			Help: "Repository analyses that failed, by error kind.",
		}, []string{"kind"}),
		RepoDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gitinspect_repo_duration_seconds",
			Help:    "Wall time spent analyzing one repository.",
			Buckets: repoDurationBuckets,
		}),
		FilesBlamed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gitinspect_files_blamed_total",
			Help: "Files run through blame.",
		}),
		BlameLines: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gitinspect_blame_lines_total",
			Help: "Lines attributed by blame.",
		}),
	}

	reg.MustRegister(m.ReposAnalyzed, m.RepoFailures, m.RepoDuration, m.FilesBlamed, m.BlameLines)

	return m
}

// ObserveRepo records one finished repository analysis.
func (m *Metrics) ObserveRepo(elapsed time.Duration, failureKind string) {
	if failureKind != "" {
		m.RepoFailures.WithLabelValues(failureKind).Inc()

		return
	}

	m.ReposAnalyzed.Inc()
	m.RepoDuration.Observe(elapsed.Seconds())
}
