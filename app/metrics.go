package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MetricRuns counts finished runs by terminal status
	MetricRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "monothematic_runs_total",
		Help: "Total theme runs by terminal status",
	}, []string{"status"})

	// MetricRunDuration tracks how long a run takes from trigger to commit
	MetricRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "monothematic_run_duration_seconds",
		Help:    "Theme run duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	// MetricReplacements counts color literals rewritten per template
	MetricReplacements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "monothematic_replacements_total",
		Help: "Total color literals replaced by template",
	}, []string{"template"})

	// MetricSeedCache counts seed cache lookups by result
	MetricSeedCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "monothematic_seed_cache_lookups_total",
		Help: "Seed cache lookups by result (hit or miss)",
	}, []string{"result"})

	// MetricLastSuccess is the unix time of the last successful run
	MetricLastSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "monothematic_last_success_timestamp_seconds",
		Help: "Unix time of the last successful run",
	})

	// MetricWatchEvents counts filesystem events seen by the watcher
	MetricWatchEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monothematic_watch_events_total",
		Help: "Filesystem events observed by the watcher",
	})
)
