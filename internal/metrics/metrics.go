// Package metrics exports Prometheus metrics about bundle builds.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Build outcomes, used as the outcome label.
const (
	OutcomeSuccess  = "success"
	OutcomeCompile  = "compile_error"
	OutcomeOptions  = "invalid_options"
	OutcomeCanceled = "canceled"
)

var (
	builds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bundletask_builds_total",
			Help: "Bundle compilations per task, by outcome: success, compile_error (esbuild reported errors), invalid_options (the task configuration could not be translated) or canceled",
		},
		[]string{"task", "outcome"},
	)

	buildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bundletask_build_duration_seconds",
			Help:    "Time from the start of a bundle compilation, or rebuild in watch mode, until esbuild produced its result",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"task", "outcome"},
	)

	emittedBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bundletask_output_bytes",
			Help: "Total size of the files emitted by the last successful compilation of a task",
		},
		[]string{"task"},
	)

	lastBuildStart = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bundletask_last_build_start_timestamp_seconds",
			Help: "Unix time at which the last compilation of a task started",
		},
		[]string{"task"},
	)

	lastBuildEnd = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bundletask_last_build_end_timestamp_seconds",
			Help: "Unix time at which the last compilation of a task finished, whatever its outcome",
		},
		[]string{"task"},
	)

	watching = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bundletask_watching",
			Help: "1 while esbuild is watching the inputs of a task, 0 otherwise",
		},
		[]string{"task"},
	)
)

// Registry is where all bundle metrics are registered.
var Registry prometheus.Gatherer = prometheus.DefaultGatherer

func BundleBuildStarted(task string, startTime time.Time) {
	lastBuildStart.WithLabelValues(task).Set(float64(startTime.Unix()))
}

// BundleBuildSucceeded records a compilation without errors that emitted
// outputBytes in total.
func BundleBuildSucceeded(task string, startTime time.Time, outputBytes int) {
	finish(task, OutcomeSuccess, startTime)
	emittedBytes.WithLabelValues(task).Set(float64(outputBytes))
}

// BundleBuildFailed records a compilation that ended with outcome. A zero
// startTime means the compilation never started, so no duration is observed.
func BundleBuildFailed(task string, outcome string, startTime time.Time) {
	finish(task, outcome, startTime)
}

func finish(task, outcome string, startTime time.Time) {
	end := time.Now()
	builds.WithLabelValues(task, outcome).Inc()
	if !startTime.IsZero() {
		buildDuration.WithLabelValues(task, outcome).Observe(end.Sub(startTime).Seconds())
	}
	lastBuildEnd.WithLabelValues(task).Set(float64(end.Unix()))
}

// BundleWatchStarted and BundleWatchStopped bracket a watch.
func BundleWatchStarted(task string) {
	watching.WithLabelValues(task).Set(1)
}

func BundleWatchStopped(task string) {
	watching.WithLabelValues(task).Set(0)
}
