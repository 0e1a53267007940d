package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every Conduit collector. It is separate from the default
// registry so a run can be written to a textfile without Go runtime noise.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// AttemptsTotal counts operation attempts by operation and result.
	AttemptsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "conduit_attempts_total",
		Help: "Total number of retried operation attempts",
	}, []string{"operation", "result"})

	// RetryDelay observes backoff waits between attempts.
	RetryDelay = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "conduit_retry_delay_seconds",
		Help:    "Backoff delay inserted before the next attempt",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	}, []string{"operation"})

	// AlertsTotal counts alert deliveries by channel and result.
	AlertsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "conduit_alerts_total",
		Help: "Total number of alert deliveries",
	}, []string{"channel", "result"})

	// PipelineRunsTotal counts pipeline runs by terminal result.
	PipelineRunsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "conduit_pipeline_runs_total",
		Help: "Total number of pipeline runs",
	}, []string{"result"})

	// StageDuration observes how long each stage took including retries.
	StageDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "conduit_stage_duration_seconds",
		Help:    "Stage duration in seconds, including retries",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	// LastRunTimestamp records when the last run finished.
	LastRunTimestamp = factory.NewGauge(prometheus.GaugeOpts{
		Name: "conduit_last_run_timestamp_seconds",
		Help: "Unix time the last pipeline run finished",
	})
)

// ObserveAttemptFailure records a failed attempt and the wait that follows it.
func ObserveAttemptFailure(operation string, delay time.Duration, terminal bool) {
	AttemptsTotal.WithLabelValues(operation, "failure").Inc()
	if !terminal {
		RetryDelay.WithLabelValues(operation).Observe(delay.Seconds())
	}
}

// ObserveAttemptSuccess records a successful attempt.
func ObserveAttemptSuccess(operation string) {
	AttemptsTotal.WithLabelValues(operation, "success").Inc()
}

// ObserveAlert records one channel delivery result.
func ObserveAlert(channel, result string) {
	AlertsTotal.WithLabelValues(channel, result).Inc()
}

// ObserveRun records a finished pipeline run.
func ObserveRun(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	PipelineRunsTotal.WithLabelValues(result).Inc()
	LastRunTimestamp.SetToCurrentTime()
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
