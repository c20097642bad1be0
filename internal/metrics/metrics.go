package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels runs whose every stage and model completed.
	OutcomeSuccess = "success"
	// OutcomePartial labels runs that wrote a report with at least one failed model.
	OutcomePartial = "partial"
	// OutcomeError labels runs aborted by a fatal stage error.
	OutcomeError = "error"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_churn",
			Name:      "runs_total",
			Help:      "Total number of report runs, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	runDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mirador_churn",
			Name:      "run_seconds",
			Help:      "End-to-end run latency in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
	)

	stageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mirador_churn",
			Name:      "stage_seconds",
			Help:      "Stage latency in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"stage"},
	)

	datasetRows = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "mirador_churn",
			Name:      "dataset_rows",
			Help:      "Row counts of the last run by kind (input, cleaned, dropped, train, test).",
		},
		[]string{"kind"},
	)

	modelAccuracy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "mirador_churn",
			Name:      "model_accuracy",
			Help:      "Test accuracy of each model in the last run.",
		},
		[]string{"model"},
	)

	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_churn",
			Name:      "errors_total",
			Help:      "Errors raised by stage and error code.",
		},
		[]string{"stage", "code"},
	)
)

// Register attaches mirador-churn collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		runsTotal,
		runDurationSeconds,
		stageDurationSeconds,
		datasetRows,
		modelAccuracy,
		errorsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveRun records a run duration and outcome label.
func ObserveRun(duration time.Duration, outcome string) {
	switch outcome {
	case OutcomeError, OutcomePartial:
	default:
		outcome = OutcomeSuccess
	}
	runsTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	runDurationSeconds.Observe(duration.Seconds())
}

// ObserveStage records the duration of one stage.
func ObserveStage(stage string, duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	stageDurationSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// SetRows records a dataset row count.
func SetRows(kind string, n int) {
	datasetRows.WithLabelValues(kind).Set(float64(n))
}

// SetModelAccuracy records the test accuracy of a model.
func SetModelAccuracy(model string, accuracy float64) {
	modelAccuracy.WithLabelValues(model).Set(accuracy)
}

// CountError increments the error counter for a stage and error code.
func CountError(stage, code string) {
	errorsTotal.WithLabelValues(stage, code).Inc()
}

// WriteTextfile writes every metric gathered by g in the Prometheus text format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
