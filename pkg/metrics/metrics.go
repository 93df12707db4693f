package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ImportMetrics records outcomes of GEAFIN import runs.
type ImportMetrics struct {
	duration *prometheus.HistogramVec
	rows     *prometheus.CounterVec
	runs     *prometheus.CounterVec
}

// NewImportMetrics registers the importer metrics on the provided registerer.
func NewImportMetrics(reg prometheus.Registerer) *ImportMetrics {
	if reg == nil {
		return &ImportMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "import_run_duration_seconds",
		Help:    "Duration of import runs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "import_rows_total",
		Help: "Imported rows by outcome.",
	}, []string{"outcome"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "import_runs_total",
		Help: "Import runs by terminal status.",
	}, []string{"status"})
	reg.MustRegister(duration, rows, runs)
	return &ImportMetrics{duration: duration, rows: rows, runs: runs}
}

// ObserveRun records one finished run with its terminal status.
func (m *ImportMetrics) ObserveRun(status string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	label := normalizeLabel(status)
	m.duration.WithLabelValues(label).Observe(duration.Seconds())
	m.runs.WithLabelValues(label).Inc()
}

// AddRows increments the row counter for the given outcome
// (persisted, failed_normalization, failed_persistence).
func (m *ImportMetrics) AddRows(outcome string, n int) {
	if m == nil || m.rows == nil || n <= 0 {
		return
	}
	m.rows.WithLabelValues(normalizeLabel(outcome)).Add(float64(n))
}

// MovementMetrics counts movement engine decisions.
type MovementMetrics struct {
	movements *prometheus.CounterVec
}

// NewMovementMetrics registers the movement metrics on the provided registerer.
func NewMovementMetrics(reg prometheus.Registerer) *MovementMetrics {
	if reg == nil {
		return &MovementMetrics{}
	}
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "movements_total",
		Help: "Movement attempts by type and outcome.",
	}, []string{"type", "outcome"})
	reg.MustRegister(movements)
	return &MovementMetrics{movements: movements}
}

// Inc records one movement attempt.
func (m *MovementMetrics) Inc(movementType, outcome string) {
	if m == nil || m.movements == nil {
		return
	}
	m.movements.WithLabelValues(normalizeLabel(movementType), normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
