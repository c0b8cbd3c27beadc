// Package metrics collects batch counters and writes them in the Prometheus
// text exposition format for a node-exporter textfile collector.
package metrics

import (
	"errors"
	"time"

	core "MPSpectra/internal/core/model"

	"github.com/prometheus/client_golang/prometheus"
)

// File outcomes.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Metrics holds the batch counters on a private registry.
type Metrics struct {
	registry    *prometheus.Registry
	files       *prometheus.CounterVec
	connections prometheus.Counter
	diagnostics *prometheus.CounterVec
	writerErrs  *prometheus.CounterVec
	duration    prometheus.Histogram
}

// New registers the batch collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mpspectra_files_total",
			Help: "Trace files handled, by outcome.",
		}, []string{"status"}),
		connections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mpspectra_connections_total",
			Help: "Multipath connections reconstructed.",
		}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mpspectra_diagnostics_total",
			Help: "Recovered problems, by kind.",
		}, []string{"kind"}),
		writerErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mpspectra_writer_errors_total",
			Help: "Writer failures, by writer.",
		}, []string{"writer"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mpspectra_file_duration_seconds",
			Help:    "Wall time spent on one trace file.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}
	m.registry.MustRegister(m.files, m.connections, m.diagnostics, m.writerErrs, m.duration)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// FileDone records the outcome of one trace file.
func (m *Metrics) FileDone(status string, elapsed time.Duration) {
	m.files.WithLabelValues(status).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// WriterFailed records a failed writer call.
func (m *Metrics) WriterFailed(writer string) {
	m.writerErrs.WithLabelValues(writer).Inc()
}

// Result records the connections and diagnostics of a processed trace.
func (m *Metrics) Result(res *core.TraceResult) {
	m.connections.Add(float64(len(res.Connections)))
	for _, d := range res.Diagnostics {
		m.diagnostics.WithLabelValues(Kind(d.Err)).Inc()
	}
}

// Kind returns the label value of a diagnostic error.
func Kind(err error) string {
	switch {
	case errors.Is(err, core.ErrMalformedRecord):
		return "malformed_record"
	case errors.Is(err, core.ErrMissingMetadata):
		return "missing_metadata"
	case errors.Is(err, core.ErrEmptySeries):
		return "empty_series"
	case errors.Is(err, core.ErrExternalTool):
		return "external_tool"
	default:
		return "other"
	}
}

// WriteTextfile writes every collected metric to path atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
