package app

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "promptlib"

// Metrics holds the Prometheus collectors for library operations.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	importRecords  *prometheus.CounterVec
	importRuns     *prometheus.CounterVec
	exportedPrompt prometheus.Counter
	renderBytes    prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		importRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "import",
			Name:      "records_total",
			Help:      "Prompt records processed by library imports, by outcome.",
		}, []string{"outcome"}),
		importRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "import",
			Name:      "runs_total",
			Help:      "Library imports, by result.",
		}, []string{"result"}),
		exportedPrompt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "export",
			Name:      "prompts_total",
			Help:      "Prompts written to export documents.",
		}),
		renderBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "preview",
			Name:      "render_bytes",
			Help:      "Size of rendered prompt previews.",
			Buckets:   prometheus.ExponentialBuckets(64, 2, 10),
		}),
	}

	reg.MustRegister(m.importRecords, m.importRuns, m.exportedPrompt, m.renderBytes)

	return m
}

func (m *Metrics) recordImport(res ImportResult, err error) {
	if m == nil {
		return
	}

	m.importRecords.WithLabelValues("created").Add(float64(res.Created))
	m.importRecords.WithLabelValues("skipped").Add(float64(res.Skipped))

	result := "success"
	if err != nil {
		result = "failure"
	}

	m.importRuns.WithLabelValues(result).Inc()
}

func (m *Metrics) recordExport(prompts int) {
	if m == nil {
		return
	}

	m.exportedPrompt.Add(float64(prompts))
}

func (m *Metrics) recordRender(size int) {
	if m == nil {
		return
	}

	m.renderBytes.Observe(float64(size))
}
