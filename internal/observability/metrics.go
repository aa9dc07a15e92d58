package observability

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// report pipeline. They live on a private registry so a batch run can be
// written out as a textfile without global registration conflicts.
type Metrics struct {
	RowsExtracted   prometheus.Counter
	RowsAggregated  prometheus.Counter
	TransformErrors prometheus.Counter
	PipelineRunning prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Report metrics.
	EventTypes     prometheus.Gauge
	RenderDuration *prometheus.HistogramVec // label: sink={tables,charts}
	RunDuration    prometheus.Gauge
	LastSuccess    prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates all pipeline metrics on a fresh private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RowsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_report",
			Name:      "rows_extracted_total",
			Help:      "Total CSV rows read from the source file.",
		}),
		RowsAggregated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_report",
			Name:      "rows_aggregated_total",
			Help:      "Total observations folded into the aggregation.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_report",
			Name:      "transform_errors_total",
			Help:      "Total rows rejected during coercion.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "storm_report",
			Name:      "pipeline_running",
			Help:      "1 while the aggregation loop is active.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "storm_report",
			Name:      "batch_size",
			Help:      "Number of rows per extracted batch.",
			Buckets:   []float64{1, 10, 100, 500, 1000, 2500, 5000, 10000},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "storm_report",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of one extract-transform-aggregate cycle.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		EventTypes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "storm_report",
			Name:      "event_types",
			Help:      "Distinct event types discovered in the source.",
		}),
		RenderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storm_report",
			Name:      "render_duration_seconds",
			Help:      "Duration of each output render.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}, []string{"sink"}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "storm_report",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of the completed run.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "storm_report",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
	}

	m.registry = prometheus.NewRegistry()
	m.registry.MustRegister(
		m.RowsExtracted,
		m.RowsAggregated,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.EventTypes,
		m.RenderDuration,
		m.RunDuration,
		m.LastSuccess,
	)

	return m
}

// WriteTextfile writes every metric in Prometheus exposition format to path,
// the node-exporter textfile-collector convention for batch jobs. The file is
// written to a temp name and renamed so the collector never reads a partial
// scrape. runID goes into a leading comment to make stale files traceable.
func (m *Metrics) WriteTextfile(path, runID string) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create metrics file: %w", err)
	}

	if _, err := fmt.Fprintf(f, "# storm-impact-report run %s\n", runID); err != nil {
		f.Close()
		return fmt.Errorf("write metrics header: %w", err)
	}

	enc := expfmt.NewEncoder(f, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, fam := range families {
		if err := enc.Encode(fam); err != nil {
			f.Close()
			return fmt.Errorf("encode metrics: %w", err)
		}
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close metrics file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename metrics file: %w", err)
	}
	return nil
}
