// Package observability holds the Prometheus instrumentation for the
// fetch-classify-render pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "aqimap"

// Metrics holds the counters and histograms recorded during a pipeline run.
type Metrics struct {
	RecordsFetched  prometheus.Counter
	FetchFailures   prometheus.Counter
	FetchDuration   prometheus.Histogram
	StationsPlotted prometheus.Counter
	RecordsSkipped  *prometheus.CounterVec // label: reason
	RenderFailures  prometheus.Counter
	ReportRows      prometheus.Counter
	ReportFailures  prometheus.Counter
}

// NewMetrics creates the pipeline metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in the binaries and a fresh
// prometheus.NewRegistry() in tests to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RecordsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_fetched_total",
			Help:      "Total station records accepted from the upstream dataset.",
		}),
		FetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Total failed fetch attempts (transport, status, or envelope).",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of the upstream dataset fetch.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		StationsPlotted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stations_plotted_total",
			Help:      "Total station markers placed on the map artifact.",
		}),
		RecordsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      "Station records excluded from the map, by rejection reason.",
		}, []string{"reason"}),
		RenderFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_failures_total",
			Help:      "Total map rendering failures.",
		}),
		ReportRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_rows_total",
			Help:      "Total rows written to the tabular report.",
		}),
		ReportFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_failures_total",
			Help:      "Total report construction failures.",
		}),
	}

	reg.MustRegister(
		m.RecordsFetched,
		m.FetchFailures,
		m.FetchDuration,
		m.StationsPlotted,
		m.RecordsSkipped,
		m.RenderFailures,
		m.ReportRows,
		m.ReportFailures,
	)

	return m
}
