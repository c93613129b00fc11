package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the pipeline collectors on a private prometheus registry.
type Registry struct {
	reg             *prometheus.Registry
	RowsRead        *prometheus.CounterVec
	RowsWritten     *prometheus.CounterVec
	RowsDropped     *prometheus.CounterVec
	SourceBytes     *prometheus.CounterVec
	DegradedWrites  *prometheus.CounterVec
	Runs            *prometheus.CounterVec
	RunDurationSec  prometheus.Histogram
	LastSuccessUnix prometheus.Gauge
	GoldRows        prometheus.Gauge
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	rowsRead := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "medallion_rows_read_total",
		Help: "Rows read per stage and table.",
	}, []string{"stage", "table"})
	rowsWritten := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "medallion_rows_written_total",
		Help: "Rows written per stage and table.",
	}, []string{"stage", "table"})
	rowsDropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "medallion_rows_dropped_total",
		Help: "Rows removed during refinement, by reason.",
	}, []string{"table", "reason"})
	sourceBytes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "medallion_source_bytes_total",
		Help: "Raw bytes read per source table.",
	}, []string{"table"})
	degraded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "medallion_degraded_writes_total",
		Help: "Artifacts written in the fallback encoding.",
	}, []string{"stage", "table"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "medallion_runs_total",
		Help: "Pipeline runs by outcome.",
	}, []string{"status"})
	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "medallion_run_duration_seconds",
		Buckets: prometheus.DefBuckets,
	})
	lastSuccess := prometheus.NewGauge(prometheus.GaugeOpts{Name: "medallion_last_success_unixtime"})
	goldRows := prometheus.NewGauge(prometheus.GaugeOpts{Name: "medallion_gold_rows"})

	r.MustRegister(rowsRead, rowsWritten, rowsDropped, sourceBytes, degraded, runs, runDuration, lastSuccess, goldRows)
	return &Registry{
		reg:             r,
		RowsRead:        rowsRead,
		RowsWritten:     rowsWritten,
		RowsDropped:     rowsDropped,
		SourceBytes:     sourceBytes,
		DegradedWrites:  degraded,
		Runs:            runs,
		RunDurationSec:  runDuration,
		LastSuccessUnix: lastSuccess,
		GoldRows:        goldRows,
	}
}

// Gatherer exposes the underlying registry, mainly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
