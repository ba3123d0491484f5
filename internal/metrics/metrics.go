// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every collector metric. It is separate from the default
// registry so exports carry only collector series.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// PipelinePacketsTotal counts datagrams per pipeline stage outcome
	PipelinePacketsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trpt_pipeline_packets_total",
			Help: "Total number of frames handled per pipeline stage",
		},
		[]string{"stage"},
	)

	// ReportsDecodedTotal counts telemetry reports by kind
	ReportsDecodedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trpt_reports_decoded_total",
			Help: "Total number of telemetry reports decoded",
		},
		[]string{"kind"},
	)

	// DecodeFailuresTotal counts datagrams that failed to decode as a report
	DecodeFailuresTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trpt_decode_failures_total",
			Help: "Total number of telemetry report decode failures",
		},
		[]string{"reason"},
	)

	// DecodeLatencySeconds measures report decoding time
	DecodeLatencySeconds = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trpt_decode_latency_seconds",
			Help:    "Latency of telemetry report decoding in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0000001, 2, 20), // 100ns to ~50ms
		},
	)

	// FlowIndexSize tracks the number of correlation keys in the flow index
	FlowIndexSize = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "trpt_flow_index_size",
			Help: "Current number of correlation keys tracked in the flow index",
		},
	)
)

// Pipeline stage label values.
const (
	StageReceived    = "received"
	StageDecoded     = "decoded"
	StageDecodeError = "decode_error"
	StageParsed      = "parsed"
	StageParseError  = "parse_error"
	StageSkipped     = "skipped"
	StageProcessed   = "processed"
	StageDropped     = "dropped"
	StageReported    = "reported"
	StageReportError = "report_error"
)

// WriteTextfile writes every collector metric to path in the text exposition
// format, for the node_exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
