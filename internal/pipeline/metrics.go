package pipeline

import (
	"sync/atomic"

	"firestige.xyz/trpt/internal/metrics"
)

// Metrics contains per-pipeline counters. Every increment is mirrored to the
// process-wide trpt_pipeline_packets_total series.
type Metrics struct {
	Source     string
	PipelineID int

	Received     atomic.Uint64
	Decoded      atomic.Uint64
	DecodeErrors atomic.Uint64
	Parsed       atomic.Uint64
	ParseErrors  atomic.Uint64
	Skipped      atomic.Uint64
	Processed    atomic.Uint64
	Dropped      atomic.Uint64
	Reported     atomic.Uint64
	ReportErrors atomic.Uint64
}

// NewMetrics creates a new metrics instance.
func NewMetrics(source string, pipelineID int) *Metrics {
	return &Metrics{
		Source:     source,
		PipelineID: pipelineID,
	}
}

func (m *Metrics) inc(c *atomic.Uint64, stage string) {
	c.Add(1)
	metrics.PipelinePacketsTotal.WithLabelValues(stage).Inc()
}
