// Package pipeline implements the packet processing pipeline engine.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"firestige.xyz/trpt/internal/core"
	"firestige.xyz/trpt/internal/core/decoder"
	"firestige.xyz/trpt/internal/metrics"
	"firestige.xyz/trpt/pkg/plugin"
	"firestige.xyz/trpt/pkg/trpt"
)

const defaultBufferSize = 1024

// Pipeline carries frames from one capturer through decode, parse, process
// and report stages.
type Pipeline struct {
	id         int
	source     string
	capturer   plugin.Capturer
	decoder    decoder.Decoder
	parsers    []plugin.Parser
	processors []plugin.Processor
	reporters  []plugin.Reporter
	metrics    *Metrics
	bufferSize int
	ran        atomic.Bool
}

// Config contains pipeline configuration.
type Config struct {
	ID         int
	Source     string // Name used in logs, usually the capture file path
	Capturer   plugin.Capturer
	Decoder    decoder.Decoder // Defaults to decoder.NewStandardDecoder()
	Parsers    []plugin.Parser
	Processors []plugin.Processor
	Reporters  []plugin.Reporter
	BufferSize int // Raw packet channel buffer size
}

// New creates a new pipeline.
func New(cfg Config) *Pipeline {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.Decoder == nil {
		cfg.Decoder = decoder.NewStandardDecoder()
	}

	return &Pipeline{
		id:         cfg.ID,
		source:     cfg.Source,
		capturer:   cfg.Capturer,
		decoder:    cfg.Decoder,
		parsers:    cfg.Parsers,
		processors: cfg.Processors,
		reporters:  cfg.Reporters,
		metrics:    NewMetrics(cfg.Source, cfg.ID),
		bufferSize: cfg.BufferSize,
	}
}

// Run starts every plugin, runs the capture and process stages until the
// capturer is exhausted or ctx is cancelled, then flushes reporters and stops
// the plugins. Cancellation is not an error; a failing capturer is. A
// pipeline runs once; later calls return core.ErrPipelineStopped.
func (p *Pipeline) Run(ctx context.Context) error {
	if p.capturer == nil {
		return fmt.Errorf("%w: pipeline %d has no capturer", core.ErrConfigInvalid, p.id)
	}
	if !p.ran.CompareAndSwap(false, true) {
		return fmt.Errorf("pipeline %d: %w", p.id, core.ErrPipelineStopped)
	}

	plugins := p.plugins()
	for i, pl := range plugins {
		if err := pl.Start(ctx); err != nil {
			stopAll(plugins[:i])
			return fmt.Errorf("%w: start %s: %v", core.ErrPluginInitFailed, pl.Name(), err)
		}
	}
	defer stopAll(plugins)

	slog.Info("pipeline starting", "source", p.source, "pipeline_id", p.id)

	raw := make(chan core.RawPacket, p.bufferSize)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.captureLoop(gctx, raw) })
	g.Go(func() error {
		p.processLoop(gctx, raw)
		return nil
	})
	err := g.Wait()

	for _, reporter := range p.reporters {
		if ferr := reporter.Flush(context.WithoutCancel(ctx)); ferr != nil {
			slog.Error("reporter flush failed", "reporter", reporter.Name(), "error", ferr)
		}
	}

	stats := p.Stats()
	slog.Info("pipeline stopped",
		"source", p.source,
		"pipeline_id", p.id,
		"received", stats.Received,
		"reported", stats.Reported,
		"skipped", stats.Skipped,
		"decode_errors", stats.DecodeErrors,
		"parse_errors", stats.ParseErrors)
	return err
}

func (p *Pipeline) plugins() []plugin.Plugin {
	out := []plugin.Plugin{p.capturer}
	for _, pl := range p.parsers {
		out = append(out, pl)
	}
	for _, pl := range p.processors {
		out = append(out, pl)
	}
	for _, pl := range p.reporters {
		out = append(out, pl)
	}
	return out
}

func stopAll(plugins []plugin.Plugin) {
	for i := len(plugins) - 1; i >= 0; i-- {
		if err := plugins[i].Stop(context.Background()); err != nil {
			slog.Warn("plugin stop failed", "plugin", plugins[i].Name(), "error", err)
		}
	}
}

// captureLoop reads packets from the capturer into raw and closes it.
func (p *Pipeline) captureLoop(ctx context.Context, raw chan<- core.RawPacket) error {
	defer close(raw)

	err := p.capturer.Capture(ctx, raw)
	if err == nil || ctx.Err() != nil {
		return nil
	}
	slog.Error("capture failed", "error", err, "source", p.source, "pipeline_id", p.id)
	return fmt.Errorf("capture %s: %w", p.source, err)
}

// processLoop drains raw until the capturer closes it.
func (p *Pipeline) processLoop(ctx context.Context, raw <-chan core.RawPacket) {
	for pkt := range raw {
		p.metrics.inc(&p.metrics.Received, metrics.StageReceived)
		if err := p.processPacket(ctx, pkt); err != nil {
			slog.Debug("packet processing failed", "index", pkt.Index, "error", err)
		}
	}
}

// processPacket processes a single packet through the entire pipeline.
func (p *Pipeline) processPacket(ctx context.Context, raw core.RawPacket) error {
	decoded, err := p.decoder.Decode(raw)
	if err != nil {
		p.metrics.inc(&p.metrics.DecodeErrors, metrics.StageDecodeError)
		return fmt.Errorf("decode failed: %w", err)
	}
	p.metrics.inc(&p.metrics.Decoded, metrics.StageDecoded)

	var (
		payload     any
		labels      core.Labels
		payloadType string
		parseErr    error
	)
	for _, parser := range p.parsers {
		if !parser.CanHandle(&decoded) {
			continue
		}
		start := time.Now()
		v, l, err := parser.Handle(&decoded)
		metrics.DecodeLatencySeconds.Observe(time.Since(start).Seconds())
		if err != nil {
			parseErr = err
			metrics.DecodeFailuresTotal.WithLabelValues(failureReason(err)).Inc()
			slog.Debug("parser failed", "parser", parser.Name(), "index", raw.Index, "error", err)
			continue
		}
		payload, labels, payloadType = v, l, parser.Name()
		break
	}

	switch {
	case payload == nil && parseErr != nil:
		p.metrics.inc(&p.metrics.ParseErrors, metrics.StageParseError)
		return parseErr
	case payload == nil:
		p.metrics.inc(&p.metrics.Skipped, metrics.StageSkipped)
		return nil
	}
	p.metrics.inc(&p.metrics.Parsed, metrics.StageParsed)
	if kind, ok := labels[core.LabelTrptKind]; ok {
		metrics.ReportsDecodedTotal.WithLabelValues(kind).Inc()
	}

	output := core.OutputPacket{
		Source:      raw.Source,
		Index:       raw.Index,
		Timestamp:   decoded.Timestamp,
		SrcIP:       decoded.IP.SrcIP,
		DstIP:       decoded.IP.DstIP,
		SrcPort:     decoded.Transport.SrcPort,
		DstPort:     decoded.Transport.DstPort,
		Protocol:    decoded.IP.Protocol,
		Labels:      labels,
		PayloadType: payloadType,
		Payload:     payload,
		RawPayload:  decoded.Payload,
	}

	for _, processor := range p.processors {
		keep := processor.Process(&output)
		p.metrics.inc(&p.metrics.Processed, metrics.StageProcessed)
		if !keep {
			p.metrics.inc(&p.metrics.Dropped, metrics.StageDropped)
			return nil
		}
	}

	delivered := false
	for _, reporter := range p.reporters {
		if err := reporter.Report(ctx, &output); err != nil {
			p.metrics.inc(&p.metrics.ReportErrors, metrics.StageReportError)
			slog.Error("reporter failed", "reporter", reporter.Name(), "error", err)
			continue
		}
		delivered = true
	}
	if delivered {
		p.metrics.inc(&p.metrics.Reported, metrics.StageReported)
	}

	return nil
}

// failureReason maps a parse error onto the reason label of
// trpt_decode_failures_total.
func failureReason(err error) string {
	switch {
	case errors.Is(err, trpt.ErrTruncatedBuffer):
		return "truncated"
	case errors.Is(err, trpt.ErrInconsistentLength):
		return "inconsistent_length"
	default:
		return "other"
	}
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Received:     p.metrics.Received.Load(),
		Decoded:      p.metrics.Decoded.Load(),
		DecodeErrors: p.metrics.DecodeErrors.Load(),
		Parsed:       p.metrics.Parsed.Load(),
		ParseErrors:  p.metrics.ParseErrors.Load(),
		Skipped:      p.metrics.Skipped.Load(),
		Processed:    p.metrics.Processed.Load(),
		Dropped:      p.metrics.Dropped.Load(),
		Reported:     p.metrics.Reported.Load(),
		ReportErrors: p.metrics.ReportErrors.Load(),
	}
}

// Stats represents pipeline statistics.
type Stats struct {
	Received     uint64 `json:"received" yaml:"received"`
	Decoded      uint64 `json:"decoded" yaml:"decoded"`
	DecodeErrors uint64 `json:"decode_errors" yaml:"decode_errors"`
	Parsed       uint64 `json:"parsed" yaml:"parsed"`
	ParseErrors  uint64 `json:"parse_errors" yaml:"parse_errors"`
	Skipped      uint64 `json:"skipped" yaml:"skipped"`
	Processed    uint64 `json:"processed" yaml:"processed"`
	Dropped      uint64 `json:"dropped" yaml:"dropped"`
	Reported     uint64 `json:"reported" yaml:"reported"`
	ReportErrors uint64 `json:"report_errors" yaml:"report_errors"`
}

// Add returns the element-wise sum of s and o.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		Received:     s.Received + o.Received,
		Decoded:      s.Decoded + o.Decoded,
		DecodeErrors: s.DecodeErrors + o.DecodeErrors,
		Parsed:       s.Parsed + o.Parsed,
		ParseErrors:  s.ParseErrors + o.ParseErrors,
		Skipped:      s.Skipped + o.Skipped,
		Processed:    s.Processed + o.Processed,
		Dropped:      s.Dropped + o.Dropped,
		Reported:     s.Reported + o.Reported,
		ReportErrors: s.ReportErrors + o.ReportErrors,
	}
}
