package flow

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"

	"firestige.xyz/trpt/internal/core"
	"firestige.xyz/trpt/internal/metrics"
	"firestige.xyz/trpt/pkg/plugin"
	"firestige.xyz/trpt/pkg/trpt"
)

// ProcessorName is the processor name used in the plugin registry.
const ProcessorName = "flow"

func init() {
	plugin.RegisterProcessor(ProcessorName, func() plugin.Processor { return NewAnnotator(nil) })
}

// AnnotatorConfig configures the index built by Annotator.Init.
type AnnotatorConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// Annotator records every telemetry report in an Index and labels the output
// packet with the flow's running totals. It implements plugin.Processor and
// never drops packets.
type Annotator struct {
	index *Index
}

// NewAnnotator creates an annotator over index. A nil index is replaced by
// one with default expiry.
func NewAnnotator(index *Index) *Annotator {
	if index == nil {
		index = New(0, 0)
	}
	return &Annotator{index: index}
}

// Index returns the underlying index.
func (a *Annotator) Index() *Index { return a.index }

// Name implements plugin.Plugin.
func (a *Annotator) Name() string { return ProcessorName }

// Init replaces the index with one built from cfg.
func (a *Annotator) Init(cfg map[string]any) error {
	var c AnnotatorConfig
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		Result:     &c,
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", core.ErrPluginInitFailed, ProcessorName, err)
	}
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("%w: %s: %v", core.ErrPluginInitFailed, ProcessorName, err)
	}
	a.index = New(c.TTL, c.CleanupInterval)
	return nil
}

// Start implements plugin.Plugin.
func (a *Annotator) Start(context.Context) error { return nil }

// Stop implements plugin.Plugin.
func (a *Annotator) Stop(context.Context) error { return nil }

// Process implements plugin.Processor.
func (a *Annotator) Process(pkt *core.OutputPacket) bool {
	r, ok := pkt.Payload.(*trpt.Report)
	if !ok {
		return true
	}
	e := a.index.Observe(r.CorrelationKey(), r.Kind(), pkt.Timestamp)
	metrics.FlowIndexSize.Set(float64(a.index.Len()))

	if pkt.Labels == nil {
		pkt.Labels = make(core.Labels)
	}
	pkt.Labels[core.LabelFlowReports] = strconv.FormatUint(e.Reports, 10)
	pkt.Labels[core.LabelFlowFirstSeen] = e.FirstSeen.UTC().Format(time.RFC3339Nano)
	return true
}
