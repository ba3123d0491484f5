// Package match implements a processor that keeps only output packets whose
// labels carry every configured value.
package match

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/mitchellh/mapstructure"

	"firestige.xyz/trpt/internal/core"
	"firestige.xyz/trpt/pkg/plugin"
)

// Name is the processor name used in the plugin registry.
const Name = "match"

func init() {
	plugin.RegisterProcessor(Name, func() plugin.Processor { return &Processor{} })
}

// Config configures the processor.
type Config struct {
	Labels map[string]string `mapstructure:"labels"` // e.g. trpt.kind: drop
}

// Processor drops packets whose labels do not match. An empty match set
// keeps everything.
type Processor struct {
	labels  map[string]string
	kept    atomic.Uint64
	dropped atomic.Uint64
}

// New creates a processor matching labels.
func New(labels map[string]string) (*Processor, error) {
	p := &Processor{}
	if err := p.configure(Config{Labels: labels}); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Processor) configure(c Config) error {
	for k := range c.Labels {
		if k == "" {
			return fmt.Errorf("%w: empty label name", core.ErrConfigInvalid)
		}
	}
	p.labels = c.Labels
	return nil
}

// Name implements plugin.Plugin.
func (p *Processor) Name() string { return Name }

// Init implements plugin.Plugin.
func (p *Processor) Init(cfg map[string]any) error {
	var c Config
	if err := mapstructure.Decode(cfg, &c); err != nil {
		return fmt.Errorf("%w: %s: %v", core.ErrPluginInitFailed, Name, err)
	}
	return p.configure(c)
}

// Start implements plugin.Plugin.
func (p *Processor) Start(context.Context) error { return nil }

// Stop implements plugin.Plugin.
func (p *Processor) Stop(context.Context) error { return nil }

// Process implements plugin.Processor.
func (p *Processor) Process(pkt *core.OutputPacket) bool {
	for k, want := range p.labels {
		if pkt.Labels[k] != want {
			p.dropped.Add(1)
			return false
		}
	}
	p.kept.Add(1)
	return true
}

// Counts returns how many packets were kept and dropped.
func (p *Processor) Counts() (kept, dropped uint64) {
	return p.kept.Load(), p.dropped.Load()
}

// String renders the match set as sorted key=value pairs.
func (p *Processor) String() string {
	pairs := make([]string, 0, len(p.labels))
	for k, v := range p.labels {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}
