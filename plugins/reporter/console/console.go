// Package console implements the console reporter.
// It writes one record per output packet as JSON lines, YAML documents or a
// one-line text summary.
package console

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"firestige.xyz/trpt/internal/core"
	"firestige.xyz/trpt/pkg/plugin"
	"firestige.xyz/trpt/pkg/trpt"
)

// Name is the reporter name used in the plugin registry.
const Name = "console"

// Output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatText = "text"
)

func init() {
	plugin.RegisterReporter(Name, NewConsoleReporter)
}

// Config represents console reporter configuration.
type Config struct {
	Format string   `mapstructure:"format"` // json, yaml or text; default json
	Fields []string `mapstructure:"fields"` // Dotted paths projected into "attributes"
}

// ConsoleReporter writes output packets to a writer.
type ConsoleReporter struct {
	format string
	fields []string

	mu      sync.Mutex
	w       io.Writer
	yamlEnc *yaml.Encoder

	reportedCount atomic.Uint64
}

// NewConsoleReporter creates a JSON reporter on stdout.
func NewConsoleReporter() plugin.Reporter {
	return &ConsoleReporter{format: FormatJSON, w: os.Stdout}
}

// New creates a reporter writing to w.
func New(w io.Writer, cfg Config) (*ConsoleReporter, error) {
	r := &ConsoleReporter{w: w}
	if err := r.configure(cfg); err != nil {
		return nil, err
	}
	return r, nil
}

// Name returns the plugin name.
func (r *ConsoleReporter) Name() string {
	return Name
}

// Init initializes the reporter with configuration.
func (r *ConsoleReporter) Init(cfg map[string]any) error {
	var c Config
	if err := mapstructure.Decode(cfg, &c); err != nil {
		return fmt.Errorf("%w: %s: %v", core.ErrPluginInitFailed, Name, err)
	}
	return r.configure(c)
}

func (r *ConsoleReporter) configure(c Config) error {
	switch c.Format {
	case "":
		c.Format = FormatJSON
	case FormatJSON, FormatYAML, FormatText:
	default:
		return fmt.Errorf("%w: invalid format %q, must be json, yaml or text", core.ErrConfigInvalid, c.Format)
	}
	for _, f := range c.Fields {
		if f == "" {
			return fmt.Errorf("%w: empty field path", core.ErrConfigInvalid)
		}
	}
	r.format = c.Format
	r.fields = c.Fields
	return nil
}

// Start starts the reporter.
func (r *ConsoleReporter) Start(context.Context) error {
	slog.Debug("console reporter started", "format", r.format, "fields", r.fields)
	return nil
}

// Stop stops the reporter.
func (r *ConsoleReporter) Stop(context.Context) error {
	slog.Debug("console reporter stopped", "total_reported", r.reportedCount.Load())
	return nil
}

// Report writes pkt.
func (r *ConsoleReporter) Report(_ context.Context, pkt *core.OutputPacket) error {
	if pkt == nil {
		return fmt.Errorf("nil packet")
	}

	rec, err := r.record(pkt)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.format {
	case FormatYAML:
		if r.yamlEnc == nil {
			r.yamlEnc = yaml.NewEncoder(r.w)
			r.yamlEnc.SetIndent(2)
		}
		err = r.yamlEnc.Encode(rec)
	case FormatText:
		_, err = io.WriteString(r.w, text(pkt, rec)+"\n")
	default:
		err = json.NewEncoder(r.w).Encode(rec)
	}
	if err != nil {
		return fmt.Errorf("write %s record: %w", r.format, err)
	}
	r.reportedCount.Add(1)
	return nil
}

// Reported returns the number of records written.
func (r *ConsoleReporter) Reported() uint64 { return r.reportedCount.Load() }

// record builds the map written for pkt. Telemetry reports contribute their
// structured value under "telemRpt", or only the projected "attributes" when
// fields are configured.
func (r *ConsoleReporter) record(pkt *core.OutputPacket) (map[string]any, error) {
	rec := map[string]any{
		"source":       pkt.Source,
		"index":        pkt.Index,
		"timestamp":    pkt.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z07:00"),
		"payload_type": pkt.PayloadType,
	}
	if pkt.SrcIP.IsValid() {
		rec["src_ip"] = pkt.SrcIP.String()
		rec["dst_ip"] = pkt.DstIP.String()
		rec["src_port"] = pkt.SrcPort
		rec["dst_port"] = pkt.DstPort
		rec["protocol"] = pkt.Protocol
	}
	if len(pkt.Labels) > 0 {
		rec["labels"] = map[string]string(pkt.Labels)
	}

	report, ok := pkt.Payload.(*trpt.Report)
	if !ok {
		if len(pkt.RawPayload) > 0 {
			rec["raw_payload_len"] = len(pkt.RawPayload)
		}
		return rec, nil
	}

	fields := report.Fields()
	if len(r.fields) == 0 {
		rec["telemRpt"] = fields
		return rec, nil
	}
	attrs := make(map[string]any, len(r.fields))
	for _, path := range r.fields {
		v, err := trpt.Lookup(fields, path)
		if err != nil {
			return nil, fmt.Errorf("project field: %w", err)
		}
		attrs[path] = v
	}
	rec["attributes"] = attrs
	return rec, nil
}

// text renders pkt as one line.
func text(pkt *core.OutputPacket, rec map[string]any) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s]", pkt.Timestamp.UTC().Format("15:04:05.000000"))
	if pkt.SrcIP.IsValid() {
		fmt.Fprintf(&sb, " %s:%d -> %s:%d", pkt.SrcIP, pkt.SrcPort, pkt.DstIP, pkt.DstPort)
	}
	fmt.Fprintf(&sb, " type=%s", pkt.PayloadType)

	for _, k := range sortedKeys(pkt.Labels) {
		fmt.Fprintf(&sb, " %s=%s", k, pkt.Labels[k])
	}
	if attrs, ok := rec["attributes"].(map[string]any); ok {
		for _, k := range sortedKeys(attrs) {
			fmt.Fprintf(&sb, " %s=%v", k, attrs[k])
		}
	}
	if n, ok := rec["raw_payload_len"]; ok {
		fmt.Fprintf(&sb, " payload_len=%d", n)
	}
	return sb.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Flush is a no-op; records are written as they arrive.
func (r *ConsoleReporter) Flush(context.Context) error {
	return nil
}
