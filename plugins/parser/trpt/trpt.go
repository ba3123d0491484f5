// Package trpt implements the telemetry report parser.
//
// The parser accepts UDP datagrams sent to the configured collector ports,
// decodes them with pkg/trpt and surfaces the identifying fields as labels.
// The decoded *trpt.Report is returned as the payload so reporters can render
// the full structured value.
package trpt

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"

	"firestige.xyz/trpt/internal/core"
	"firestige.xyz/trpt/pkg/plugin"
	"firestige.xyz/trpt/pkg/trpt"
)

// Name is the parser name and the OutputPacket.PayloadType it produces.
const Name = "trpt"

func init() {
	plugin.RegisterParser(Name, func() plugin.Parser { return NewParser() })
}

// Config configures the parser.
type Config struct {
	Ports      []int `mapstructure:"ports"`       // Collector UDP ports; empty accepts any port
	MinVersion int   `mapstructure:"min_version"` // Reports with a lower header version are rejected
}

// Parser parses telemetry reports. It implements plugin.Parser.
type Parser struct {
	ports      map[uint16]struct{}
	minVersion uint8
}

// NewParser creates a parser that accepts every UDP port.
func NewParser() *Parser {
	return &Parser{}
}

// Name returns the plugin identifier used in configuration.
func (p *Parser) Name() string { return Name }

// Init decodes cfg into Config.
func (p *Parser) Init(cfg map[string]any) error {
	var c Config
	if err := mapstructure.Decode(cfg, &c); err != nil {
		return fmt.Errorf("%w: %s: %v", core.ErrPluginInitFailed, Name, err)
	}
	return p.Configure(c)
}

// Configure applies c.
func (p *Parser) Configure(c Config) error {
	if c.MinVersion < 0 || c.MinVersion > 15 {
		return fmt.Errorf("%w: min_version %d outside 0-15", core.ErrConfigInvalid, c.MinVersion)
	}
	ports := make(map[uint16]struct{}, len(c.Ports))
	for _, port := range c.Ports {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("%w: port %d out of range", core.ErrConfigInvalid, port)
		}
		ports[uint16(port)] = struct{}{}
	}
	p.ports = ports
	p.minVersion = uint8(c.MinVersion)
	return nil
}

// Start is a no-op.
func (p *Parser) Start(context.Context) error { return nil }

// Stop is a no-op.
func (p *Parser) Stop(context.Context) error { return nil }

// CanHandle accepts UDP datagrams to a collector port that can hold at least
// a report header.
func (p *Parser) CanHandle(pkt *core.DecodedPacket) bool {
	if pkt.Transport.Protocol != trpt.ProtocolUDP {
		return false
	}
	if len(p.ports) > 0 {
		if _, ok := p.ports[pkt.Transport.DstPort]; !ok {
			return false
		}
	}
	return len(pkt.Payload) >= trpt.ReportHeaderLen
}

// Handle decodes the datagram body.
func (p *Parser) Handle(pkt *core.DecodedPacket) (any, core.Labels, error) {
	r, err := trpt.Decode(pkt.Payload)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", core.ErrNotTelemetryReport, err)
	}
	if v := r.Header().Version(); v < p.minVersion {
		return nil, nil, fmt.Errorf("%w: report version %d below %d", core.ErrNotTelemetryReport, v, p.minVersion)
	}
	return r, Labels(r), nil
}

// Labels returns the identifying fields of r.
func Labels(r *trpt.Report) core.Labels {
	h := r.Header()
	labels := core.Labels{
		core.LabelTrptKind:     r.Kind().String(),
		core.LabelTrptInType:   strconv.Itoa(int(h.InType())),
		core.LabelTrptNodeID:   strconv.FormatUint(uint64(h.NodeID()), 10),
		core.LabelTrptSeqNo:    strconv.FormatUint(uint64(h.SequenceID()), 10),
		core.LabelTrptDomainID: strconv.Itoa(int(h.DomainID())),
		core.LabelTrptKey:      r.CorrelationKey(),
	}

	switch b := r.Body().(type) {
	case *trpt.PacketReport:
		hops := b.INT.Stack.Hops()
		parts := make([]string, len(hops))
		for i, hop := range hops {
			parts[i] = strconv.FormatUint(uint64(hop), 10)
		}
		labels[core.LabelTrptOrigMAC] = b.INT.Stack.OriginatingMAC()
		labels[core.LabelTrptHops] = strings.Join(parts, ",")
		labels[core.LabelTrptIPVersion] = strconv.Itoa(int(b.IP.Version()))
		labels[core.LabelTrptDstPort] = strconv.Itoa(int(b.Proto.DestinationPort()))
	case *trpt.DropReport:
		labels[core.LabelTrptDropCount] = strconv.FormatUint(uint64(b.Drop.DropCount()), 10)
		labels[core.LabelTrptDropTimestamp] = strconv.FormatUint(uint64(b.Drop.Timestamp()), 10)
	}
	return labels
}
