// Package trpt decodes and patches P4 INT Telemetry Report payloads.
//
// A Report owns one byte buffer. Every header it exposes is a view into that
// buffer, so the setters on a view are visible through Report.Bytes and a
// decoded report re-serializes byte for byte.
package trpt

import (
	"bytes"
	"fmt"
)

// Header lengths in bytes.
const (
	ReportHeaderLen   = 24
	EthernetHeaderLen = 14
	IPv4HeaderLen     = 20
	IPv6HeaderLen     = 40
	UDPIntHeaderLen   = 8
	ShimHeaderLen     = 4
	MetadataHeaderLen = 12
	UDPProtoLen       = 8
	TCPProtoLen       = 20
	DropHeaderLen     = 32

	macLen = 6
)

// Wire discriminants.
const (
	// InTypeDrop is the report header in-type of a drop report.
	InTypeDrop = 2

	EtherTypeIPv4 = 0x0800
	EtherTypeIPv6 = 0x86dd

	ProtocolTCP = 6
	ProtocolUDP = 17
)

// Kind tells packet reports and drop reports apart.
type Kind uint8

const (
	KindPacket Kind = iota
	KindDrop
)

func (k Kind) String() string {
	switch k {
	case KindPacket:
		return "packet"
	case KindDrop:
		return "drop"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Body is the kind specific part of a report. It is implemented only by
// *PacketReport and *DropReport.
type Body interface {
	Kind() Kind
	fields(m map[string]any)
}

// PacketReport holds the encapsulated packet headers of a packet report.
type PacketReport struct {
	Ethernet EthernetHeader
	IP       IPHeader
	UDP      UDPIntHeader
	INT      IntHeader
	Proto    ProtoHeader
}

func (*PacketReport) Kind() Kind { return KindPacket }

func (p *PacketReport) fields(m map[string]any) {
	m["intEthHdr"] = p.Ethernet.fields()
	m["ipHdr"] = p.IP.fields()
	m["udpIntHdr"] = p.UDP.fields()
	m["intHdr"] = p.INT.fields()
	m["protoHdr"] = p.Proto.fields()
}

// DropReport holds the drop record of a drop report.
type DropReport struct {
	Drop DropHeader
}

func (*DropReport) Kind() Kind { return KindDrop }

func (d *DropReport) fields(m map[string]any) {
	m["dropHdr"] = d.Drop.fields()
}

// Span locates one header inside the report buffer.
type Span struct {
	Name   string `json:"name" yaml:"name"`
	Offset int    `json:"offset" yaml:"offset"`
	Length int    `json:"length" yaml:"length"`
}

// Report is a decoded telemetry report. A Report is not safe for concurrent
// mutation; distinct reports share nothing.
type Report struct {
	buf     []byte
	header  ReportHeader
	body    Body
	layout  []Span
	payload int
}

// Decode parses b into a Report. b is copied and never written.
func Decode(b []byte) (*Report, error) {
	r := &Report{buf: bytes.Clone(b)}

	hdr, err := r.next("telemRptHdr", 0, ReportHeaderLen)
	if err != nil {
		return nil, err
	}
	r.header = hdr

	if r.header.InType() == InTypeDrop {
		err = r.decodeDrop()
	} else {
		err = r.decodePacket()
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// next slices length bytes at offset, records the span and advances the
// payload offset past it.
func (r *Report) next(name string, offset, length int) ([]byte, error) {
	b, err := slice(r.buf, offset, length)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	r.layout = append(r.layout, Span{Name: name, Offset: offset, Length: length})
	r.payload = offset + length
	return b, nil
}

func (r *Report) decodeDrop() error {
	b, err := r.next("dropHdr", r.payload, DropHeaderLen)
	if err != nil {
		return err
	}
	r.body = &DropReport{Drop: b}
	return nil
}

func (r *Report) decodePacket() error {
	p := &PacketReport{}

	b, err := r.next("intEthHdr", r.payload, EthernetHeaderLen)
	if err != nil {
		return err
	}
	p.Ethernet = b

	ipLen, version := IPv6HeaderLen, uint8(6)
	if p.Ethernet.EtherType() == EtherTypeIPv4 {
		ipLen, version = IPv4HeaderLen, 4
	}
	if b, err = r.next("ipHdr", r.payload, ipLen); err != nil {
		return err
	}
	p.IP = b
	if p.IP.Version() != version {
		return fmt.Errorf("%w: ethertype %#04x with ip version %d", ErrInconsistentLength, p.Ethernet.EtherType(), p.IP.Version())
	}

	if b, err = r.next("udpIntHdr", r.payload, UDPIntHeaderLen); err != nil {
		return err
	}
	p.UDP = b

	start := r.payload
	if p.INT, err = decodeIntHeader(r.buf, start); err != nil {
		return err
	}
	r.layout = append(r.layout,
		Span{Name: "intHdr.shimHdr", Offset: start, Length: len(p.INT.Shim)},
		Span{Name: "intHdr.mdHdr", Offset: start + len(p.INT.Shim), Length: len(p.INT.Metadata)},
		Span{Name: "intHdr.mdStackHdr", Offset: start + len(p.INT.Shim) + len(p.INT.Metadata), Length: len(p.INT.Stack)},
	)
	r.payload = start + p.INT.Len()

	var protoLen int
	switch next := p.INT.Shim.NextProto(); next {
	case ProtocolUDP:
		protoLen = UDPProtoLen
	case ProtocolTCP:
		protoLen = TCPProtoLen
	default:
		return fmt.Errorf("%w: unknown shim next protocol %d", ErrInconsistentLength, next)
	}
	if b, err = r.next("protoHdr", r.payload, protoLen); err != nil {
		return err
	}
	p.Proto = b

	r.body = p
	return nil
}

// Header returns the report header view.
func (r *Report) Header() ReportHeader { return r.header }

// Body returns the kind specific headers.
func (r *Report) Body() Body { return r.body }

// Kind reports whether r is a packet or a drop report.
func (r *Report) Kind() Kind { return r.body.Kind() }

// Packet returns the packet report headers, if r is a packet report.
func (r *Report) Packet() (*PacketReport, bool) {
	p, ok := r.body.(*PacketReport)
	return p, ok
}

// Drop returns the drop record, if r is a drop report.
func (r *Report) Drop() (*DropReport, bool) {
	d, ok := r.body.(*DropReport)
	return d, ok
}

// Bytes returns a copy of the report buffer including every mutation.
func (r *Report) Bytes() []byte { return bytes.Clone(r.buf) }

// Len returns the size of the report buffer.
func (r *Report) Len() int { return len(r.buf) }

// Payload returns a copy of the bytes following the last decoded header.
func (r *Report) Payload() []byte { return bytes.Clone(r.buf[r.payload:]) }

// Layout returns the decoded headers in wire order, followed by the payload
// span when there is one.
func (r *Report) Layout() []Span {
	out := make([]Span, len(r.layout), len(r.layout)+1)
	copy(out, r.layout)
	if n := len(r.buf) - r.payload; n > 0 {
		out = append(out, Span{Name: "payload", Offset: r.payload, Length: n})
	}
	return out
}

func (r *Report) packet(op string) (*PacketReport, error) {
	p, ok := r.Packet()
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrUnsupportedForDropReport)
	}
	return p, nil
}

// SetSourcePort overwrites the original packet's source port.
func (r *Report) SetSourcePort(port uint16) error {
	p, err := r.packet("set source port")
	if err != nil {
		return err
	}
	p.Proto.SetSourcePort(port)
	return nil
}

// SetDestinationPort overwrites the original packet's destination port.
func (r *Report) SetDestinationPort(port uint16) error {
	p, err := r.packet("set destination port")
	if err != nil {
		return err
	}
	p.Proto.SetDestinationPort(port)
	return nil
}

// SetSourceAddress overwrites the encapsulated IP source address. The literal
// must have the same family as the header.
func (r *Report) SetSourceAddress(s string) error {
	p, err := r.packet("set source address")
	if err != nil {
		return err
	}
	addr, err := ParseAddr(s)
	if err != nil {
		return err
	}
	return p.IP.SetSource(addr)
}

// SetDestinationAddress overwrites the encapsulated IP destination address.
// The literal must have the same family as the header.
func (r *Report) SetDestinationAddress(s string) error {
	p, err := r.packet("set destination address")
	if err != nil {
		return err
	}
	addr, err := ParseAddr(s)
	if err != nil {
		return err
	}
	return p.IP.SetDestination(addr)
}

// SetOriginatingMAC overwrites the MAC trailing the INT metadata stack.
func (r *Report) SetOriginatingMAC(s string) error {
	p, err := r.packet("set originating mac")
	if err != nil {
		return err
	}
	mac, err := ParseMAC(s)
	if err != nil {
		return err
	}
	return p.INT.Stack.SetOriginatingMAC(mac)
}
