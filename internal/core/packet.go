// Package core defines the data passed between collector stages. It has no
// external dependencies.
package core

import (
	"net/netip"
	"time"
)

// RawPacket is one captured link-layer frame.
type RawPacket struct {
	Data       []byte    // Frame bytes, owned by the receiver
	Timestamp  time.Time // Capture timestamp
	CaptureLen uint32    // Captured length
	OrigLen    uint32    // Length on the wire
	Source     string    // Capture file or other origin
	Index      uint64    // 1-based frame number within Source
}

// DecodedPacket is a frame decoded down to the UDP datagram that carries a
// telemetry report.
type DecodedPacket struct {
	Timestamp  time.Time
	Source     string
	Index      uint64
	Ethernet   EthernetHeader
	IP         IPHeader
	Transport  TransportHeader
	Payload    []byte // UDP body, zero-copy slice of RawPacket.Data
	CaptureLen uint32
	OrigLen    uint32
}

// OutputPacket is what reporters receive.
type OutputPacket struct {
	// Envelope
	Source    string
	Index     uint64
	Timestamp time.Time

	// Collector side of the datagram
	SrcIP    netip.Addr
	DstIP    netip.Addr
	SrcPort  uint16
	DstPort  uint16
	Protocol uint8

	// Labels attached by the parser and the flow index
	Labels Labels

	// Parser result. PayloadType names the parser ("trpt" or "raw"); reporters
	// type-assert Payload accordingly.
	PayloadType string
	Payload     any
	RawPayload  []byte
}
