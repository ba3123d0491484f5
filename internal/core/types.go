// Package core defines core types with zero external dependencies.
package core

import "net/netip"

// EthernetHeader is the outer L2 header of a captured frame.
type EthernetHeader struct {
	SrcMAC    [6]byte
	DstMAC    [6]byte
	EtherType uint16 // Type after any VLAN tags
	VLANDepth int    // Number of 802.1Q/802.1ad tags
	VLAN      uint16 // Innermost VLAN id, zero when untagged
}

// IPHeader is the outer L3 header (IPv4 or IPv6).
type IPHeader struct {
	Version  uint8
	SrcIP    netip.Addr
	DstIP    netip.Addr
	Protocol uint8
	TTL      uint8
	TotalLen uint16
}

// TransportHeader is the outer UDP header.
type TransportHeader struct {
	SrcPort  uint16
	DstPort  uint16
	Length   uint16
	Protocol uint8
}
