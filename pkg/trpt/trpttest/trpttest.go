// Package trpttest builds telemetry report buffers for tests.
//
// Every packet report carries the same encapsulated flow: Ethernet
// 00:00:00:00:01:01 -> 00:00:00:00:05:01, 192.168.1.2 -> 192.168.1.10 (or
// ::1:1:2 -> ::1:1:1d), INT over UDP port 555, original ports 6680 -> 5792
// and originating MAC 00:00:00:00:01:01.
package trpttest

import (
	"encoding/binary"
	"encoding/hex"
	"net/netip"
)

const (
	// Payload is the default payload following the headers.
	Payload = "hello transparent-security"
	// DropKey is the key stored in Drop reports.
	DropKey = "6b00dbfc6026a3521bbe0f5d00170000"
	// INTPort is the UDP port carrying INT in packet reports.
	INTPort = 555

	protocolTCP = 6
	protocolUDP = 17
)

var (
	dstMAC  = []byte{0x00, 0x00, 0x00, 0x00, 0x05, 0x01}
	srcMAC  = []byte{0x00, 0x00, 0x00, 0x00, 0x01, 0x01}
	origMAC = []byte{0x00, 0x00, 0x00, 0x00, 0x01, 0x01}

	src4 = netip.MustParseAddr("192.168.1.2")
	dst4 = netip.MustParseAddr("192.168.1.10")
	src6 = netip.MustParseAddr("::1:1:2")
	dst6 = netip.MustParseAddr("::1:1:1d")
)

// Packet describes a packet report. Hops are most recent first, the order
// the decoder returns them in.
type Packet struct {
	IPVersion int
	Proto     uint8
	Hops      []uint32
	Payload   string
}

// UDP4 is the IPv4 report of a UDP flow with hops 123 and 234.
func UDP4() Packet {
	return Packet{IPVersion: 4, Proto: protocolUDP, Hops: []uint32{123, 234}, Payload: Payload}
}

// Packets returns the four IP version and transport combinations by name
// ("udp4", "tcp4", "udp6", "tcp6").
func Packets() map[string]Packet {
	return map[string]Packet{
		"udp4": UDP4(),
		"tcp4": {IPVersion: 4, Proto: protocolTCP, Hops: []uint32{123, 234}, Payload: Payload},
		"udp6": {IPVersion: 6, Proto: protocolUDP, Hops: []uint32{123, 234}, Payload: Payload},
		"tcp6": {IPVersion: 6, Proto: protocolTCP, Hops: []uint32{123, 234}, Payload: Payload},
	}
}

// reportHeader builds the 24-byte group header:
//
//	ver=2 hwId=13 seq=1089 node=nodeID repType=0 inType=inType
//	rptLen, mdLen, Q=1 I=1, repMd=0x55aa, domain=21587,
//	dsMdb=0x55aa, dsMds=0xaa55, varOpt=0
func reportHeader(inType uint8, nodeID uint32, rptLen, mdLen uint8) []byte {
	b := make([]byte, 0, 24)
	b = append(b, 0x23, 0x40, 0x04, 0x41)
	b = binary.BigEndian.AppendUint32(b, nodeID)
	b = append(b, inType&0x0f, rptLen, mdLen, 0x50)
	b = binary.BigEndian.AppendUint16(b, 0x55aa)
	b = binary.BigEndian.AppendUint16(b, 21587)
	b = binary.BigEndian.AppendUint16(b, 0x55aa)
	b = binary.BigEndian.AppendUint16(b, 0xaa55)
	b = binary.BigEndian.AppendUint32(b, 0)
	return b
}

// Bytes encodes p.
func (p Packet) Bytes() []byte {
	b := reportHeader(4, 234, 10, 8)

	b = append(b, dstMAC...)
	b = append(b, srcMAC...)
	if p.IPVersion == 4 {
		b = binary.BigEndian.AppendUint16(b, 0x0800)
		b = append(b, 0x45, 0x00)
		b = binary.BigEndian.AppendUint16(b, 94)
		b = append(b, 0x00, 0x01, 0x00, 0x00, 64, protocolUDP, 0x00, 0x00)
		b = append(b, src4.AsSlice()...)
		b = append(b, dst4.AsSlice()...)
	} else {
		b = binary.BigEndian.AppendUint16(b, 0x86dd)
		b = append(b, 0x60, 0x00, 0x00, 0x00)
		b = binary.BigEndian.AppendUint16(b, 74)
		b = append(b, protocolUDP, 64)
		b = append(b, src6.AsSlice()...)
		b = append(b, dst6.AsSlice()...)
	}

	// UDP carrying INT: 0 -> 555
	b = binary.BigEndian.AppendUint16(b, 0)
	b = binary.BigEndian.AppendUint16(b, INTPort)
	b = binary.BigEndian.AppendUint16(b, 74)
	b = binary.BigEndian.AppendUint16(b, 0)

	// shim: type=1 npt=2, length in words
	b = append(b, 0x18, byte(6+len(p.Hops)), 0x00, p.Proto)

	// metadata: ver=2 mdLen=1 remaining=9
	b = append(b, 0x20, 0x00, 0x01, 0x09)
	b = binary.BigEndian.AppendUint16(b, 0x8000)
	b = binary.BigEndian.AppendUint16(b, 21587)
	b = binary.BigEndian.AppendUint16(b, 0x8000)
	b = binary.BigEndian.AppendUint16(b, 0x4000)

	for i := len(p.Hops) - 1; i >= 0; i-- {
		b = binary.BigEndian.AppendUint32(b, p.Hops[i])
	}
	b = append(b, origMAC...)

	b = binary.BigEndian.AppendUint16(b, 6680)
	b = binary.BigEndian.AppendUint16(b, 5792)
	if p.Proto == protocolTCP {
		b = append(b, make([]byte, 16)...)
	} else {
		b = binary.BigEndian.AppendUint16(b, uint16(8+len(p.Payload)))
		b = binary.BigEndian.AppendUint16(b, 0)
	}
	return append(b, p.Payload...)
}

// HeaderLen is the length of the header chain that precedes the payload.
func (p Packet) HeaderLen() int {
	return len(p.Bytes()) - len(p.Payload)
}

// Drop encodes a drop report from node 123 with timestamp 1624470281, drop
// count 0 and DropKey, followed by payload.
func Drop(payload string) []byte {
	b := reportHeader(2, 123, 9, 7)
	b = binary.BigEndian.AppendUint32(b, 1624470281)
	b = binary.BigEndian.AppendUint32(b, 0)
	b = append(b, make([]byte, 8)...)
	key, err := hex.DecodeString(DropKey)
	if err != nil {
		panic(err)
	}
	b = append(b, key...)
	return append(b, payload...)
}
