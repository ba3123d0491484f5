// Package decoder decodes captured frames down to the UDP datagram.
package decoder

import (
	"fmt"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"firestige.xyz/trpt/internal/core"
)

// Decoder decodes raw packets into structured format.
type Decoder interface {
	Decode(raw core.RawPacket) (core.DecodedPacket, error)
}

// StandardDecoder decodes Ethernet, optional 802.1Q/802.1ad tags, IPv4 or
// IPv6 and UDP. Anything else, including IPv4 fragments and IPv6 extension
// headers, is ErrUnsupportedProto.
//
// A StandardDecoder reuses its layer structs and must not be shared between
// goroutines. The returned payload aliases raw.Data.
type StandardDecoder struct {
	parser  *gopacket.DecodingLayerParser
	decoded []gopacket.LayerType

	eth   layers.Ethernet
	dot1q layers.Dot1Q
	ip4   layers.IPv4
	ip6   layers.IPv6
	udp   layers.UDP
}

// NewStandardDecoder creates a decoder.
func NewStandardDecoder() *StandardDecoder {
	d := &StandardDecoder{decoded: make([]gopacket.LayerType, 0, 8)}
	d.parser = gopacket.NewDecodingLayerParser(
		layers.LayerTypeEthernet,
		&d.eth,
		&d.dot1q,
		&d.ip4,
		&d.ip6,
		&d.udp,
	)
	d.parser.IgnoreUnsupported = true
	return d
}

// Decode implements Decoder.
func (d *StandardDecoder) Decode(raw core.RawPacket) (core.DecodedPacket, error) {
	out := core.DecodedPacket{
		Timestamp:  raw.Timestamp,
		Source:     raw.Source,
		Index:      raw.Index,
		CaptureLen: raw.CaptureLen,
		OrigLen:    raw.OrigLen,
	}

	if err := d.parser.DecodeLayers(raw.Data, &d.decoded); err != nil {
		return out, fmt.Errorf("%w: %v", core.ErrPacketTooShort, err)
	}

	var haveIP, haveUDP bool
	for _, lt := range d.decoded {
		switch lt {
		case layers.LayerTypeEthernet:
			copy(out.Ethernet.DstMAC[:], d.eth.DstMAC)
			copy(out.Ethernet.SrcMAC[:], d.eth.SrcMAC)
			out.Ethernet.EtherType = uint16(d.eth.EthernetType)
		case layers.LayerTypeDot1Q:
			out.Ethernet.VLANDepth++
			out.Ethernet.VLAN = d.dot1q.VLANIdentifier
			out.Ethernet.EtherType = uint16(d.dot1q.Type)
		case layers.LayerTypeIPv4:
			if d.ip4.Flags&layers.IPv4MoreFragments != 0 || d.ip4.FragOffset != 0 {
				return out, fmt.Errorf("%w: ipv4 fragment id=%d offset=%d", core.ErrUnsupportedProto, d.ip4.Id, d.ip4.FragOffset)
			}
			out.IP = core.IPHeader{
				Version:  4,
				SrcIP:    addrFromSlice(d.ip4.SrcIP),
				DstIP:    addrFromSlice(d.ip4.DstIP),
				Protocol: uint8(d.ip4.Protocol),
				TTL:      d.ip4.TTL,
				TotalLen: d.ip4.Length,
			}
			haveIP = true
		case layers.LayerTypeIPv6:
			out.IP = core.IPHeader{
				Version:  6,
				SrcIP:    addrFromSlice(d.ip6.SrcIP),
				DstIP:    addrFromSlice(d.ip6.DstIP),
				Protocol: uint8(d.ip6.NextHeader),
				TTL:      d.ip6.HopLimit,
				TotalLen: 40 + d.ip6.Length,
			}
			haveIP = true
		case layers.LayerTypeUDP:
			out.Transport = core.TransportHeader{
				SrcPort:  uint16(d.udp.SrcPort),
				DstPort:  uint16(d.udp.DstPort),
				Length:   d.udp.Length,
				Protocol: uint8(layers.IPProtocolUDP),
			}
			out.Payload = d.udp.Payload
			haveUDP = true
		}
	}

	switch {
	case !haveIP:
		return out, fmt.Errorf("%w: ethertype %#04x", core.ErrUnsupportedProto, out.Ethernet.EtherType)
	case !haveUDP:
		return out, fmt.Errorf("%w: ip protocol %d", core.ErrUnsupportedProto, out.IP.Protocol)
	}
	return out, nil
}

func addrFromSlice(b []byte) netip.Addr {
	addr, _ := netip.AddrFromSlice(b)
	return addr.Unmap()
}
