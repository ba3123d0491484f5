package trpt

import (
	"fmt"
	"net/netip"
)

// IPHeader is the encapsulated packet's IPv4 (20 bytes) or IPv6 (40 bytes)
// header. Field offsets follow the version nibble.
type IPHeader []byte

const (
	ipv4Len       = 2
	ipv4NextProto = 9
	ipv4Src       = 12
	ipv4Dst       = 16

	ipv6Len       = 4
	ipv6NextProto = 6
	ipv6Src       = 8
	ipv6Dst       = 24
)

// Version returns the IP version nibble (4 or 6 for a decoded report).
func (h IPHeader) Version() uint8 { return nibble(h[0], true) }

// Length returns the IPv4 total length or the IPv6 payload length.
func (h IPHeader) Length() uint16 {
	if h.Version() == 4 {
		return uint16(uintBE(h, ipv4Len, 2))
	}
	return uint16(uintBE(h, ipv6Len, 2))
}

// NextProto returns the IPv4 protocol or IPv6 next header.
func (h IPHeader) NextProto() uint8 {
	if h.Version() == 4 {
		return h[ipv4NextProto]
	}
	return h[ipv6NextProto]
}

// Source returns the source address.
func (h IPHeader) Source() netip.Addr {
	if h.Version() == 4 {
		return inetAddress(h, 4, ipv4Src)
	}
	return inetAddress(h, 6, ipv6Src)
}

// Destination returns the destination address.
func (h IPHeader) Destination() netip.Addr {
	if h.Version() == 4 {
		return inetAddress(h, 4, ipv4Dst)
	}
	return inetAddress(h, 6, ipv6Dst)
}

// SetSource overwrites the source address. The address family must match
// the header version.
func (h IPHeader) SetSource(addr netip.Addr) error {
	if h.Version() == 4 {
		return h.setAddr(addr, ipv4Src)
	}
	return h.setAddr(addr, ipv6Src)
}

// SetDestination overwrites the destination address. The address family must
// match the header version.
func (h IPHeader) SetDestination(addr netip.Addr) error {
	if h.Version() == 4 {
		return h.setAddr(addr, ipv4Dst)
	}
	return h.setAddr(addr, ipv6Dst)
}

func (h IPHeader) setAddr(addr netip.Addr, offset int) error {
	switch {
	case addr.Is4() && h.Version() == 4:
		a := addr.As4()
		copy(h[offset:offset+4], a[:])
	case addr.Is6() && h.Version() == 6:
		a := addr.As16()
		copy(h[offset:offset+16], a[:])
	default:
		return fmt.Errorf("%w: %s on IPv%d header", ErrAddressFamilyMismatch, addr, h.Version())
	}
	return nil
}

func (h IPHeader) fields() map[string]any {
	return map[string]any{
		"len":       h.Length(),
		"nextProto": h.NextProto(),
		"version":   h.Version(),
		"dstAddr":   addrString(h.Destination()),
		"srcAddr":   addrString(h.Source()),
	}
}
