package trpt

import (
	"encoding/hex"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
)

// slice returns b[start:start+length] without copying.
func slice(b []byte, start, length int) ([]byte, error) {
	if start < 0 || length < 0 || start+length > len(b) {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncatedBuffer, length, start, len(b))
	}
	return b[start : start+length : start+length], nil
}

// uintBE decodes count (1-8) bytes at start as a big-endian unsigned integer.
// Callers only pass ranges inside an already validated view.
func uintBE(b []byte, start, count int) uint64 {
	var v uint64
	for _, c := range b[start : start+count] {
		v = v<<8 | uint64(c)
	}
	return v
}

// putUintBE writes the low count bytes of v at start, big-endian.
func putUintBE(b []byte, start, count int, v uint64) {
	for i := count - 1; i >= 0; i-- {
		b[start+i] = byte(v)
		v >>= 8
	}
}

// nibble returns the high or low 4 bits of c.
func nibble(c byte, high bool) uint8 {
	if high {
		return c >> 4
	}
	return c & 0x0f
}

// bit returns the bit at position (0 = MSB, 7 = LSB) of c.
func bit(c byte, position uint) uint8 {
	return (c >> (7 - position)) & 0x01
}

// bitString renders b as a string of '0'/'1', MSB first.
func bitString(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b) * 8)
	for _, c := range b {
		for pos := uint(0); pos < 8; pos++ {
			sb.WriteByte('0' + bit(c, pos))
		}
	}
	return sb.String()
}

// macString formats the 6 bytes at start as lower-case colon separated hex.
func macString(b []byte, start int) string {
	const digits = "0123456789abcdef"
	out := make([]byte, 0, 17)
	for i, c := range b[start : start+6] {
		if i > 0 {
			out = append(out, ':')
		}
		out = append(out, digits[c>>4], digits[c&0x0f])
	}
	return string(out)
}

// ParseMAC parses a 48-bit MAC address literal in the colon separated form
// produced by macString, such as "00:00:00:00:01:01".
func ParseMAC(s string) (net.HardwareAddr, error) {
	if len(s) != 17 || strings.Count(s, ":") != 5 {
		return nil, fmt.Errorf("%w: mac %q is not colon separated hex", ErrMalformedAddressLiteral, s)
	}
	for i := 2; i < len(s); i += 3 {
		if s[i] != ':' {
			return nil, fmt.Errorf("%w: mac %q is not colon separated hex", ErrMalformedAddressLiteral, s)
		}
	}
	hw, err := net.ParseMAC(s)
	if err != nil {
		return nil, fmt.Errorf("%w: mac %q: %v", ErrMalformedAddressLiteral, s, err)
	}
	if len(hw) != 6 {
		return nil, fmt.Errorf("%w: mac %q is not 48 bits", ErrMalformedAddressLiteral, s)
	}
	return hw, nil
}

// ParseAddr parses an IPv4 or IPv6 literal. Zones are rejected.
func ParseAddr(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: ip %q: %v", ErrMalformedAddressLiteral, s, err)
	}
	if addr.Zone() != "" {
		return netip.Addr{}, fmt.Errorf("%w: ip %q carries a zone", ErrMalformedAddressLiteral, s)
	}
	return addr, nil
}

// inetAddress reads a 4 (version 4) or 16 byte address at start.
func inetAddress(b []byte, version uint8, start int) netip.Addr {
	if version == 4 {
		return netip.AddrFrom4([4]byte(b[start : start+4]))
	}
	return netip.AddrFrom16([16]byte(b[start : start+16]))
}

// addrString renders IPv4 in dotted decimal and IPv6 as eight lower-case hex
// groups without zero compression, e.g. "0:0:0:0:0:1:1:1d".
func addrString(a netip.Addr) string {
	if a.Is4() {
		return a.String()
	}
	b := a.As16()
	out := make([]byte, 0, 39)
	for i := 0; i < 16; i += 2 {
		if i > 0 {
			out = append(out, ':')
		}
		out = strconv.AppendUint(out, uint64(b[i])<<8|uint64(b[i+1]), 16)
	}
	return string(out)
}

// hexString is the lower-case hex rendering used for payloads and drop keys.
func hexString(b []byte) string {
	return hex.EncodeToString(b)
}
