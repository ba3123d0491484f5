package trpt

import (
	"crypto/sha256"
	"encoding/binary"
	"net/netip"
	"strconv"
	"strings"
)

var (
	zeroIPv4 = netip.IPv4Unspecified().String()
	zeroIPv6 = netip.IPv6Unspecified().String()
)

// CorrelationKey identifies the flow a report belongs to. Drop reports carry
// the key verbatim. For packet reports it is the first 8 bytes of
// SHA-256("origMac|dstPort|ipv4|ipv6") as an unsigned decimal, where the slot
// of the absent address family holds its unspecified address ("0.0.0.0" or
// "::") and the present one is rendered uncompressed.
func (r *Report) CorrelationKey() string {
	switch b := r.body.(type) {
	case *DropReport:
		return b.Drop.DropKey()
	case *PacketReport:
		return flowKey(b.INT.Stack.OriginatingMAC(), b.Proto.DestinationPort(), b.IP.Destination())
	}
	return ""
}

func flowKey(mac string, port uint16, dst netip.Addr) string {
	v4, v6 := zeroIPv4, zeroIPv6
	if dst.Is4() {
		v4 = addrString(dst)
	} else {
		v6 = addrString(dst)
	}
	var sb strings.Builder
	sb.WriteString(mac)
	sb.WriteByte('|')
	sb.WriteString(strconv.FormatUint(uint64(port), 10))
	sb.WriteByte('|')
	sb.WriteString(v4)
	sb.WriteByte('|')
	sb.WriteString(v6)

	sum := sha256.Sum256([]byte(sb.String()))
	return strconv.FormatUint(binary.BigEndian.Uint64(sum[:8]), 10)
}
