package trpt

import (
	"fmt"
	"net"
)

// ShimHeader is the 4-byte INT shim header.
type ShimHeader []byte

// Type returns the shim type nibble.
func (h ShimHeader) Type() uint8 { return nibble(h[0], true) }

// NextProtocolType returns the 2-bit NPT field (bits 4 and 5 of byte 0).
func (h ShimHeader) NextProtocolType() uint8 { return bit(h[0], 4)<<1 | bit(h[0], 5) }

// Length returns the shim length in 4-byte words, counting the shim and
// metadata headers and the whole metadata stack.
func (h ShimHeader) Length() uint8 { return h[1] }

// NextProto returns the IP protocol number of the original transport header.
func (h ShimHeader) NextProto() uint8 { return h[3] }

func (h ShimHeader) fields() map[string]any {
	return map[string]any{
		"type":      h.Type(),
		"npt":       h.NextProtocolType(),
		"len":       h.Length(),
		"nextProto": h.NextProto(),
	}
}

// MetadataHeader is the 12-byte INT metadata header.
type MetadataHeader []byte

// Version returns the metadata version nibble.
func (h MetadataHeader) Version() uint8 { return nibble(h[0], true) }

// D returns the discard bit.
func (h MetadataHeader) D() uint8 { return bit(h[0], 6) }

// E returns the max-hop-count-exceeded bit.
func (h MetadataHeader) E() uint8 { return bit(h[0], 7) }

// M returns the MTU-exceeded bit.
func (h MetadataHeader) M() uint8 { return bit(h[1], 0) }

// PerHopLength returns the 5-bit per-hop metadata length in words.
func (h MetadataHeader) PerHopLength() uint8 { return h[2] & 0x1f }

// RemainingHopCount returns the remaining hop budget.
func (h MetadataHeader) RemainingHopCount() uint8 { return h[3] }

// Instructions returns the instruction bitmap as 16 binary digits.
func (h MetadataHeader) Instructions() string { return bitString(h[4:6]) }

// DomainID returns the domain specific id.
func (h MetadataHeader) DomainID() uint16 { return uint16(uintBE(h, 6, 2)) }

// DsInstructions returns the domain specific instruction bitmap.
func (h MetadataHeader) DsInstructions() string { return bitString(h[8:10]) }

// DsFlags returns the domain specific flags.
func (h MetadataHeader) DsFlags() string { return bitString(h[10:12]) }

func (h MetadataHeader) fields() map[string]any {
	return map[string]any{
		"version":           h.Version(),
		"d":                 h.D(),
		"e":                 h.E(),
		"m":                 h.M(),
		"mdLen":             h.PerHopLength(),
		"remainingHopCount": h.RemainingHopCount(),
		"instructions":      h.Instructions(),
		"domainId":          h.DomainID(),
		"dsInstructions":    h.DsInstructions(),
		"dsFlags":           h.DsFlags(),
	}
}

// MetadataStack is the per-hop metadata followed by the 6-byte originating
// MAC. Hop words are laid out oldest first, so the most recent hop is the word
// adjacent to the MAC.
type MetadataStack []byte

// HopCount returns the number of 4-byte hop words in the stack.
func (s MetadataStack) HopCount() int { return (len(s) - macLen) / 4 }

// Hop returns hop i, most recent first.
func (s MetadataStack) Hop(i int) uint32 {
	last := len(s) - macLen
	return uint32(uintBE(s, last-i*4-4, 4))
}

// Hops returns all hop identifiers, most recent first.
func (s MetadataStack) Hops() []uint32 {
	hops := make([]uint32, s.HopCount())
	for i := range hops {
		hops[i] = s.Hop(i)
	}
	return hops
}

// OriginatingMAC returns the trailing MAC as "xx:xx:xx:xx:xx:xx".
func (s MetadataStack) OriginatingMAC() string { return macString(s, len(s)-macLen) }

// SetOriginatingMAC overwrites the trailing MAC in place.
func (s MetadataStack) SetOriginatingMAC(mac net.HardwareAddr) error {
	if len(mac) != macLen {
		return fmt.Errorf("%w: mac %s is not 48 bits", ErrMalformedAddressLiteral, mac)
	}
	copy(s[len(s)-macLen:], mac)
	return nil
}

func (s MetadataStack) fields() map[string]any {
	return map[string]any{
		"origMac": s.OriginatingMAC(),
		"hops":    s.Hops(),
	}
}

// IntHeader groups the shim, metadata and stack views of one report.
type IntHeader struct {
	Shim     ShimHeader
	Metadata MetadataHeader
	Stack    MetadataStack
}

// Len returns the number of bytes the INT headers occupy.
func (h IntHeader) Len() int { return len(h.Shim) + len(h.Metadata) + len(h.Stack) }

func (h IntHeader) fields() map[string]any {
	return map[string]any{
		"shimHdr":    h.Shim.fields(),
		"mdHdr":      h.Metadata.fields(),
		"mdStackHdr": h.Stack.fields(),
	}
}

// stackWords is the number of shim length words that are not hop words:
// shim (1), metadata (3) and the word-padded originating MAC (2).
const stackWords = 6

// decodeIntHeader slices the INT headers starting at offset.
func decodeIntHeader(b []byte, offset int) (IntHeader, error) {
	var h IntHeader
	shim, err := slice(b, offset, ShimHeaderLen)
	if err != nil {
		return h, fmt.Errorf("int shim header: %w", err)
	}
	h.Shim = shim
	md, err := slice(b, offset+ShimHeaderLen, MetadataHeaderLen)
	if err != nil {
		return h, fmt.Errorf("int metadata header: %w", err)
	}
	h.Metadata = md

	words := int(h.Shim.Length())
	if words < stackWords {
		return h, fmt.Errorf("%w: shim length %d below %d words", ErrInconsistentLength, words, stackWords)
	}
	hops := words - stackWords
	stack, err := slice(b, offset+ShimHeaderLen+MetadataHeaderLen, hops*4+macLen)
	if err != nil {
		return h, fmt.Errorf("int metadata stack (%d hops): %w", hops, err)
	}
	h.Stack = stack
	return h, nil
}
