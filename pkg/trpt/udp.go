package trpt

// UDPIntHeader is the 8-byte UDP header that carries the INT payload inside
// the encapsulated packet.
type UDPIntHeader []byte

// SourcePort returns the source port.
func (h UDPIntHeader) SourcePort() uint16 { return uint16(uintBE(h, 0, 2)) }

// DestinationPort returns the destination port.
func (h UDPIntHeader) DestinationPort() uint16 { return uint16(uintBE(h, 2, 2)) }

// Length returns the UDP length field.
func (h UDPIntHeader) Length() uint16 { return uint16(uintBE(h, 4, 2)) }

func (h UDPIntHeader) fields() map[string]any {
	return map[string]any{
		"srcPort": h.SourcePort(),
		"dstPort": h.DestinationPort(),
		"len":     h.Length(),
	}
}
