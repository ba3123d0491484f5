package trpt

// ProtoHeader covers the original packet's transport header. Only the two
// ports are modelled; the remainder of a TCP header is carried untouched.
type ProtoHeader []byte

// SourcePort returns the original source port.
func (h ProtoHeader) SourcePort() uint16 { return uint16(uintBE(h, 0, 2)) }

// DestinationPort returns the original destination port.
func (h ProtoHeader) DestinationPort() uint16 { return uint16(uintBE(h, 2, 2)) }

// SetSourcePort overwrites the original source port.
func (h ProtoHeader) SetSourcePort(port uint16) { putUintBE(h, 0, 2, uint64(port)) }

// SetDestinationPort overwrites the original destination port.
func (h ProtoHeader) SetDestinationPort(port uint16) { putUintBE(h, 2, 2, uint64(port)) }

func (h ProtoHeader) fields() map[string]any {
	return map[string]any{
		"srcPort": h.SourcePort(),
		"dstPort": h.DestinationPort(),
	}
}
