package trpt

// EthernetHeader is the 14-byte Ethernet header of the encapsulated packet.
type EthernetHeader []byte

const (
	ethDst  = 0
	ethSrc  = 6
	ethType = 12
)

// DestinationMAC returns the destination address as "xx:xx:xx:xx:xx:xx".
func (h EthernetHeader) DestinationMAC() string { return macString(h, ethDst) }

// SourceMAC returns the source address as "xx:xx:xx:xx:xx:xx".
func (h EthernetHeader) SourceMAC() string { return macString(h, ethSrc) }

// EtherType returns the ethertype. 0x0800 means an IPv4 header follows;
// anything else is read as IPv6.
func (h EthernetHeader) EtherType() uint16 { return uint16(uintBE(h, ethType, 2)) }

func (h EthernetHeader) fields() map[string]any {
	return map[string]any{
		"dstMac": h.DestinationMAC(),
		"srcMac": h.SourceMAC(),
		"type":   h.EtherType(),
	}
}
