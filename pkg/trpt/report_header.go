package trpt

// ReportHeader is the 24-byte Telemetry Report group header.
//
//	 0                   1                   2                   3
//	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|  Ver  |   hw_id   |              sequence number              |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|                            node id                            |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|RepType|InType | Report Length |  MD Length    |D|Q|F|I| Rsvd  |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|    RepMdBits                  |        Domain Specific ID     |
//	|    DSMdBits                   |        DSMdStatus             |
//	|                  Variable Optional Metadata                   |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
type ReportHeader []byte

const (
	rptVerHw     = 0
	rptSeq       = 1
	rptNodeID    = 4
	rptTypes     = 8
	rptLen       = 9
	rptMdLen     = 10
	rptFlags     = 11
	rptRepMdBits = 12
	rptDomainID  = 14
	rptDsMdBits  = 16
	rptDsMdStat  = 18
	rptVarOptMd  = 20
)

// Version returns the 4-bit report version.
func (h ReportHeader) Version() uint8 { return nibble(h[rptVerHw], true) }

// HardwareID returns the 6-bit hardware id spanning bytes 0 and 1.
func (h ReportHeader) HardwareID() uint8 {
	return nibble(h[rptVerHw], false)<<2 | h[rptSeq]>>6
}

// SequenceID returns the 22-bit sequence number spanning bytes 1 to 3.
func (h ReportHeader) SequenceID() uint32 {
	return uint32(h[rptSeq]&0x3f)<<16 | uint32(uintBE(h, rptSeq+1, 2))
}

// NodeID returns the 32-bit node id.
func (h ReportHeader) NodeID() uint32 { return uint32(uintBE(h, rptNodeID, 4)) }

// ReportType returns the high nibble of byte 8.
func (h ReportHeader) ReportType() uint8 { return nibble(h[rptTypes], true) }

// InType returns the low nibble of byte 8, the packet/drop discriminant.
func (h ReportHeader) InType() uint8 { return nibble(h[rptTypes], false) }

// ReportLength returns the report length byte.
func (h ReportHeader) ReportLength() uint8 { return h[rptLen] }

// MetadataLength returns the metadata length byte.
func (h ReportHeader) MetadataLength() uint8 { return h[rptMdLen] }

// D returns the dropped flag.
func (h ReportHeader) D() uint8 { return bit(h[rptFlags], 0) }

// Q returns the congested-queue flag.
func (h ReportHeader) Q() uint8 { return bit(h[rptFlags], 1) }

// F returns the tracked-flow flag.
func (h ReportHeader) F() uint8 { return bit(h[rptFlags], 2) }

// I returns the intermediate-report flag.
func (h ReportHeader) I() uint8 { return bit(h[rptFlags], 3) }

// RepMdBits returns the report metadata bitmap as 16 binary digits.
func (h ReportHeader) RepMdBits() string { return bitString(h[rptRepMdBits : rptRepMdBits+2]) }

// DomainID returns the 16-bit domain specific id.
func (h ReportHeader) DomainID() uint16 { return uint16(uintBE(h, rptDomainID, 2)) }

// DsMdBits returns the domain specific metadata bitmap as 16 binary digits.
func (h ReportHeader) DsMdBits() string { return bitString(h[rptDsMdBits : rptDsMdBits+2]) }

// DsMdStatus returns the domain specific metadata status as 16 binary digits.
func (h ReportHeader) DsMdStatus() string { return bitString(h[rptDsMdStat : rptDsMdStat+2]) }

// VarOptMd returns the variable optional metadata word as 32 binary digits.
func (h ReportHeader) VarOptMd() string { return bitString(h[rptVarOptMd : rptVarOptMd+4]) }

func (h ReportHeader) fields() map[string]any {
	return map[string]any{
		"domainId":   h.DomainID(),
		"hardwareId": h.HardwareID(),
		"inType":     h.InType(),
		"nodeId":     h.NodeID(),
		"rptLen":     h.ReportLength(),
		"seqNo":      h.SequenceID(),
		"version":    h.Version(),
		"metaLen":    h.MetadataLength(),
		"rptType":    h.ReportType(),
		"d":          h.D(),
		"q":          h.Q(),
		"f":          h.F(),
		"i":          h.I(),
		"repMdBits":  h.RepMdBits(),
		"mdbBits":    h.DsMdBits(),
		"mdsBits":    h.DsMdStatus(),
		"varOptMd":   h.VarOptMd(),
	}
}
