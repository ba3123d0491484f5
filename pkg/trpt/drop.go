package trpt

// DropHeader is the 32-byte drop record: timestamp, drop count, 8 reserved
// bytes and a 16-byte drop key computed by the reporting device.
type DropHeader []byte

const (
	dropTimestamp = 0
	dropCount     = 4
	dropKey       = 16
	dropKeyLen    = 16
)

// Timestamp returns the 32-bit drop timestamp.
func (h DropHeader) Timestamp() uint32 { return uint32(uintBE(h, dropTimestamp, 4)) }

// DropCount returns the number of packets dropped.
func (h DropHeader) DropCount() uint32 { return uint32(uintBE(h, dropCount, 4)) }

// DropKey returns the stored key as 32 lower-case hex digits.
func (h DropHeader) DropKey() string { return hexString(h[dropKey : dropKey+dropKeyLen]) }

func (h DropHeader) fields() map[string]any {
	return map[string]any{
		"timestamp": h.Timestamp(),
		"dropKey":   h.DropKey(),
		"dropCount": h.DropCount(),
	}
}
