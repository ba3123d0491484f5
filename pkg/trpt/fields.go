package trpt

import "encoding/json"

// Fields returns the structured value of r: one nested map per header under
// its stable key, plus "payload" holding the trailing bytes as hex. A packet
// report carries protoHdr and no dropHdr; a drop report the reverse.
func (r *Report) Fields() map[string]any {
	m := map[string]any{
		"telemRptHdr": r.header.fields(),
		"payload":     hexString(r.buf[r.payload:]),
	}
	r.body.fields(m)
	return m
}

// MarshalJSON renders Fields as a JSON object.
func (r *Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Fields())
}
