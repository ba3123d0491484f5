package trpt

import "errors"

// Sentinel errors returned by Decode, the mutators and Lookup. They are always
// wrapped with context; match them with errors.Is.
var (
	// ErrTruncatedBuffer means a header extends past the end of the buffer.
	ErrTruncatedBuffer = errors.New("trpt: truncated buffer")

	// ErrInconsistentLength means a length or discriminant field holds a value
	// the decoder cannot lay out (shim length below the fixed part, IP version
	// disagreeing with the ethertype, unknown encapsulated protocol).
	ErrInconsistentLength = errors.New("trpt: inconsistent length")

	// ErrAddressFamilyMismatch means an IPv4 address was given for an IPv6
	// header or vice versa.
	ErrAddressFamilyMismatch = errors.New("trpt: address family mismatch")

	// ErrUnsupportedForDropReport means a packet-report mutator was called on
	// a drop report.
	ErrUnsupportedForDropReport = errors.New("trpt: unsupported for drop report")

	// ErrMalformedAddressLiteral means a MAC or IP string did not parse.
	ErrMalformedAddressLiteral = errors.New("trpt: malformed address literal")

	// ErrFieldNotFound means a dotted path does not resolve in the structured value.
	ErrFieldNotFound = errors.New("trpt: field not found")
)
