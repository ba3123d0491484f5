// Package core defines core types.
package core

// Labels represents key-value metadata attached by parsers and the flow index.
type Labels map[string]string

// Label naming constants following {component}.{field} convention.
const (
	LabelTrptKind     = "trpt.kind"      // "packet" or "drop"
	LabelTrptInType   = "trpt.in_type"   // Report header in-type (decimal)
	LabelTrptNodeID   = "trpt.node_id"   // Reporting node (decimal)
	LabelTrptSeqNo    = "trpt.seq_no"    // 22-bit sequence number (decimal)
	LabelTrptDomainID = "trpt.domain_id" // Domain specific id (decimal)
	LabelTrptKey      = "trpt.key"       // Correlation key

	// Packet reports only
	LabelTrptOrigMAC   = "trpt.orig_mac"
	LabelTrptHops      = "trpt.hops" // Comma-separated, most recent first
	LabelTrptIPVersion = "trpt.ip_version"
	LabelTrptDstPort   = "trpt.dst_port"

	// Drop reports only
	LabelTrptDropCount     = "trpt.drop_count"
	LabelTrptDropTimestamp = "trpt.drop_timestamp"

	// Flow index annotations
	LabelFlowReports   = "flow.reports"    // Reports seen for trpt.key so far
	LabelFlowFirstSeen = "flow.first_seen" // RFC 3339 timestamp of the first report
)
