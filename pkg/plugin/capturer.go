// Package plugin defines plugin interfaces.
package plugin

import (
	"context"

	"firestige.xyz/trpt/internal/core"
)

// Capturer produces raw frames. Capture blocks until the source is exhausted
// or ctx is cancelled; it returns nil at a clean end of input.
type Capturer interface {
	Plugin
	Capture(ctx context.Context, output chan<- core.RawPacket) error
	Stats() CaptureStats
}

// CaptureStats represents capture statistics.
type CaptureStats struct {
	PacketsReceived uint64 // Frames read from the source
	PacketsFiltered uint64 // Frames rejected by the capture filter
	PacketsDropped  uint64 // Frames not delivered (cancelled or unreadable)
}
