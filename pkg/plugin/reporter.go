// Package plugin defines plugin interfaces.
package plugin

import (
	"context"

	"firestige.xyz/trpt/internal/core"
)

// Reporter writes output packets somewhere.
type Reporter interface {
	Plugin
	Report(ctx context.Context, pkt *core.OutputPacket) error
	Flush(ctx context.Context) error
}
