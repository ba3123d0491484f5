// Package plugin defines plugin interfaces.
package plugin

import "firestige.xyz/trpt/internal/core"

// Processor annotates or filters output packets before they are reported.
type Processor interface {
	Plugin
	Process(pkt *core.OutputPacket) (keep bool)
}
