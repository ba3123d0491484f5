// Package plugin defines plugin interfaces.
package plugin

import "firestige.xyz/trpt/internal/core"

// Parser turns a decoded UDP datagram into an application value.
type Parser interface {
	Plugin
	CanHandle(pkt *core.DecodedPacket) bool
	Handle(pkt *core.DecodedPacket) (payload any, labels core.Labels, err error)
}
