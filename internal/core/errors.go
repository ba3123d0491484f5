// Package core defines sentinel errors.
package core

import "errors"

// Sentinel errors shared by the collector stages. Wrap them with context and
// match with errors.Is.
var (
	// Pipeline errors
	ErrPipelineStopped = errors.New("trpt: pipeline stopped")

	// Frame decoding errors
	ErrPacketTooShort   = errors.New("trpt: packet too short")
	ErrUnsupportedProto = errors.New("trpt: unsupported protocol")

	// Parser errors
	ErrNotTelemetryReport = errors.New("trpt: not a telemetry report")

	// Plugin errors
	ErrPluginNotFound   = errors.New("trpt: plugin not found")
	ErrPluginInitFailed = errors.New("trpt: plugin init failed")

	// Configuration errors
	ErrConfigInvalid = errors.New("trpt: invalid configuration")
)
