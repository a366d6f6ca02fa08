// Package components defines ECS components for deme processors.
package components

import "github.com/pthm-cable/deme/hardware"

// Core binds a processor entity to its grid index and virtual hardware.
type Core struct {
	Index int                 // Linear grid index, y*width + x
	CPU   *hardware.Processor // Execution engine for this cell
}

// KnockedOut tags a processor that is skipped when the deme advances.
// Knocked-out processors still receive and queue messages.
type KnockedOut struct{}
