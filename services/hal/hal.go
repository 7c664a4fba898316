// Package hal is the service entry point. It owns no device logic of its
// own; it wires a bus connection and a resource registry into the core
// loop and blocks until the context is cancelled.
package hal

import (
	"context"

	"gaugecode-go/bus"
	"gaugecode-go/services/hal/core"

	// Device builders self-register via init.
	_ "gaugecode-go/services/hal/devices/max1704x"
)

// Run starts the HAL service and blocks until ctx is cancelled.
func Run(ctx context.Context, conn *bus.Connection, reg core.ResourceRegistry) {
	core.NewHAL(conn, core.Resources{Reg: reg}).Run(ctx)
}
