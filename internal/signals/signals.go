//go:build !unix

// Package signals lists the OS signals that stop a serving broker.
package signals

import "os"

// ShutdownSignals returns the signals that stop the gateway. Only Interrupt
// exists on non-Unix platforms.
func ShutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
