//go:build unix

// Package signals lists the OS signals that stop a serving broker.
package signals

import (
	"os"
	"syscall"
)

// ShutdownSignals returns the signals that stop the gateway: Interrupt and
// SIGTERM from container runtimes and process managers.
func ShutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM}
}
