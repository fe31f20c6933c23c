package main

import (
	"context"
	"os/signal"

	"toolbroker/internal/signals"
)

// shutdownSignal returns a channel closed on the first shutdown signal and a
// func that stops listening. Tests replace it to stop "serve" without signals.
var shutdownSignal = func() (<-chan struct{}, func()) {
	ctx, stop := signal.NotifyContext(context.Background(), signals.ShutdownSignals()...)
	return ctx.Done(), stop
}
