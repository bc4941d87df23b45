package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
)

// withShutdownSignals returns a context cancelled on SIGINT or SIGTERM.
func withShutdownSignals(parent context.Context, logger *logrus.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.WithField("signal", sig.String()).Info("Shutdown signal received, gracefully shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
