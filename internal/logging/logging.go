// Package logging constructs named zap loggers for fleetdeck components.
package logging

import (
	"os"

	"go.uber.org/zap"
)

// New creates a named production logger. When FLEETDECK_DEBUG is set, a
// development logger with debug level is returned instead.
func New(name string) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if os.Getenv("FLEETDECK_DEBUG") != "" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger.Named(name)
}

// Nop returns a logger that discards everything. Useful in tests.
func Nop() *zap.Logger {
	return zap.NewNop()
}
