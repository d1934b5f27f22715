// Package observability builds the structured loggers shared by every dungeon
// subsystem.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/dungeon/internal/config"
)

// formats maps a logging.format value to its base zap configuration. JSON keeps
// zap's production sampling so per-tick messages cannot flood the output.
var formats = map[string]func() zap.Config{
	"json": zap.NewProductionConfig,
	"console": func() zap.Config {
		c := zap.NewDevelopmentConfig()
		c.Sampling = nil
		return c
	},
}

// NewLogger builds the process logger from cfg.
//
// Precondition: cfg passed config validation.
// Postcondition: Returns a logger at cfg.Level with ISO8601 timestamps, or an error.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	base, ok := formats[cfg.Format]
	if !ok {
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}
	zc := base()
	zc.Level = level
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zc.Build()
}

// ForSession returns a child of logger naming the subsystem and tagging every
// entry with the session id.
func ForSession(logger *zap.Logger, subsystem, sessionID string) *zap.Logger {
	return logger.Named(subsystem).With(zap.String("session", sessionID))
}
