// Package logging builds the broker's structured logger, a thin
// wrapper over zap configured for both human-readable development
// output and JSON production output.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level names accepted in broker configuration.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// New builds a *zap.Logger. development=true switches to a
// console-friendly encoder with colored level names, matching what a
// developer running the broker locally wants to see; production builds
// JSON output suitable for log aggregation. In both modes the minimum
// level is parsed from level.
func New(level string, development bool) (*zap.Logger, error) {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}

	zapLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg.Level = zapLevel

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger, nil
}

// NewNop returns a logger that discards everything, used in tests and
// as the library-level default before a real logger is wired in.
func NewNop() *zap.Logger {
	return zap.NewNop()
}
