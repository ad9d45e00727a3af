// Package logging builds the zap loggers used by the CLI and handed to the
// graph and difference packages.
package logging

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the logger flavour
type Config struct {
	// Level is debug, info, warn, error or off
	Level string

	// Development switches to the human-readable console encoder
	Development bool
}

// New builds a logger writing to w. Level "off" returns a no-op logger.
func New(cfg Config, w io.Writer) (*zap.Logger, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Level))
	if name == "off" {
		return zap.NewNop(), nil
	}
	if name == "" {
		name = "info"
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var encoder zapcore.Encoder
	opts := []zap.Option{zap.AddCaller()}
	if cfg.Development {
		ec := zap.NewDevelopmentEncoderConfig()
		encoder = zapcore.NewConsoleEncoder(ec)
		opts = append(opts, zap.Development())
	} else {
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(ec)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), level)
	return zap.New(core, opts...), nil
}

// Must is New that falls back to a no-op logger on error
func Must(cfg Config, w io.Writer) *zap.Logger {
	logger, err := New(cfg, w)
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
