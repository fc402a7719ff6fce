// Package logging builds the zap loggers used by the CLI.
//
// Library packages take a *zap.Logger option and default to zap.NewNop(), so
// only command entry points construct real loggers.
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/roach88/typefn/internal/errors"
)

// New returns a logger writing to stderr at level ("debug", "info", "warn",
// "error"). json selects structured JSON output over the console encoder.
func New(level string, json bool) (*zap.Logger, error) {
	return NewWithWriter(level, json, os.Stderr)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(level string, json bool, w io.Writer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, errors.WithHint(
			errors.Wrapf(err, "log level %q", level),
			"use debug, info, warn or error",
		)
	}

	var enc zapcore.Encoder
	if json {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(cfg)
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		enc = zapcore.NewConsoleEncoder(cfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), lvl)
	return zap.New(core), nil
}
