// Package logging builds the process-wide zap logger.
package logging

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const otelLoggerName = "github.com/fyrsmithlabs/protocold"

// Options configures logger construction.
type Options struct {
	// Level is one of trace, debug, info, warn, error.
	Level string
	// Format is json or console.
	Format string
	// OTelProvider, when non-nil, tees every record to an OpenTelemetry
	// log exporter alongside stderr.
	OTelProvider log.LoggerProvider
}

// New builds a zap logger writing to stderr.
func New(opts Options) (*zap.Logger, error) {
	level, err := LevelFromString(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}

	core := zapcore.NewCore(newEncoder(opts.Format), zapcore.Lock(os.Stderr), level)
	if opts.OTelProvider != nil {
		otelCore := otelzap.NewCore(otelLoggerName, otelzap.WithLoggerProvider(opts.OTelProvider))
		core = zapcore.NewTee(core, otelCore)
	}

	return zap.New(core, zap.AddCaller()), nil
}

func newEncoder(format string) zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == "console" {
		return zapcore.NewConsoleEncoder(encoderCfg)
	}
	return zapcore.NewJSONEncoder(encoderCfg)
}

// Sync flushes buffered log entries. Sync errors on terminal devices are
// expected and swallowed.
func Sync(logger *zap.Logger) error {
	err := logger.Sync()
	if err == nil {
		return nil
	}
	if errors.Is(err, syscall.ENOTTY) || errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.EBADF) {
		return nil
	}
	return err
}
