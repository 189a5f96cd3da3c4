// Package logging builds the process-wide zap logger.
package logging

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/parisxmas/lodgeforms/internal/gelf"
)

const serviceName = "lodgeforms"

type Options struct {
	Level    string
	Format   string // "json" or "console"
	GelfAddr string
}

// New returns a logger writing to stdout and, when GelfAddr is set, to a GELF
// UDP endpoint as well. The returned closer releases the GELF socket.
func New(opts Options) (*zap.Logger, func() error, error) {
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}
	if opts.Format != "json" && opts.Format != "console" {
		return nil, nil, fmt.Errorf("log format must be 'json' or 'console', got %q", opts.Format)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(newEncoder(opts.Format), zapcore.Lock(os.Stdout), level),
	}
	closer := func() error { return nil }

	if opts.GelfAddr != "" {
		w, err := gelf.New(opts.GelfAddr, serviceName)
		if err != nil {
			return nil, nil, fmt.Errorf("gelf init: %w", err)
		}
		// GELF always receives JSON so the writer can lift fields.
		cores = append(cores, zapcore.NewCore(newEncoder("json"), w, level))
		closer = w.Close
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)).
		With(zap.String("service", serviceName))
	return logger, closer, nil
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

// Sync flushes the logger, ignoring the EINVAL/ENOTTY that syncing a
// terminal stdout returns on Linux.
func Sync(l *zap.Logger) error {
	err := l.Sync()
	var errno syscall.Errno
	if err != nil && errors.As(err, &errno) && (errno == syscall.EINVAL || errno == syscall.ENOTTY) {
		return nil
	}
	return err
}
