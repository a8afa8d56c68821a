// Package logger builds the zap loggers used by the partialgen command.
package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures New.
type Options struct {
	// JSON selects structured JSON output for machine consumption.
	JSON bool
	// Debug lowers the level to debug.
	Debug bool
	// Color colorizes levels of the console encoder.
	Color bool
	// Output receives the log lines. Defaults to stderr.
	Output io.Writer
}

// New returns a logger writing to opts.Output. Console output is kept
// minimal: no timestamps, no caller.
func New(opts Options) *zap.Logger {
	level := zap.InfoLevel
	if opts.Debug {
		level = zap.DebugLevel
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	var enc zapcore.Encoder
	if opts.JSON {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(cfg)
	} else {
		enc = newMinimalEncoder(opts.Color)
	}
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(out), level))
}

// Nop returns a logger discarding everything.
func Nop() *zap.Logger {
	return zap.NewNop()
}

func newMinimalEncoder(color bool) zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		LevelKey:         "level",
		MessageKey:       "msg",
		NameKey:          "logger",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: " ",
	}
	if color {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return zapcore.NewConsoleEncoder(cfg)
}
