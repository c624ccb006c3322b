// Package logging builds the zap loggers of xdpfn packages.
//
// Each package creates its logger once, next to the package doc:
//
//	var logger = logging.New("Fnmp")
//
// XDPFN_LOG sets the default level, and XDPFN_LOG_Fnmp overrides it for one package.
// XDPFN_LOG_FORMAT=console selects human-readable output; the default is JSON on stderr.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvFormat selects the output encoding, "json" or "console".
const EnvFormat = "XDPFN_LOG_FORMAT"

var root = zap.New(newCore(os.Getenv(EnvFormat), zapcore.Lock(os.Stderr)))

// newCore creates a core that passes every level; package loggers raise the minimum.
func newCore(format string, w zapcore.WriteSyncer) zapcore.Core {
	ec := zap.NewProductionEncoderConfig()
	var enc zapcore.Encoder
	if format == "console" {
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(ec)
	} else {
		enc = zapcore.NewJSONEncoder(ec)
	}
	return zapcore.NewCore(enc, w, zap.DebugLevel)
}

// Named creates a named logger that ignores package levels.
func Named(pkg string) *zap.Logger {
	return root.Named(pkg)
}

// New creates a package logger whose minimum level follows GetLevel(pkg).
func New(pkg string) *zap.Logger {
	return Named(pkg).WithOptions(zap.IncreaseLevel(GetLevel(pkg).al))
}
