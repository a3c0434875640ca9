// Package logger builds the zap logger used by the auth resolver, health
// monitor, reminder poller and queue workers.  HTTP handlers keep Echo's
// own logging; everything that runs in the background logs through this.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a zap logger configured for the given environment.  "dev"
// yields a human-readable console encoder; everything else emits JSON with
// ISO-8601 timestamps.  The service and environment are attached as fields
// so log aggregation can tell storefront instances apart.
func New(env string) *zap.Logger {
	var encoder zapcore.Encoder
	level := zap.InfoLevel
	if env == "dev" {
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		level = zap.DebugLevel
	} else {
		ec := zap.NewProductionEncoderConfig()
		ec.TimeKey = "time"
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		ec.EncodeLevel = zapcore.LowercaseLevelEncoder
		encoder = zapcore.NewJSONEncoder(ec)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), zap.NewAtomicLevelAt(level))
	return zap.New(core, zap.AddCaller()).With(
		zap.String("service", "storefront"),
		zap.String("environment", env),
	)
}
