// Package obslog constructs the process-wide zap logger. Every node binary
// writes diagnostics exclusively to stderr: stdout is reserved for the
// wire protocol and must never carry a log line.
package obslog

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap.SugaredLogger writing JSON lines to stderr. The level
// is read from LOG_LEVEL (debug|info|warn|error), defaulting to info; this
// is the only environment variable any binary in this repository consults,
// and it affects only log verbosity, never protocol behavior.
func New() *zap.SugaredLogger {
	level := zapcore.InfoLevel
	if err := level.Set(os.Getenv("LOG_LEVEL")); err != nil {
		level = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger := zap.Must(cfg.Build())
	return logger.Sugar()
}
