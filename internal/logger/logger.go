package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps the zap logger used by every pipeline stage.
type Logger struct {
	*zap.Logger
}

// NewLogger creates a JSON logger writing to stderr at info level, leaving stdout to reports.
func NewLogger() (*Logger, error) {
	return newLogger(zap.NewProductionConfig(), zapcore.InfoLevel)
}

// NewDevelopmentLogger creates a human readable console logger at debug level.
func NewDevelopmentLogger() (*Logger, error) {
	return newLogger(zap.NewDevelopmentConfig(), zapcore.DebugLevel)
}

// NewNopLogger returns a logger that discards everything. Used by tests and library callers
// that do not care about stage logs.
func NewNopLogger() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

func newLogger(config zap.Config, level zapcore.Level) (*Logger, error) {
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(level)

	zapLogger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{
		Logger: zapLogger,
	}, nil
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	if l.Logger != nil {
		return l.Logger.Sync()
	}

	return nil
}
