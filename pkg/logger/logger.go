// Package logger wraps zap's sugared logger behind the key/value Logger
// interface the rest of the engine depends on. Narrower per-package views
// are derived from it in internal/logging.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger logs a message with alternating key/value context pairs, the way
// zap's *w methods take them.
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Debug(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})
}

var levels = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
}

// New builds a production JSON logger at the given level. Unknown level
// strings fall back to info; config validation rejects them before this
// runs, so the fallback only matters for direct callers in tests.
func New(level string) Logger {
	config := zap.NewProductionConfig()

	lvl, ok := levels[level]
	if !ok {
		lvl = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.EncoderConfig = encoderConfig()

	z, err := config.Build()
	if err != nil {
		panic(err)
	}
	return &zapLogger{sugar: z.Sugar()}
}

// encoderConfig names the JSON keys log pipelines index on; timestamps are
// ISO8601 so audit rows and log lines sort the same way.
func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

func (l *zapLogger) Debug(msg string, fields ...interface{}) { l.sugar.Debugw(msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...interface{})  { l.sugar.Infow(msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...interface{})  { l.sugar.Warnw(msg, fields...) }
func (l *zapLogger) Error(msg string, fields ...interface{}) { l.sugar.Errorw(msg, fields...) }
func (l *zapLogger) Fatal(msg string, fields ...interface{}) { l.sugar.Fatalw(msg, fields...) }
