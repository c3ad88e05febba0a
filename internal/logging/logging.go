package logging

import (
	corelogger "github.com/vigilops/vigil-core/pkg/logger"
	"go.uber.org/zap"
)

// Logger is the minimal logging interface used across the engine. Internal
// packages depend on this rather than pkg/logger so test doubles stay cheap
// and the concrete zap construction lives in cmd/.
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Debug(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})
}

// NewNop returns a no-op Logger for tests and small tools.
func NewNop() Logger {
	return &zapAdapter{logger: zap.NewNop()}
}

// FromCoreLogger wraps the project core logger (pkg/logger.Logger) and
// returns an internal/logging.Logger adapter.
func FromCoreLogger(core corelogger.Logger) Logger {
	if core == nil {
		return NewNop()
	}
	return &coreAdapter{core: core}
}

type coreAdapter struct {
	core corelogger.Logger
}

func (c *coreAdapter) Info(msg string, fields ...interface{})  { c.core.Info(msg, fields...) }
func (c *coreAdapter) Error(msg string, fields ...interface{}) { c.core.Error(msg, fields...) }
func (c *coreAdapter) Warn(msg string, fields ...interface{})  { c.core.Warn(msg, fields...) }
func (c *coreAdapter) Debug(msg string, fields ...interface{}) { c.core.Debug(msg, fields...) }
func (c *coreAdapter) Fatal(msg string, fields ...interface{}) { c.core.Fatal(msg, fields...) }

type zapAdapter struct {
	logger *zap.Logger
}

func (z *zapAdapter) Info(msg string, fields ...interface{}) {
	z.logger.Sugar().Infow(msg, fields...)
}

func (z *zapAdapter) Error(msg string, fields ...interface{}) {
	z.logger.Sugar().Errorw(msg, fields...)
}

func (z *zapAdapter) Warn(msg string, fields ...interface{}) {
	z.logger.Sugar().Warnw(msg, fields...)
}

func (z *zapAdapter) Debug(msg string, fields ...interface{}) {
	z.logger.Sugar().Debugw(msg, fields...)
}

func (z *zapAdapter) Fatal(msg string, fields ...interface{}) {
	z.logger.Sugar().Fatalw(msg, fields...)
}
