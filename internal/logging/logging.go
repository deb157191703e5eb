package logging

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey struct{}

var sugar atomic.Pointer[zap.SugaredLogger]

func init() {
	sugar.Store(zap.NewNop().Sugar())
}

// Setup builds the process logger. Format is "json" or "console".
func Setup(level, format string) error {
	var cfg zap.Config
	if strings.EqualFold(format, "json") {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	sugar.Store(l.Sugar())
	return nil
}

// Use installs an existing zap logger (tests use zaptest/observer cores).
func Use(l *zap.Logger) {
	sugar.Store(l.WithOptions(zap.AddCallerSkip(1)).Sugar())
}

// Disable turns off all logging
func Disable() {
	sugar.Store(zap.NewNop().Sugar())
}

// Sync flushes buffered entries.
func Sync() {
	_ = sugar.Load().Sync()
}

// Infof logs a formatted info message
func Infof(format string, v ...any) {
	sugar.Load().Infof(format, v...)
}

// Warnf logs a formatted warning message
func Warnf(format string, v ...any) {
	sugar.Load().Warnf(format, v...)
}

// Errorf logs a formatted error message
func Errorf(format string, v ...any) {
	sugar.Load().Errorf(format, v...)
}

// Debugf logs a formatted debug message
func Debugf(format string, v ...any) {
	sugar.Load().Debugf(format, v...)
}

// NewContext returns a context whose Logger carries the given key/value pairs.
func NewContext(ctx context.Context, kv ...any) context.Context {
	fields := append(fieldsFrom(ctx), kv...)
	return context.WithValue(ctx, ctxKey{}, fields)
}

func fieldsFrom(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	if f, ok := ctx.Value(ctxKey{}).([]any); ok {
		return f[:len(f):len(f)]
	}
	return nil
}

// Logger is embedded in logic structs
type Logger struct {
	fields []any
}

// WithContext creates a Logger that carries the fields attached by NewContext
func WithContext(ctx context.Context) Logger {
	return Logger{fields: fieldsFrom(ctx)}
}

func (l Logger) s() *zap.SugaredLogger {
	if len(l.fields) == 0 {
		return sugar.Load()
	}
	return sugar.Load().With(l.fields...)
}

// Infof logs a formatted info message
func (l Logger) Infof(format string, v ...any) {
	l.s().Infof(format, v...)
}

// Warnf logs a formatted warning message
func (l Logger) Warnf(format string, v ...any) {
	l.s().Warnf(format, v...)
}

// Errorf logs a formatted error message
func (l Logger) Errorf(format string, v ...any) {
	l.s().Errorf(format, v...)
}

// Debugf logs a formatted debug message
func (l Logger) Debugf(format string, v ...any) {
	l.s().Debugf(format, v...)
}
