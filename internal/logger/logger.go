// Package logger builds the zap logger and threads a request-scoped copy through contexts.
package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Level string
	Env   string
}

// New returns a JSON production logger for env "prod" and a console logger otherwise.
func New(cfg Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Env == "prod" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

type ctxKey struct{}

func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the request logger, or fallback when none was attached.
// Trace and span ids are added when the context carries a valid span.
func FromContext(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	l, ok := ctx.Value(ctxKey{}).(*zap.Logger)
	if !ok || l == nil {
		l = fallback
	}
	if l == nil {
		l = zap.NewNop()
	}

	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if spanCtx.IsValid() {
		l = l.With(
			zap.String("trace_id", spanCtx.TraceID().String()),
			zap.String("span_id", spanCtx.SpanID().String()),
		)
	}
	return l
}

func Info(ctx context.Context, l *zap.Logger, msg string, fields ...zap.Field) {
	FromContext(ctx, l).WithOptions(zap.AddCallerSkip(1)).Info(msg, fields...)
}

func Warn(ctx context.Context, l *zap.Logger, msg string, fields ...zap.Field) {
	FromContext(ctx, l).WithOptions(zap.AddCallerSkip(1)).Warn(msg, fields...)
}

func Error(ctx context.Context, l *zap.Logger, msg string, fields ...zap.Field) {
	FromContext(ctx, l).WithOptions(zap.AddCallerSkip(1)).Error(msg, fields...)
}

func Debug(ctx context.Context, l *zap.Logger, msg string, fields ...zap.Field) {
	FromContext(ctx, l).WithOptions(zap.AddCallerSkip(1)).Debug(msg, fields...)
}
