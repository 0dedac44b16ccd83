// Package logging builds the process logger and helpers for structured error fields.
package logging

import (
	"context"
	"fmt"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap logger. format is "json" (production encoder) or "console" (development).
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	var cfg zap.Config
	switch format {
	case "", "json":
		cfg = zap.NewProductionConfig()
	case "console":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("log format %q: want json or console", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// ErrorFields returns zap fields for err, flattening oops code and context when present.
func ErrorFields(err error) []zap.Field {
	fields := []zap.Field{zap.Error(err)}
	oe, ok := oops.AsOops(err)
	if !ok {
		return fields
	}
	if code := oe.Code(); code != nil && fmt.Sprint(code) != "" {
		fields = append(fields, zap.Any("code", code))
	}
	if c := oe.Context(); len(c) > 0 {
		fields = append(fields, zap.Any("context", c))
	}
	return fields
}

// Error logs err at error level with ErrorFields.
func Error(log *zap.Logger, msg string, err error, fields ...zap.Field) {
	log.Error(msg, append(fields, ErrorFields(err)...)...)
}

// WithTrace adds trace_id and span_id of the active span in ctx, if any.
func WithTrace(ctx context.Context, log *zap.Logger) *zap.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return log
	}
	return log.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}
