// Package logger builds the zap loggers used by the console and adminctl.
// Components receive a *zap.Logger by injection and never touch the global one.
package logger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format selects the encoder.
type Format string

const (
	// FormatJSON writes one JSON object per line (production config).
	FormatJSON Format = "json"
	// FormatText writes human-readable console lines (development config).
	FormatText Format = "text"
)

// Options contains logger configuration.
type Options struct {
	Level       string
	Format      Format
	OutputPaths []string
	Service     string
	Version     string
}

// DefaultOptions returns options for local runs.
func DefaultOptions() Options {
	return Options{
		Level:       "info",
		Format:      FormatText,
		OutputPaths: []string{"stderr"},
	}
}

// New builds a zap logger. JSON format starts from the production config,
// text format from the development config.
func New(opts Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level)))
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	var config zap.Config
	switch opts.Format {
	case FormatJSON:
		config = zap.NewProductionConfig()
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	case FormatText, "":
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	config.Level = zap.NewAtomicLevelAt(level)
	if len(opts.OutputPaths) > 0 {
		config.OutputPaths = opts.OutputPaths
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if opts.Service != "" {
		logger = logger.With(zap.String("service", opts.Service))
	}
	if opts.Version != "" {
		logger = logger.With(zap.String("version", opts.Version))
	}
	return logger, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CONTEXT PROPAGATION
// ══════════════════════════════════════════════════════════════════════════════

type ctxKey struct{}

// WithContext stores a request-scoped logger in ctx.
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the request-scoped logger, or fallback when none is set.
func FromContext(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	return fallback
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN FIELDS
// ══════════════════════════════════════════════════════════════════════════════

func RecordID(id string) zap.Field      { return zap.String("record_id", id) }
func RecordKind(kind string) zap.Field  { return zap.String("record_kind", kind) }
func SessionID(id string) zap.Field     { return zap.String("session_id", id) }
func Fingerprint(fp string) zap.Field   { return zap.String("token_fp", fp) }
func Role(role string) zap.Field        { return zap.String("role", role) }
func RequestID(id string) zap.Field     { return zap.String("request_id", id) }
func Component(name string) zap.Field   { return zap.String("component", name) }
func Operation(name string) zap.Field   { return zap.String("operation", name) }
func Latency(d time.Duration) zap.Field { return zap.Duration("latency", d) }
func HTTPStatus(code int) zap.Field     { return zap.Int("status", code) }
func Path(p string) zap.Field           { return zap.String("path", p) }
func Count(n int) zap.Field             { return zap.Int("count", n) }
