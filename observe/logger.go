package observe

import (
	"context"
	"io"
	"os"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents a logging level.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLogLevel parses a string log level.
func ParseLogLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// zapLogger adapts a zap.Logger to Logger.
type zapLogger struct {
	z *zap.Logger
}

// NewLogger creates a JSON logger writing to stderr at the given level.
func NewLogger(level string) Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter creates a JSON logger writing to w.
func NewLoggerWithWriter(level string, w io.Writer) Logger {
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
	})
	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), ParseLogLevel(level).zapLevel())
	return &zapLogger{z: zap.New(core)}
}

// NewZapLogger wraps an existing zap logger.
func NewZapLogger(z *zap.Logger) Logger {
	if z == nil {
		return NopLogger()
	}
	return &zapLogger{z: z}
}

func (l *zapLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, zapcore.InfoLevel, msg, fields)
}

func (l *zapLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, zapcore.WarnLevel, msg, fields)
}

func (l *zapLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, zapcore.ErrorLevel, msg, fields)
}

func (l *zapLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, zapcore.DebugLevel, msg, fields)
}

// With returns a logger carrying fields on every entry.
func (l *zapLogger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	return &zapLogger{z: l.z.With(toZap(fields)...)}
}

// WithOp returns a logger scoped to a cache operation.
func WithOp(l Logger, meta OpMeta) Logger {
	fields := []Field{{Key: "cache.op", Value: meta.Op}}
	if meta.Key != "" {
		fields = append(fields, Field{Key: "cache.key", Value: meta.Key})
	}
	if meta.Namespace != "" {
		fields = append(fields, Field{Key: "cache.namespace", Value: meta.Namespace})
	}
	if meta.Backend != "" {
		fields = append(fields, Field{Key: "cache.backend", Value: meta.Backend})
	}
	return l.With(fields...)
}

func (l *zapLogger) log(ctx context.Context, level zapcore.Level, msg string, fields []Field) {
	ce := l.z.Check(level, msg)
	if ce == nil {
		return
	}

	zf := toZap(fields)
	if ctx != nil {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			zf = append(zf,
				zap.String("trace_id", sc.TraceID().String()),
				zap.String("span_id", sc.SpanID().String()),
			)
		}
	}
	ce.Write(zf...)
}

func toZap(fields []Field) []zap.Field {
	zf := make([]zap.Field, 0, len(fields)+2)
	for _, f := range fields {
		if isRedactedField(f.Key) {
			zf = append(zf, zap.String(f.Key, "[REDACTED]"))
			continue
		}
		if err, ok := f.Value.(error); ok {
			zf = append(zf, zap.String(f.Key, err.Error()))
			continue
		}
		zf = append(zf, zap.Any(f.Key, f.Value))
	}
	return zf
}

var redacted = func() map[string]bool {
	m := make(map[string]bool, len(RedactedFields))
	for _, k := range RedactedFields {
		m[k] = true
	}
	return m
}()

// isRedactedField returns true if the field should be redacted.
func isRedactedField(key string) bool {
	return redacted[key]
}

// Ensure zapLogger implements Logger
var _ Logger = (*zapLogger)(nil)
