package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// LogLevel represents logging levels
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Context keys used to carry correlation data through call chains
type contextKey string

const (
	RequestIDKey     contextKey = "requestId"
	CorrelationIDKey contextKey = "correlationId"
	SessionIDKey     contextKey = "sessionId"
	DeviceIDKey      contextKey = "deviceId"
)

// Config holds logger configuration
type Config struct {
	Level       LogLevel
	ServiceName string
	Environment string
	Version     string
	Output      io.Writer
	AddSource   bool
}

// DefaultConfig returns a default logger configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		Level:       LevelInfo,
		ServiceName: serviceName,
		Environment: getEnv("ENVIRONMENT", "development"),
		Version:     getEnv("VERSION", "unknown"),
		Output:      os.Stdout,
		AddSource:   false,
	}
}

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	*slog.Logger
}

// New creates a new Logger instance with a JSON handler
func New(config *Config) *Logger {
	level := slog.LevelInfo
	switch config.Level {
	case LevelDebug:
		level = slog.LevelDebug
	case LevelWarn:
		level = slog.LevelWarn
	case LevelError:
		level = slog.LevelError
	}

	output := config.Output
	if output == nil {
		output = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: config.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339Nano))
				}
			}
			return a
		},
	}

	base := slog.New(slog.NewJSONHandler(output, opts)).With(
		"service", config.ServiceName,
		"environment", config.Environment,
		"version", config.Version,
	)

	return &Logger{Logger: base}
}

// SetDefault makes this logger the process-wide slog default
func (l *Logger) SetDefault() {
	slog.SetDefault(l.Logger)
}

func (l *Logger) with(attrs ...any) *Logger {
	return &Logger{Logger: l.Logger.With(attrs...)}
}

// WithContext creates a logger carrying any correlation attributes found in ctx
func (l *Logger) WithContext(ctx context.Context) *Logger {
	attrs := extractContextAttrs(ctx)
	if len(attrs) == 0 {
		return l
	}
	return l.with(attrs...)
}

// WithRequestID adds a request ID to the logger
func (l *Logger) WithRequestID(requestID string) *Logger {
	return l.with("requestId", requestID)
}

// WithCorrelationID adds a correlation ID to the logger
func (l *Logger) WithCorrelationID(correlationID string) *Logger {
	return l.with("correlationId", correlationID)
}

// WithSessionID adds a scan session ID to the logger
func (l *Logger) WithSessionID(sessionID string) *Logger {
	return l.with("sessionId", sessionID)
}

// WithFields adds multiple fields to the logger
func (l *Logger) WithFields(fields map[string]any) *Logger {
	attrs := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		attrs = append(attrs, k, v)
	}
	return l.with(attrs...)
}

// WithError adds an error to the logger
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.with("error", err.Error())
}

// WithComponent adds a component name to the logger
func (l *Logger) WithComponent(component string) *Logger {
	return l.with("component", component)
}

// WithOperation adds an operation name to the logger
func (l *Logger) WithOperation(operation string) *Logger {
	return l.with("operation", operation)
}

// Event logs a business event with structured data
func (l *Logger) Event(ctx context.Context, eventType string, data map[string]any) {
	attrs := []any{
		"eventType", eventType,
		"timestamp", time.Now().UTC().Format(time.RFC3339Nano),
	}
	for k, v := range data {
		attrs = append(attrs, k, v)
	}
	l.WithContext(ctx).Info("Business event", attrs...)
}

// RemoteCall logs an upstream system call
func (l *Logger) RemoteCall(ctx context.Context, operation string, duration time.Duration, success bool) {
	level := slog.LevelDebug
	if !success {
		level = slog.LevelWarn
	}
	l.WithContext(ctx).Log(ctx, level, "Remote call",
		"operation", operation,
		"durationMs", duration.Milliseconds(),
		"success", success,
	)
}

func extractContextAttrs(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	var attrs []any
	for _, key := range []contextKey{RequestIDKey, CorrelationIDKey, SessionIDKey, DeviceIDKey} {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			attrs = append(attrs, string(key), v)
		}
	}
	return attrs
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
