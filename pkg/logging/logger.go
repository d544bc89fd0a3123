// Package logging provides structured JSON logging for the orrery server and
// client, with correlation IDs carried through context and redaction of
// credential-like attributes.
package logging

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Environment variables read by NewLogger and NewLoggerTo
const (
	EnvLogLevel  = "ORRERY_LOG_LEVEL"
	EnvLogFormat = "ORRERY_LOG_FORMAT"
)

// Logger is a slog.Logger whose level methods take a context. Entries logged
// under a context carrying a correlation ID are tagged with it.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger writing to stdout. The level comes from
// ORRERY_LOG_LEVEL (DEBUG, INFO, WARN, ERROR) and defaults to INFO.
func NewLogger() *Logger {
	return NewLoggerTo(os.Stdout)
}

// NewLoggerTo creates a Logger writing to w, configured from the environment.
// ORRERY_LOG_FORMAT=text selects key=value output instead of JSON.
func NewLoggerTo(w io.Writer) *Logger {
	text := strings.EqualFold(os.Getenv(EnvLogFormat), "text")
	return newLogger(w, levelFromEnv(), text)
}

// NewLoggerWithWriter creates a Logger writing JSON to w at the given level.
func NewLoggerWithWriter(w io.Writer, level slog.Leveler) *Logger {
	return newLogger(w, level, false)
}

// Discard returns a Logger that drops everything
func Discard() *Logger {
	return newLogger(io.Discard, slog.LevelError+1, false)
}

func newLogger(w io.Writer, level slog.Leveler, text bool) *Logger {
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: redact}
	var h slog.Handler
	if text {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return &Logger{slog.New(correlationHandler{h})}
}

// WithComponent returns a child logger tagging every entry with component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{l.Logger.With("component", component)}
}

func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.Log(ctx, slog.LevelDebug, msg, args...)
}

func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.Log(ctx, slog.LevelInfo, msg, args...)
}

func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.Log(ctx, slog.LevelWarn, msg, args...)
}

// Error logs msg at error level with err, when not nil, under the "error" key.
func (l *Logger) Error(ctx context.Context, msg string, err error, args ...any) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	l.Log(ctx, slog.LevelError, msg, args...)
}

// correlationHandler adds the context's correlation ID to each record
type correlationHandler struct {
	slog.Handler
}

func (h correlationHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := GetCorrelationID(ctx); id != "" {
		r.AddAttrs(slog.String("correlation_id", id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h correlationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return correlationHandler{h.Handler.WithAttrs(attrs)}
}

func (h correlationHandler) WithGroup(name string) slog.Handler {
	return correlationHandler{h.Handler.WithGroup(name)}
}

type correlationIDKey struct{}

// WithCorrelationID returns ctx carrying id. An empty id is replaced with a
// generated one.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = GenerateCorrelationID()
	}
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// GetCorrelationID returns the correlation ID in ctx, or "".
func GetCorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}

// GenerateCorrelationID returns 16 random hex characters.
func GenerateCorrelationID() string {
	var b [8]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// levelFromEnv parses ORRERY_LOG_LEVEL, falling back to INFO.
func levelFromEnv() slog.Level {
	v := strings.TrimSpace(os.Getenv(EnvLogLevel))
	if strings.EqualFold(v, "warning") {
		return slog.LevelWarn
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// redactedFragments are key substrings whose values never reach the log
var redactedFragments = [...]string{
	"password", "passwd", "pwd",
	"token", "auth", "secret",
	"apikey", "api_key", "private",
	"cookie", "session",
}

func redact(_ []string, a slog.Attr) slog.Attr {
	key := strings.ToLower(a.Key)
	for _, f := range redactedFragments {
		if strings.Contains(key, f) {
			return slog.String(a.Key, "[REDACTED]")
		}
	}
	return a
}

// WrapError wraps err with a formatted context message, keeping it
// reachable through errors.Is and errors.As.
func WrapError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if len(args) > 0 {
		format = fmt.Sprintf(format, args...)
	}
	return fmt.Errorf("%s: %w", format, err)
}
