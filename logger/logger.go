// Package logger wraps zerolog with the field conventions used across the
// scribe services: every record carries the component that emitted it and,
// when known, the meeting it concerns.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Logger is a component-scoped structured logger.
type Logger struct {
	zl      zerolog.Logger
	service string
}

type ctxKey string

const (
	ctxTraceID       ctxKey = "trace_id"
	ctxSpanID        ctxKey = "span_id"
	ctxCorrelationID ctxKey = "correlation_id"
	ctxMeetingID     ctxKey = "meeting_id"
)

// New builds a logger from cfg for the named service.
func New(cfg *Config, serviceName string) *Logger {
	return newWithWriter(cfg, serviceName, outputWriter(cfg.Output))
}

func newWithWriter(cfg *Config, serviceName string, out io.Writer) *Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var zl zerolog.Logger
	switch strings.ToLower(cfg.Format) {
	case FormatConsole, FormatPretty:
		zl = zerolog.New(consoleWriter(cfg, serviceName, out))
	default:
		zl = zerolog.New(out)
		if serviceName != "" {
			zl = zl.With().Str(FieldService, serviceName).Logger()
		}
	}
	zl = zl.Level(level)
	if cfg.Timestamp {
		zl = zl.With().Timestamp().Logger()
	}
	if cfg.Caller {
		zl = zl.With().CallerWithSkipFrameCount(3).Logger()
	}
	return &Logger{zl: zl, service: serviceName}
}

// NewDefault returns an info-level console logger.
func NewDefault(serviceName string) *Logger {
	cfg := Config{Format: FormatConsole}
	cfg.ApplyDefaults()
	return New(&cfg, serviceName)
}

// NewNop returns a logger that discards everything. Handy in tests.
func NewNop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// WithComponent tags every record with the component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{zl: l.zl.With().Str(FieldComponent, name).Logger(), service: l.service}
}

// WithMeeting tags every record with the meeting id.
func (l *Logger) WithMeeting(meetingID string) *Logger {
	return &Logger{zl: l.zl.With().Str(FieldMeetingID, meetingID).Logger(), service: l.service}
}

// WithFields returns a child logger carrying the given fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	zc := l.zl.With()
	for k, v := range fields {
		zc = zc.Interface(k, v)
	}
	return &Logger{zl: zc.Logger(), service: l.service}
}

// WithError returns a child logger carrying err.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{zl: l.zl.With().Err(err).Logger(), service: l.service}
}

// WithContext copies correlation values stored by ContextWith* onto the logger.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	zc := l.zl.With()
	for key, field := range map[ctxKey]string{
		ctxTraceID:       FieldTraceID,
		ctxSpanID:        FieldSpanID,
		ctxCorrelationID: FieldCorrelationID,
		ctxMeetingID:     FieldMeetingID,
	} {
		if v := ctx.Value(key); v != nil {
			zc = zc.Str(field, fmt.Sprint(v))
		}
	}
	return &Logger{zl: zc.Logger(), service: l.service}
}

// Zerolog exposes the underlying logger for libraries that want one.
func (l *Logger) Zerolog() zerolog.Logger { return l.zl }

func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	emit(l.zl.Debug(), msg, fields)
}

func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	emit(l.zl.Info(), msg, fields)
}

func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	emit(l.zl.Warn(), msg, fields)
}

func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	emit(l.zl.Error(), msg, fields)
}

// Fatal logs and exits the process.
func (l *Logger) Fatal(msg string, fields ...map[string]interface{}) {
	emit(l.zl.Fatal(), msg, fields)
}

// ContextWithCorrelationID stores a correlation id for WithContext.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxCorrelationID, id)
}

// CorrelationIDFromContext returns the id stored by ContextWithCorrelationID.
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxCorrelationID).(string)
	return id
}

// ContextWithMeetingID stores a meeting id for WithContext.
func ContextWithMeetingID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxMeetingID, id)
}

// ContextWithTrace stores trace and span ids for WithContext.
func ContextWithTrace(ctx context.Context, traceID, spanID string) context.Context {
	ctx = context.WithValue(ctx, ctxTraceID, traceID)
	return context.WithValue(ctx, ctxSpanID, spanID)
}

// --- global logger ---

var (
	globalMu     sync.RWMutex
	globalLogger *Logger
)

// Init configures the process-wide logger.
func Init(cfg Config) {
	cfg.ApplyDefaults()
	l := New(&cfg, cfg.ServiceName)
	zerolog.SetGlobalLevel(l.zl.GetLevel())
	SetGlobalLogger(l)
}

// SetGlobalLogger replaces the process-wide logger.
func SetGlobalLogger(l *Logger) {
	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()
}

// GetGlobalLogger returns the process-wide logger, creating a default one on first use.
func GetGlobalLogger() *Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l != nil {
		return l
	}
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = NewDefault("")
	}
	return globalLogger
}

func Debug(msg string, fields ...map[string]interface{}) { GetGlobalLogger().Debug(msg, fields...) }
func Info(msg string, fields ...map[string]interface{})  { GetGlobalLogger().Info(msg, fields...) }
func Warn(msg string, fields ...map[string]interface{})  { GetGlobalLogger().Warn(msg, fields...) }
func Error(msg string, fields ...map[string]interface{}) { GetGlobalLogger().Error(msg, fields...) }

// WithComponent returns a component logger derived from the global logger.
func WithComponent(name string) *Logger {
	return GetGlobalLogger().WithComponent(name)
}

func emit(event *zerolog.Event, msg string, fields []map[string]interface{}) {
	for _, fm := range fields {
		for k, v := range fm {
			event.Interface(k, v)
		}
	}
	event.Msg(msg)
}

func outputWriter(output string) io.Writer {
	if strings.EqualFold(output, "stderr") {
		return os.Stderr
	}
	return os.Stdout
}

func consoleWriter(cfg *Config, serviceName string, out io.Writer) zerolog.ConsoleWriter {
	tag := ""
	if len(serviceName) >= 3 {
		tag = "[" + strings.ToUpper(serviceName[:3]) + "]"
	}
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "15:04:05",
		NoColor:    cfg.NoColor,
		FormatLevel: func(i interface{}) string {
			lvl := levelTag(fmt.Sprint(i))
			if !cfg.NoColor {
				lvl = levelColor(fmt.Sprint(i)) + lvl + "\033[0m"
			}
			return tag + lvl
		},
		FormatFieldName: func(i interface{}) string {
			return fmt.Sprintf("%s:", i)
		},
	}
}

func levelTag(level string) string {
	switch level {
	case "debug":
		return "[DBG]"
	case "info":
		return "[INF]"
	case "warn":
		return "[WRN]"
	case "error":
		return "[ERR]"
	case "fatal":
		return "[FTL]"
	default:
		return "[" + strings.ToUpper(level) + "]"
	}
}

func levelColor(level string) string {
	switch level {
	case "debug":
		return "\033[36m"
	case "info":
		return "\033[32m"
	case "warn":
		return "\033[33m"
	case "error":
		return "\033[31m"
	default:
		return "\033[35m"
	}
}
