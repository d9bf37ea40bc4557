// Package log is the structured zap logger shared by the parser, runtime and
// policies. Entries are JSON lines on stderr carrying the session context.
//
// A nil *Logger is valid and discards everything, so library types accept an
// optional logger without guarding every call site.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pithecene-io/boltstream/types"
)

// Levels accepted by ParseLevel.
var Levels = []string{"debug", "info", "warn", "error"}

// ParseLevel maps a level name to a zap level. Empty means info.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("invalid log level %q (must be one of %s)", s, strings.Join(Levels, ", "))
}

// Logger writes JSON log lines with session context.
type Logger struct {
	zap   *zap.Logger
	level zap.AtomicLevel
}

// NewLogger logs at debug level and above to stderr.
func NewLogger(meta *types.SessionMeta) *Logger {
	return New(meta, os.Stderr, zapcore.DebugLevel)
}

// NewLoggerWithWriter is NewLogger writing to w.
func NewLoggerWithWriter(meta *types.SessionMeta, w io.Writer) *Logger {
	return New(meta, w, zapcore.DebugLevel)
}

// New builds a logger writing to w at level and above. meta may be nil; an
// empty Source is omitted.
func New(meta *types.SessionMeta, w io.Writer, level zapcore.Level) *Logger {
	atom := zap.NewAtomicLevelAt(level)
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	})
	z := zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), atom))
	if meta != nil {
		z = z.With(zap.String("session_id", meta.SessionID))
		if meta.Source != "" {
			z = z.With(zap.String("source", meta.Source))
		}
	}
	return &Logger{zap: z, level: atom}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{zap: zap.NewNop(), level: zap.NewAtomicLevelAt(zapcore.FatalLevel)}
}

// SetLevel changes the minimum level of l and every logger derived from it.
func (l *Logger) SetLevel(level zapcore.Level) {
	if l != nil {
		l.level.SetLevel(level)
	}
}

// Enabled reports whether entries at level would be written.
func (l *Logger) Enabled(level zapcore.Level) bool {
	return l != nil && l.zap.Core().Enabled(level)
}

// With returns a logger that adds fields to every entry.
func (l *Logger) With(fields map[string]any) *Logger {
	if l == nil {
		return nil
	}
	zf := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}
	return &Logger{zap: l.zap.With(zf...), level: l.level}
}

func (l *Logger) log(level zapcore.Level, message string, fields map[string]any) {
	if l == nil {
		return
	}
	if ce := l.zap.Check(level, message); ce != nil {
		ce.Write(zap.Any("fields", fields))
	}
}

func (l *Logger) Debug(message string, fields map[string]any) {
	l.log(zapcore.DebugLevel, message, fields)
}

func (l *Logger) Info(message string, fields map[string]any) {
	l.log(zapcore.InfoLevel, message, fields)
}

func (l *Logger) Warn(message string, fields map[string]any) {
	l.log(zapcore.WarnLevel, message, fields)
}

func (l *Logger) Error(message string, fields map[string]any) {
	l.log(zapcore.ErrorLevel, message, fields)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	if l == nil {
		return nil
	}
	return l.zap.Sync()
}
