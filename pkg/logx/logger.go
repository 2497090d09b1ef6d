package logx

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the logging verbosity threshold
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Fields carries structured key/value pairs attached to a log entry
type Fields map[string]interface{}

// Logger wraps a zap logger behind the package's call surface
type Logger struct {
	sugar *zap.SugaredLogger
	level zap.AtomicLevel
}

// NewLogger builds a zap-backed logger. Format is "json" or "console".
func NewLogger(level Level, format string) *Logger {
	atomic := zap.NewAtomicLevelAt(toZapLevel(level))

	var encoder zapcore.Encoder
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if strings.EqualFold(format, "console") {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), atomic)
	z := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2))

	return &Logger{sugar: z.Sugar(), level: atomic}
}

// SetLevel changes the logger's verbosity threshold
func (l *Logger) SetLevel(level Level) {
	l.level.SetLevel(toZapLevel(level))
}

// WithFields returns an Entry carrying the given fields
func (l *Logger) WithFields(fields Fields) *Entry {
	return &Entry{logger: l, fields: fields}
}

// Sync flushes buffered entries; call before process exit
func (l *Logger) Sync() {
	_ = l.sugar.Sync()
}

func (l *Logger) log(level Level, msg string, fields Fields) {
	sugar := l.sugar
	if len(fields) > 0 {
		kv := make([]interface{}, 0, len(fields)*2)
		for k, v := range fields {
			kv = append(kv, k, v)
		}
		sugar = sugar.With(kv...)
	}

	switch level {
	case LevelDebug:
		sugar.Debug(msg)
	case LevelInfo:
		sugar.Info(msg)
	case LevelWarn:
		sugar.Warn(msg)
	case LevelError:
		sugar.Error(msg)
	}
}

func (l *Logger) fatal(msg string, fields Fields) {
	sugar := l.sugar
	if len(fields) > 0 {
		kv := make([]interface{}, 0, len(fields)*2)
		for k, v := range fields {
			kv = append(kv, k, v)
		}
		sugar = sugar.With(kv...)
	}
	sugar.Fatal(msg)
}

func toZapLevel(level Level) zapcore.Level {
	switch level {
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

// Entry is a log statement under construction, with fields attached
type Entry struct {
	logger *Logger
	fields Fields
}

// WithFields adds more fields to the entry (chainable)
func (e *Entry) WithFields(fields Fields) *Entry {
	merged := make(Fields, len(e.fields)+len(fields))
	for k, v := range e.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Entry{logger: e.logger, fields: merged}
}

// WithError attaches an error field to the entry
func (e *Entry) WithError(err error) *Entry {
	return e.WithFields(Fields{"error": err})
}

func (e *Entry) Debug(msg string) { e.logger.log(LevelDebug, msg, e.fields) }
func (e *Entry) Info(msg string)  { e.logger.log(LevelInfo, msg, e.fields) }
func (e *Entry) Warn(msg string)  { e.logger.log(LevelWarn, msg, e.fields) }
func (e *Entry) Error(msg string) { e.logger.log(LevelError, msg, e.fields) }

func (e *Entry) Debugf(format string, args ...interface{}) {
	e.logger.log(LevelDebug, sprintf(format, args...), e.fields)
}

func (e *Entry) Infof(format string, args ...interface{}) {
	e.logger.log(LevelInfo, sprintf(format, args...), e.fields)
}

func (e *Entry) Warnf(format string, args ...interface{}) {
	e.logger.log(LevelWarn, sprintf(format, args...), e.fields)
}

func (e *Entry) Errorf(format string, args ...interface{}) {
	e.logger.log(LevelError, sprintf(format, args...), e.fields)
}
