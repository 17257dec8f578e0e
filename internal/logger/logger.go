package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func (l Level) zapLevel() zapcore.Level {
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

// ParseLevel parses a level string (case-insensitive).
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger is a leveled structured logger on top of zap.
type Logger struct {
	mu     sync.RWMutex
	level  zap.AtomicLevel
	format string
	sugar  *zap.SugaredLogger
}

// New builds a logger writing to w. format is "json" or "console".
func New(w io.Writer, level Level, format string) *Logger {
	l := &Logger{
		level:  zap.NewAtomicLevelAt(level.zapLevel()),
		format: format,
	}
	l.sugar = l.build(w)
	return l
}

func (l *Logger) build(w io.Writer) *zap.SugaredLogger {
	encCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	var enc zapcore.Encoder
	if l.format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(w), l.level)
	return zap.New(core).Sugar()
}

var defaultLogger = New(os.Stdout, LevelInfo, "console")

// Default returns the package-level logger.
func Default() *Logger {
	return defaultLogger
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return New(io.Discard, LevelError, "console")
}

// SetLevel changes the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.level.SetLevel(level.zapLevel())
}

// SetOutput changes the writer.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sugar = l.build(w)
}

// SetFormat switches between the console and json encoders.
func (l *Logger) SetFormat(format string, w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.format = format
	l.sugar = l.build(w)
}

func (l *Logger) s() *zap.SugaredLogger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sugar
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.s().Sync()
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, kvs ...any) { l.s().Debugw(msg, kvs...) }

// Info logs an info message.
func (l *Logger) Info(msg string, kvs ...any) { l.s().Infow(msg, kvs...) }

// Warn logs a warning message.
func (l *Logger) Warn(msg string, kvs ...any) { l.s().Warnw(msg, kvs...) }

// Error logs an error message.
func (l *Logger) Error(msg string, kvs ...any) { l.s().Errorw(msg, kvs...) }

// Infof logs a formatted info message.
func (l *Logger) Infof(format string, args ...any) { l.s().Info(fmt.Sprintf(format, args...)) }

// Warnf logs a formatted warning message.
func (l *Logger) Warnf(format string, args ...any) { l.s().Warn(fmt.Sprintf(format, args...)) }

// Errorf logs a formatted error message.
func (l *Logger) Errorf(format string, args ...any) { l.s().Error(fmt.Sprintf(format, args...)) }

// Debugf logs a formatted debug message.
func (l *Logger) Debugf(format string, args ...any) { l.s().Debug(fmt.Sprintf(format, args...)) }

// Package-level convenience functions.

func SetLevel(level Level)          { defaultLogger.SetLevel(level) }
func Debug(msg string, kvs ...any)  { defaultLogger.Debug(msg, kvs...) }
func Info(msg string, kvs ...any)   { defaultLogger.Info(msg, kvs...) }
func Warn(msg string, kvs ...any)   { defaultLogger.Warn(msg, kvs...) }
func Error(msg string, kvs ...any)  { defaultLogger.Error(msg, kvs...) }
func Infof(format string, args ...any)  { defaultLogger.Infof(format, args...) }
func Warnf(format string, args ...any)  { defaultLogger.Warnf(format, args...) }
func Errorf(format string, args ...any) { defaultLogger.Errorf(format, args...) }
func Debugf(format string, args ...any) { defaultLogger.Debugf(format, args...) }
