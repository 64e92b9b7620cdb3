// Package logger provides a small leveled logging facade used for flow
// logging across the bot. Storage and transport components take a zap
// logger instead; this package covers the plain "what is happening"
// output of the trading loop.
package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

// Level is a log severity. Messages below the configured level are dropped.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// ParseLevel maps a config string to a Level. Unknown values fall back to info.
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
	case "fatal":
		return LevelFatal
	}
	return LevelInfo
}

// Logger is the leveled logging interface.
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})
}

type stdLogger struct {
	mu    sync.Mutex
	min   Level
	out   *log.Logger // debug/info/warn
	errw  *log.Logger // error/fatal
	exitf func(int)
}

// New returns a Logger writing to stdout/stderr at the given minimum level.
func New(min Level) Logger {
	return newStd(min)
}

func newStd(min Level) *stdLogger {
	flags := log.Ldate | log.Ltime | log.Lshortfile
	return &stdLogger{
		min:   min,
		out:   log.New(os.Stdout, "", flags),
		errw:  log.New(os.Stderr, "", flags),
		exitf: os.Exit,
	}
}

func (l *stdLogger) log(lv Level, msg string) {
	l.mu.Lock()
	min := l.min
	l.mu.Unlock()
	if lv < min {
		return
	}
	var prefix string
	switch lv {
	case LevelDebug:
		prefix = "DEBUG: "
	case LevelInfo:
		prefix = "INFO:  "
	case LevelWarn:
		prefix = "WARN:  "
	case LevelError:
		prefix = "ERROR: "
	case LevelFatal:
		prefix = "FATAL: "
	}
	w := l.out
	if lv >= LevelError {
		w = l.errw
	}
	// calldepth 3: log -> exported method -> caller
	_ = w.Output(3, prefix+msg)
	if lv == LevelFatal {
		l.exitf(1)
	}
}

func (l *stdLogger) setLevel(min Level) {
	l.mu.Lock()
	l.min = min
	l.mu.Unlock()
}

func (l *stdLogger) Debug(args ...interface{}) { l.log(LevelDebug, fmt.Sprintln(args...)) }
func (l *stdLogger) Debugf(format string, args ...interface{}) {
	l.log(LevelDebug, fmt.Sprintf(format, args...))
}
func (l *stdLogger) Info(args ...interface{}) { l.log(LevelInfo, fmt.Sprintln(args...)) }
func (l *stdLogger) Infof(format string, args ...interface{}) {
	l.log(LevelInfo, fmt.Sprintf(format, args...))
}
func (l *stdLogger) Warn(args ...interface{}) { l.log(LevelWarn, fmt.Sprintln(args...)) }
func (l *stdLogger) Warnf(format string, args ...interface{}) {
	l.log(LevelWarn, fmt.Sprintf(format, args...))
}
func (l *stdLogger) Error(args ...interface{}) { l.log(LevelError, fmt.Sprintln(args...)) }
func (l *stdLogger) Errorf(format string, args ...interface{}) {
	l.log(LevelError, fmt.Sprintf(format, args...))
}
func (l *stdLogger) Fatal(args ...interface{}) { l.log(LevelFatal, fmt.Sprintln(args...)) }
func (l *stdLogger) Fatalf(format string, args ...interface{}) {
	l.log(LevelFatal, fmt.Sprintf(format, args...))
}

var std = newStd(LevelInfo)

// SetGlobalLogLevel reconfigures the minimum level of the package-level logger.
func SetGlobalLogLevel(logLevel string) {
	std.setLevel(ParseLevel(logLevel))
}

// Debug logs a debug message using the global logger.
func Debug(args ...interface{}) { std.Debug(args...) }

// Debugf logs a formatted debug message.
func Debugf(format string, args ...interface{}) { std.Debugf(format, args...) }

// Info logs an informational message using the global logger.
func Info(args ...interface{}) { std.Info(args...) }

// Infof logs a formatted informational message.
func Infof(format string, args ...interface{}) { std.Infof(format, args...) }

// Warn logs a warning message using the global logger.
func Warn(args ...interface{}) { std.Warn(args...) }

// Warnf logs a formatted warning message.
func Warnf(format string, args ...interface{}) { std.Warnf(format, args...) }

// Error logs an error message using the global logger.
func Error(args ...interface{}) { std.Error(args...) }

// Errorf logs a formatted error message.
func Errorf(format string, args ...interface{}) { std.Errorf(format, args...) }

// Fatal logs a fatal message and exits.
func Fatal(args ...interface{}) { std.Fatal(args...) }

// Fatalf logs a formatted fatal message and exits.
func Fatalf(format string, args ...interface{}) { std.Fatalf(format, args...) }
