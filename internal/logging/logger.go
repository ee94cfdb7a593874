package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// Logger defines a minimal, printf-style logging contract.
//
// It intentionally stays interface-only so packages can depend on logging
// without pulling in the file-backed implementation.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Nop returns a logger that discards all output.
func Nop() Logger {
	return nopLogger{}
}

// IsNil reports whether logger is nil or wraps a nil pointer receiver.
func IsNil(logger Logger) bool {
	if logger == nil {
		return true
	}
	val := reflect.ValueOf(logger)
	switch val.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func:
		return val.IsNil()
	default:
		return false
	}
}

// OrNop returns logger when non-nil, otherwise a no-op logger.
func OrNop(logger Logger) Logger {
	if IsNil(logger) {
		return Nop()
	}
	return logger
}

var (
	fileLoggerInstance *fileLogger
	fileLoggerOnce     sync.Once
)

// fileLogger writes leveled, component-tagged lines to attache-debug.log in the
// user's home directory. It degrades to a stderr logger when the file cannot
// be opened.
type fileLogger struct {
	mu        sync.Mutex
	logger    *log.Logger
	file      *os.File
	level     LogLevel
	component string
}

func sharedFileLogger() *fileLogger {
	fileLoggerOnce.Do(func() {
		fileLoggerInstance = newFileLogger(INFO)
	})
	return fileLoggerInstance
}

func newFileLogger(level LogLevel) *fileLogger {
	l := &fileLogger{level: level}

	home, err := os.UserHomeDir()
	if err != nil {
		l.logger = log.New(os.Stderr, "", 0)
		return l
	}

	logPath := filepath.Join(home, "attache-debug.log")
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		l.logger = log.New(os.Stderr, "", 0)
		return l
	}

	l.file = file
	l.logger = log.New(file, "", 0) // we format ourselves
	return l
}

// NewComponentLogger returns the shared file logger scoped to a component.
func NewComponentLogger(component string) Logger {
	base := sharedFileLogger()
	return &fileLogger{
		logger:    base.logger,
		file:      base.file,
		level:     base.level,
		component: component,
	}
}

// SetLevel sets the minimum level for the shared logger.
func SetLevel(level LogLevel) {
	base := sharedFileLogger()
	base.mu.Lock()
	base.level = level
	base.mu.Unlock()
}

func (l *fileLogger) log(level LogLevel, name, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level || l.logger == nil {
		return
	}

	component := l.component
	if component == "" {
		component = "attache"
	}
	msg := fmt.Sprintf(format, args...)
	l.logger.Printf("%s [%s] [%s] %s", time.Now().Format("2006-01-02 15:04:05.000"), name, component, msg)
}

func (l *fileLogger) Debug(format string, args ...any) { l.log(DEBUG, "DEBUG", format, args...) }
func (l *fileLogger) Info(format string, args ...any)  { l.log(INFO, "INFO", format, args...) }
func (l *fileLogger) Warn(format string, args ...any)  { l.log(WARN, "WARN", format, args...) }
func (l *fileLogger) Error(format string, args ...any) { l.log(ERROR, "ERROR", format, args...) }
