package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

type LogLevel string

const (
	DEBUG LogLevel = "debug"
	INFO  LogLevel = "info"
	WARN  LogLevel = "warn"
	ERROR LogLevel = "error"
)

// Logger emits snake_case events with key/value pairs.
type Logger struct {
	entry *logrus.Entry
}

var (
	global *Logger
	mu     sync.RWMutex
)

// Init configures the process-wide logger. A nil writer discards output.
func Init(level LogLevel, jsonFormat bool, w io.Writer) {
	base := logrus.New()
	if w == nil {
		w = io.Discard
	}
	base.SetOutput(w)

	if jsonFormat {
		base.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		base.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	lvl, err := logrus.ParseLevel(strings.ToLower(string(level)))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	base.SetLevel(lvl)

	mu.Lock()
	global = &Logger{entry: logrus.NewEntry(base)}
	mu.Unlock()
}

// GetLogger returns the process-wide logger, initializing a stdout INFO logger on first use.
func GetLogger() *Logger {
	mu.RLock()
	l := global
	mu.RUnlock()
	if l != nil {
		return l
	}
	Init(INFO, false, os.Stdout)
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// WithContext returns a child of the global logger carrying the given pairs.
func WithContext(keyvals ...interface{}) *Logger {
	return GetLogger().WithContext(keyvals...)
}

func (l *Logger) WithContext(keyvals ...interface{}) *Logger {
	return &Logger{entry: l.entry.WithFields(fields(keyvals))}
}

func (l *Logger) Debug(event string, keyvals ...interface{}) {
	l.entry.WithFields(fields(keyvals)).Debug(event)
}

func (l *Logger) Info(event string, keyvals ...interface{}) {
	l.entry.WithFields(fields(keyvals)).Info(event)
}

func (l *Logger) Warn(event string, keyvals ...interface{}) {
	l.entry.WithFields(fields(keyvals)).Warn(event)
}

func (l *Logger) Error(event string, keyvals ...interface{}) {
	l.entry.WithFields(fields(keyvals)).Error(event)
}

func fields(keyvals []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(keyvals)/2)
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		if i+1 >= len(keyvals) {
			f[key] = "(missing)"
			break
		}
		val := keyvals[i+1]
		if err, ok := val.(error); ok {
			val = err.Error()
		}
		f[key] = val
	}
	return f
}
