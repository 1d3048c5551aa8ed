// Package logger provides component-tagged structured logging for the bridge.
//
// Call sites pass a component name ("sync", "relay", "telegram", ...) and an
// optional field map; the backend is a zerolog console writer.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelNames = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

const timeFormat = "2006-01-02 15:04:05"

var (
	mu    sync.RWMutex
	level = INFO
	base  = newZerolog(os.Stderr, true)
)

func newZerolog(w io.Writer, console bool) zerolog.Logger {
	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: timeFormat}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// SetLevel sets the minimum level that is written.
func SetLevel(l LogLevel) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

func GetLevel() LogLevel {
	mu.RLock()
	defer mu.RUnlock()
	return level
}

// ParseLevel maps a case-insensitive level name to a LogLevel.
// Unknown names return INFO and false.
func ParseLevel(name string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return DEBUG, true
	case "INFO", "":
		return INFO, true
	case "WARN", "WARNING":
		return WARN, true
	case "ERROR":
		return ERROR, true
	case "FATAL":
		return FATAL, true
	}
	return INFO, false
}

// SetOutput redirects log output. JSON lines are written when console is
// false, which is what tests use to inspect fields.
func SetOutput(w io.Writer, console bool) {
	mu.Lock()
	defer mu.Unlock()
	base = newZerolog(w, console)
}

func event(l LogLevel) *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	if l < level {
		return nil
	}
	switch l {
	case DEBUG:
		return base.Debug()
	case INFO:
		return base.Info()
	case WARN:
		return base.Warn()
	case ERROR:
		return base.Error()
	default:
		// zerolog's Fatal exits the process; the caller decides that.
		return base.WithLevel(zerolog.FatalLevel)
	}
}

func logMessage(l LogLevel, component, message string, fields map[string]any) {
	e := event(l)
	if e == nil {
		return
	}
	if component != "" {
		e = e.Str("component", component)
	}
	if len(fields) > 0 {
		e = e.Fields(fields)
	}
	e.Msg(message)
}

func Debug(message string) { logMessage(DEBUG, "", message, nil) }

func DebugC(component, message string) { logMessage(DEBUG, component, message, nil) }

func DebugCF(component, message string, fields map[string]any) {
	logMessage(DEBUG, component, message, fields)
}

func Info(message string) { logMessage(INFO, "", message, nil) }

func InfoC(component, message string) { logMessage(INFO, component, message, nil) }

func InfoCF(component, message string, fields map[string]any) {
	logMessage(INFO, component, message, fields)
}

func Warn(message string) { logMessage(WARN, "", message, nil) }

func WarnC(component, message string) { logMessage(WARN, component, message, nil) }

func WarnCF(component, message string, fields map[string]any) {
	logMessage(WARN, component, message, fields)
}

func Error(message string) { logMessage(ERROR, "", message, nil) }

func ErrorC(component, message string) { logMessage(ERROR, component, message, nil) }

func ErrorCF(component, message string, fields map[string]any) {
	logMessage(ERROR, component, message, fields)
}

// FatalCF logs at fatal level and exits with status 1.
func FatalCF(component, message string, fields map[string]any) {
	logMessage(FATAL, component, message, fields)
	os.Exit(1)
}
