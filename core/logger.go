package core

import (
	"fmt"
	"log"
	"strings"
	"sync/atomic"
)

// Logger interface for structured logging
// Implementations can provide custom logging behavior (e.g., integration with logrus, zap, etc.)
type Logger interface {
	// Debug logs a debug message with optional fields
	Debug(msg string, fields ...Field)

	// Info logs an info message with optional fields
	Info(msg string, fields ...Field)

	// Warn logs a warning message with optional fields
	Warn(msg string, fields ...Field)

	// Error logs an error message with optional fields
	Error(msg string, fields ...Field)
}

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value any
}

// F creates a new Field with the given key and value
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// =============================================================================
// Log levels and log spec
// =============================================================================

type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError

	// LogLevelOff disables all output for a module.
	LogLevelOff
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "debug"
	case LogLevelInfo:
		return "info"
	case LogLevelWarn:
		return "warn"
	case LogLevelError:
		return "error"
	case LogLevelOff:
		return "off"
	default:
		return "unknown"
	}
}

// ParseLogLevel parses a level name. Numeric aliases 0-4 are accepted for
// compatibility with the environment-variable form.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "0":
		return LogLevelDebug, nil
	case "info", "1":
		return LogLevelInfo, nil
	case "warn", "warning", "2":
		return LogLevelWarn, nil
	case "error", "3":
		return LogLevelError, nil
	case "off", "none", "4":
		return LogLevelOff, nil
	default:
		return LogLevelOff, fmt.Errorf("unknown log level %q", s)
	}
}

// LogSpec is the parsed form of a log settings string.
//
// A spec is either a bare default level ("warn"), or a comma-separated list of
// module=level entries with an optional bare default ("kernel=debug,info").
// Modules not named in the spec use the default level.
type LogSpec struct {
	Default LogLevel
	Modules map[string]LogLevel
}

// ParseLogSpec parses a log settings string.
func ParseLogSpec(spec string) (LogSpec, error) {
	out := LogSpec{Default: LogLevelWarn, Modules: map[string]LogLevel{}}
	if strings.TrimSpace(spec) == "" {
		return out, nil
	}

	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if module, levelStr, ok := strings.Cut(entry, "="); ok {
			level, err := ParseLogLevel(levelStr)
			if err != nil {
				return out, fmt.Errorf("log spec entry %q: %w", entry, err)
			}
			out.Modules[strings.TrimSpace(module)] = level
			continue
		}
		level, err := ParseLogLevel(entry)
		if err != nil {
			return out, fmt.Errorf("log spec entry %q: %w", entry, err)
		}
		out.Default = level
	}
	return out, nil
}

// LevelFor returns the effective level for a module.
func (s LogSpec) LevelFor(module string) LogLevel {
	if level, ok := s.Modules[module]; ok {
		return level
	}
	return s.Default
}

// activeLogSpec is the process-wide log settings, applied once at bootstrap.
var activeLogSpec atomic.Pointer[LogSpec]

// ApplyLogSettings parses and installs the process-wide log spec. Modules
// lists the known module names from the static metadata table; entries naming
// an unknown module are reported and dropped rather than treated as fatal.
func ApplyLogSettings(modules []string, spec string) error {
	parsed, err := ParseLogSpec(spec)
	if err != nil {
		return err
	}

	if len(modules) > 0 {
		known := make(map[string]struct{}, len(modules))
		for _, m := range modules {
			known[m] = struct{}{}
		}
		for m := range parsed.Modules {
			if _, ok := known[m]; !ok {
				log.Printf("[WARN] log spec names unknown module %q", m)
				delete(parsed.Modules, m)
			}
		}
	}

	activeLogSpec.Store(&parsed)
	return nil
}

// ActiveLogSpec returns the installed log settings, or the default spec if
// none has been applied yet.
func ActiveLogSpec() LogSpec {
	if s := activeLogSpec.Load(); s != nil {
		return *s
	}
	return LogSpec{Default: LogLevelWarn}
}

// =============================================================================
// Module logger
// =============================================================================

// ModuleLogger returns a Logger for one runtime module, filtered by the
// process-wide log settings. Level checks read the installed spec on every
// call so a logger created before ApplyLogSettings still honors it.
func ModuleLogger(module string) Logger {
	return &moduleLogger{module: module}
}

type moduleLogger struct {
	module string
}

func (l *moduleLogger) Debug(msg string, fields ...Field) {
	l.log(LogLevelDebug, msg, fields...)
}

func (l *moduleLogger) Info(msg string, fields ...Field) {
	l.log(LogLevelInfo, msg, fields...)
}

func (l *moduleLogger) Warn(msg string, fields ...Field) {
	l.log(LogLevelWarn, msg, fields...)
}

func (l *moduleLogger) Error(msg string, fields ...Field) {
	l.log(LogLevelError, msg, fields...)
}

func (l *moduleLogger) log(level LogLevel, msg string, fields ...Field) {
	if level < ActiveLogSpec().LevelFor(l.module) {
		return
	}

	// Build the log message
	logMsg := fmt.Sprintf("[%s] %s: %s", strings.ToUpper(level.String()), l.module, msg)
	if len(fields) > 0 {
		logMsg += " {"
		for i, f := range fields {
			if i > 0 {
				logMsg += ", "
			}
			logMsg += fmt.Sprintf("%s: %v", f.Key, f.Value)
		}
		logMsg += "}"
	}
	log.Println(logMsg)
}

// NoOpLogger is a logger that discards all log messages
// Useful for tests or when logging is not desired
type NoOpLogger struct{}

// NewNoOpLogger creates a new NoOpLogger
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (l *NoOpLogger) Debug(msg string, fields ...Field) {}
func (l *NoOpLogger) Info(msg string, fields ...Field)  {}
func (l *NoOpLogger) Warn(msg string, fields ...Field)  {}
func (l *NoOpLogger) Error(msg string, fields ...Field) {}
