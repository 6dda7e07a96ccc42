package logx

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Format represents the output format
type Format string

const (
	// FormatConsole outputs human-readable console logs (default)
	FormatConsole Format = "console"
	// FormatJSON outputs one JSON object per line
	FormatJSON Format = "json"
)

// Config holds the logger configuration
type Config struct {
	// Level is the minimum log level to output
	Level Level

	// Format is the output format
	Format Format

	// TimeFormat is the time layout to use (defaults to RFC3339)
	TimeFormat string

	// Output is where to write logs (defaults to os.Stdout)
	Output io.Writer
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Level:      LevelInfo,
		Format:     FormatConsole,
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
	}
}

// LoadFromEnv loads configuration from LOG_LEVEL and LOG_FORMAT
func LoadFromEnv() *Config {
	config := DefaultConfig()

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Level = ParseLevel(level)
	}
	if format := os.Getenv("LOG_FORMAT"); strings.ToLower(format) == "json" {
		config.Format = FormatJSON
	}

	return config
}

// Fields is a map of structured data attached to a log line
type Fields map[string]interface{}

// LogEntry represents a single log entry handed to a formatter
type LogEntry struct {
	Level     Level
	Message   string
	Fields    Fields
	Error     error
	Timestamp time.Time
}

// Formatter renders a LogEntry into bytes
type Formatter interface {
	Format(entry *LogEntry) ([]byte, error)
}

// Logger is the main logger instance
type Logger struct {
	config    *Config
	formatter Formatter
	mu        sync.Mutex
	writer    io.Writer
	exitFunc  func(int)
}

// NewLogger creates a new logger with the given config
func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}

	var formatter Formatter
	switch config.Format {
	case FormatJSON:
		formatter = NewJSONFormatter(config)
	default:
		formatter = NewConsoleFormatter(config)
	}

	writer := config.Output
	if writer == nil {
		writer = os.Stdout
	}

	return &Logger{
		config:    config,
		formatter: formatter,
		writer:    writer,
		exitFunc:  os.Exit,
	}
}

// SetLevel sets the log level
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.config.Level = level
}

// SetOutput sets the output writer
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writer = w
}

// WithFields creates a new entry with fields
func (l *Logger) WithFields(fields Fields) *Entry {
	return newEntry(l).WithFields(fields)
}

// WithField creates a new entry with a single field
func (l *Logger) WithField(key string, value interface{}) *Entry {
	return newEntry(l).WithField(key, value)
}

// WithError creates a new entry with an error field
func (l *Logger) WithError(err error) *Entry {
	return newEntry(l).WithError(err)
}

func (l *Logger) log(level Level, msg string, fields Fields, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.config.Level.Enabled(level) {
		return
	}

	entry := &LogEntry{
		Level:     level,
		Message:   msg,
		Fields:    fields,
		Error:     err,
		Timestamp: time.Now(),
	}

	out, fmtErr := l.formatter.Format(entry)
	if fmtErr != nil {
		return
	}
	_, _ = l.writer.Write(out)
}

func (l *Logger) exit(code int) {
	if l.exitFunc != nil {
		l.exitFunc(code)
	}
}
