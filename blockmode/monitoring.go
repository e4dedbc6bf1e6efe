package blockmode

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"sync/atomic"
)

// Metrics counts engine calls. One Metrics value may be shared by several
// ciphers; all methods are safe for concurrent use.
type Metrics struct {
	encryptions atomic.Int64
	decryptions atomic.Int64
	failures    atomic.Int64
	bytesIn     atomic.Int64
	mu          sync.RWMutex
	errorCounts map[string]int64
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		errorCounts: make(map[string]int64),
	}
}

func (m *Metrics) recordCall(op string, n int) {
	if m == nil {
		return
	}
	if op == "encrypt" {
		m.encryptions.Add(1)
	} else {
		m.decryptions.Add(1)
	}
	m.bytesIn.Add(int64(n))
}

func (m *Metrics) recordFailure(err error) {
	if m == nil {
		return
	}
	m.failures.Add(1)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCounts[errorKind(err)]++
}

// errorKind maps an error to the sentinel it wraps.
func errorKind(err error) string {
	for _, s := range []error{ErrInvalidKeyLength, ErrConfig, ErrLength, ErrPadding, ErrRandom} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return fmt.Sprintf("%T", err)
}

// GetStats returns current statistics
func (m *Metrics) GetStats() Stats {
	if m == nil {
		return Stats{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	errorCounts := make(map[string]int64, len(m.errorCounts))
	for k, v := range m.errorCounts {
		errorCounts[k] = v
	}

	return Stats{
		Encryptions: m.encryptions.Load(),
		Decryptions: m.decryptions.Load(),
		Failures:    m.failures.Load(),
		BytesIn:     m.bytesIn.Load(),
		ErrorCounts: errorCounts,
	}
}

// Stats is a snapshot of Metrics
type Stats struct {
	Encryptions int64
	Decryptions int64
	Failures    int64
	BytesIn     int64
	ErrorCounts map[string]int64
}

// Logger is a small leveled logger. A nil *Logger discards everything.
// Key material is never passed to it; IVs are public and may be logged at
// debug level.
type Logger struct {
	level   LogLevel
	enabled bool
	out     *log.Logger
	mu      sync.RWMutex
}

// LogLevel represents logging level
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// NewLogger creates a logger writing through the standard log package.
func NewLogger(enabled bool, level string) *Logger {
	return &Logger{
		enabled: enabled,
		level:   ParseLogLevel(level),
		out:     log.Default(),
	}
}

// ParseLogLevel parses string log level to LogLevel
func ParseLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return LogLevelDebug
	case "info":
		return LogLevelInfo
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// SetOutput redirects log lines to w.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = log.New(w, "", log.LstdFlags)
}

// SetLevel changes the minimum level
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Debug logs debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LogLevelDebug, format, args...)
}

// Info logs info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LogLevelInfo, format, args...)
}

// Warn logs warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LogLevelWarn, format, args...)
}

// Error logs error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LogLevelError, format, args...)
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.enabled || level < l.level {
		return
	}

	levelStr := ""
	switch level {
	case LogLevelDebug:
		levelStr = "[DEBUG]"
	case LogLevelInfo:
		levelStr = "[INFO]"
	case LogLevelWarn:
		levelStr = "[WARN]"
	case LogLevelError:
		levelStr = "[ERROR]"
	}

	msg := fmt.Sprintf(format, args...)
	l.out.Printf("%s [CIPHERKIT] %s", levelStr, msg)
}
