// Package logger records evaluation runs.
//
// ConsoleLogger writes timestamped, level-filtered lines to a writer
// (normally the active display's log writer), FileLogger keeps a per-run log
// file plus one transcript file per sample, and MultiLogger fans events out
// to several loggers. All implementations are safe for concurrent use by
// running samples.
package logger

import (
	"time"

	"github.com/harrison/evalrun/internal/models"
)

// Logger receives evaluation events
type Logger interface {
	LogTaskStart(task models.Task, total int)
	LogSampleResult(result models.SampleResult) error
	LogProgress(task string, completed, total int)
	LogTaskComplete(result models.TaskResult)
	LogSummary(result models.EvalResult)

	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
}

// MultiLogger forwards every event to each of its loggers in order.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a MultiLogger. Nil loggers are skipped.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			m.loggers = append(m.loggers, l)
		}
	}
	return m
}

func (m *MultiLogger) LogTaskStart(task models.Task, total int) {
	for _, l := range m.loggers {
		l.LogTaskStart(task, total)
	}
}

// LogSampleResult returns the first error reported by any logger.
func (m *MultiLogger) LogSampleResult(result models.SampleResult) error {
	var first error
	for _, l := range m.loggers {
		if err := l.LogSampleResult(result); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *MultiLogger) LogProgress(task string, completed, total int) {
	for _, l := range m.loggers {
		l.LogProgress(task, completed, total)
	}
}

func (m *MultiLogger) LogTaskComplete(result models.TaskResult) {
	for _, l := range m.loggers {
		l.LogTaskComplete(result)
	}
}

func (m *MultiLogger) LogSummary(result models.EvalResult) {
	for _, l := range m.loggers {
		l.LogSummary(result)
	}
}

func (m *MultiLogger) LogDebug(message string) {
	for _, l := range m.loggers {
		l.LogDebug(message)
	}
}

func (m *MultiLogger) LogInfo(message string) {
	for _, l := range m.loggers {
		l.LogInfo(message)
	}
}

func (m *MultiLogger) LogWarn(message string) {
	for _, l := range m.loggers {
		l.LogWarn(message)
	}
}

func (m *MultiLogger) LogError(message string) {
	for _, l := range m.loggers {
		l.LogError(message)
	}
}

// NoOpLogger is a Logger implementation that discards all log messages.
// Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) LogTaskStart(models.Task, int)             {}
func (n *NoOpLogger) LogSampleResult(models.SampleResult) error { return nil }
func (n *NoOpLogger) LogProgress(string, int, int)              {}
func (n *NoOpLogger) LogTaskComplete(models.TaskResult)         {}
func (n *NoOpLogger) LogSummary(models.EvalResult)              {}
func (n *NoOpLogger) LogDebug(string)                           {}
func (n *NoOpLogger) LogInfo(string)                            {}
func (n *NoOpLogger) LogWarn(string)                            {}
func (n *NoOpLogger) LogError(string)                           {}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}
