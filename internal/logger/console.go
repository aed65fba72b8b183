package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/harrison/evalrun/internal/models"
)

// ConsoleLogger logs evaluation progress to a writer with timestamps and thread safety.
// All output is prefixed with [HH:MM:SS] timestamps.
// It supports log level filtering to control message verbosity.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive); anything
// else means "info". Color is enabled when writing to a terminal stdout/stderr.
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return NewConsoleLoggerWithColor(writer, logLevel, isTerminal(writer))
}

// NewConsoleLoggerWithColor creates a ConsoleLogger with explicit color
// control, for writers such as a display's log writer whose terminal status
// is known by the caller.
func NewConsoleLoggerWithColor(writer io.Writer, logLevel string, colorOutput bool) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: colorOutput,
	}
}

// isTerminal checks if the writer is a terminal that supports colors.
func isTerminal(w io.Writer) bool {
	if w == nil {
		return false
	}
	if w == os.Stdout || w == os.Stderr {
		return !color.NoColor
	}
	return false
}

// shouldLog checks if a message at the given level should be logged.
func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
// Format: "[HH:MM:SS] [DEBUG] <message>"
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil || !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	levelText := level
	if cl.colorOutput {
		levelText = levelColor(level).Sprint(level)
	}
	cl.write(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), levelText, message))
}

func levelColor(level string) *color.Color {
	c := levelColorAttr(level)
	c.EnableColor()
	return c
}

func levelColorAttr(level string) *color.Color {
	switch level {
	case "TRACE":
		return color.New(color.FgHiBlack)
	case "DEBUG":
		return color.New(color.FgCyan)
	case "INFO":
		return color.New(color.FgBlue)
	case "WARN":
		return color.New(color.FgYellow)
	case "ERROR":
		return color.New(color.FgRed)
	default:
		return color.New(color.Reset)
	}
}

// write emits one complete chunk under the mutex so concurrent samples
// never interleave partial lines.
func (cl *ConsoleLogger) write(s string) {
	cl.mutex.Lock()
	defer cl.mutex.Unlock()
	cl.writer.Write([]byte(s))
}

func (cl *ConsoleLogger) bold(s string) string {
	if !cl.colorOutput {
		return s
	}
	c := color.New(color.Bold)
	c.EnableColor()
	return c.Sprint(s)
}

// LogTaskStart logs the start of a task at INFO level.
// Format: "[HH:MM:SS] Starting <task> (<model>): <n> samples"
func (cl *ConsoleLogger) LogTaskStart(task models.Task, total int) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	label := "samples"
	if total == 1 {
		label = "sample"
	}
	cl.write(fmt.Sprintf("[%s] Starting %s (%s): %d %s\n", timestamp(), cl.bold(task.Name), task.Model, total, label))
}

// LogSampleResult logs a finished sample at DEBUG level, or at WARN level
// when it did not succeed.
// Format: "[HH:MM:SS] <task> / <id>: <status> [metrics]"
func (cl *ConsoleLogger) LogSampleResult(result models.SampleResult) error {
	if cl.writer == nil {
		return nil
	}
	level := "debug"
	if !result.Succeeded() {
		level = "warn"
	}
	if !cl.shouldLog(level) {
		return nil
	}

	ref := fmt.Sprintf("%s / %s", result.Task, result.Sample.ID)
	if result.Epoch > 1 {
		ref += fmt.Sprintf(" (epoch %d)", result.Epoch)
	}

	status := result.Status
	if cl.colorOutput {
		status = statusColor(result.Status).Sprint(result.Status)
	}

	line := fmt.Sprintf("[%s] %s: %s", timestamp(), ref, status)
	if metrics := formatSampleMetrics(result, cl.colorOutput); metrics != "" {
		line += " [" + metrics + "]"
	}
	if result.Error != "" {
		line += " - " + result.Error
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()
	_, err := cl.writer.Write([]byte(line + "\n"))
	return err
}

func statusColor(status string) *color.Color {
	c := statusColorAttr(status)
	c.EnableColor()
	return c
}

func statusColorAttr(status string) *color.Color {
	switch status {
	case models.StatusSuccess:
		return color.New(color.FgGreen)
	case models.StatusTerminated, models.StatusCancelled:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

// LogProgress logs the progress of a task at INFO level.
// Format: "[HH:MM:SS] <task>: [=====     ] 5/10 (50%)"
func (cl *ConsoleLogger) LogProgress(task string, completed, total int) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	pb := NewProgressBar(total, 10, cl.colorOutput)
	pb.Update(completed)
	cl.write(fmt.Sprintf("[%s] %s: %s\n", timestamp(), task, pb.Render()))
}

// LogTaskComplete logs the completion of a task at INFO level.
// Format: "[HH:MM:SS] <task> complete: <ok>/<n> succeeded, accuracy 0.800 (<duration>)"
func (cl *ConsoleLogger) LogTaskComplete(result models.TaskResult) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	succeeded, failed := result.Counts()
	scheme := newColorScheme(cl.colorOutput)
	complete := scheme.success.Sprint("complete")
	if failed > 0 {
		complete = scheme.warn.Sprint("complete")
	}
	cl.write(fmt.Sprintf("[%s] %s %s: %d/%d succeeded, accuracy %.3f (%s)\n",
		timestamp(), cl.bold(result.Task), complete, succeeded, succeeded+failed, result.Accuracy(), FormatDuration(result.Duration)))
}

// LogSummary logs the evaluation summary at INFO level, listing every
// sample that did not succeed.
func (cl *ConsoleLogger) LogSummary(result models.EvalResult) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	ts := timestamp()
	total, succeeded, failed := result.Totals()
	scheme := newColorScheme(cl.colorOutput)

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", ts, cl.bold("=== Evaluation Summary ==="))
	fmt.Fprintf(&b, "[%s] Run: %s\n", ts, result.RunID)
	fmt.Fprintf(&b, "[%s] Total samples: %d\n", ts, total)
	fmt.Fprintf(&b, "[%s] %s\n", ts, scheme.success.Sprintf("Succeeded: %d", succeeded))
	if failed > 0 {
		fmt.Fprintf(&b, "[%s] %s\n", ts, scheme.fail.Sprintf("Failed: %d", failed))
	} else {
		fmt.Fprintf(&b, "[%s] Failed: %d\n", ts, failed)
	}
	for _, task := range result.Tasks {
		fmt.Fprintf(&b, "[%s] %s\n", ts, formatColorizedMetric(task.Task+" accuracy", fmt.Sprintf("%.3f", task.Accuracy()), scheme))
	}
	fmt.Fprintf(&b, "[%s] Duration: %s\n", ts, FormatDuration(result.Duration))

	if failures := result.FailedSamples(); len(failures) > 0 {
		fmt.Fprintf(&b, "[%s] %s\n", ts, scheme.fail.Sprint("Failed samples:"))
		for _, s := range failures {
			fmt.Fprintf(&b, "[%s]   - %s / %s: %s\n", ts, s.Task, s.Sample.ID, s.Status)
		}
	}

	cl.write(b.String())
}

// FormatDuration converts a time.Duration to a human-readable string.
// Examples: "5s", "1m30s", "2h15m"
func FormatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		remainder := d % time.Hour
		if remainder == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		minutes := remainder / time.Minute
		remainder = remainder % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	case d >= time.Minute:
		minutes := d / time.Minute
		remainder := d % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	}
}
