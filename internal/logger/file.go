package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/harrison/evalrun/internal/models"
)

// FileLogger logs evaluation events to files under the log directory.
// It creates a timestamped per-run log file, one transcript file per sample
// epoch in samples/, and maintains a latest.log symlink pointing to the most
// recent run.
type FileLogger struct {
	logDir     string
	runLog     *os.File
	runFile    string
	samplesDir string
	logLevel   string
	mu         sync.Mutex
}

// NewFileLogger creates a FileLogger writing to logDir at "info" level.
func NewFileLogger(logDir string) (*FileLogger, error) {
	return NewFileLoggerWithLevel(logDir, "info")
}

// NewFileLoggerWithLevel creates a FileLogger with a custom log level.
func NewFileLoggerWithLevel(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	samplesDir := filepath.Join(logDir, "samples")
	if err := os.MkdirAll(samplesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create samples directory: %w", err)
	}

	// run-YYYYMMDD-HHMMSS.log
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", time.Now().Format("20060102-150405")))
	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	fl := &FileLogger{
		logDir:     logDir,
		runLog:     file,
		runFile:    runFile,
		samplesDir: samplesDir,
		logLevel:   normalizeLogLevel(logLevel),
	}

	fl.writeRunLog("=== evalrun Run Log ===\n")
	fl.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return fl, nil
}

// RunFile returns the path of the run log file.
func (fl *FileLogger) RunFile() string {
	return fl.runFile
}

// LogDir returns the log directory.
func (fl *FileLogger) LogDir() string {
	return fl.logDir
}

func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (fl *FileLogger) LogTrace(message string) {
	fl.logWithLevel("TRACE", message)
}

func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

// LogTaskStart logs the start of a task at INFO level.
func (fl *FileLogger) LogTaskStart(task models.Task, total int) {
	if !fl.shouldLog("info") {
		return
	}

	label := "samples"
	if total == 1 {
		label = "sample"
	}
	msg := fmt.Sprintf("[%s] Starting %s: %d %s (model: %s", timestamp(), task.Name, total, label, task.Model)
	if task.SourceFile != "" {
		msg += ", file: " + task.SourceFile
	}
	fl.writeRunLog(msg + ")\n")
}

// LogSampleResult writes the sample's full transcript to
// samples/<task>-<id>-epoch<n>.log and a one-line record to the run log.
func (fl *FileLogger) LogSampleResult(result models.SampleResult) error {
	path := filepath.Join(fl.samplesDir, SampleLogName(result.Task, result.Sample.ID, result.Epoch))
	if err := os.WriteFile(path, []byte(formatSampleLog(result)), 0644); err != nil {
		return fmt.Errorf("failed to write sample log: %w", err)
	}

	level := "info"
	if !result.Succeeded() {
		level = "warn"
	}
	if fl.shouldLog(level) {
		line := fmt.Sprintf("[%s] %s / %s (epoch %d): %s", timestamp(), result.Task, result.Sample.ID, result.Epoch, result.Status)
		if metrics := formatSampleMetrics(result, false); metrics != "" {
			line += " [" + metrics + "]"
		}
		if result.Error != "" {
			line += " - " + result.Error
		}
		fl.writeRunLog(line + "\n")
	}
	return nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SampleLogName returns the transcript file name for a sample epoch.
func SampleLogName(task, sampleID string, epoch int) string {
	return fmt.Sprintf("%s-%s-epoch%d.log", unsafeName.ReplaceAllString(task, "_"), unsafeName.ReplaceAllString(sampleID, "_"), epoch)
}

func formatSampleLog(result models.SampleResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== %s / %s (epoch %d) ===\n", result.Task, result.Sample.ID, result.Epoch)
	fmt.Fprintf(&b, "Status: %s\n", result.Status)
	fmt.Fprintf(&b, "Duration: %.1fs\n", result.Duration.Seconds())
	if len(result.Sample.Target) > 0 {
		fmt.Fprintf(&b, "Target: %s\n", strings.Join(result.Sample.Target, " | "))
	}
	if result.Score != nil {
		fmt.Fprintf(&b, "Score: %g\n", result.Score.Value)
		if result.Score.Answer != "" {
			fmt.Fprintf(&b, "Answer: %s\n", result.Score.Answer)
		}
		if result.Score.Explanation != "" {
			fmt.Fprintf(&b, "Explanation: %s\n", result.Score.Explanation)
		}
	}
	if result.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", result.Error)
	}
	b.WriteString("\n=== Messages ===\n")

	for i, msg := range result.Messages {
		fmt.Fprintf(&b, "\n#### %d. %s", i+1, msg.Role)
		if msg.Function != "" {
			fmt.Fprintf(&b, " (%s)", msg.Function)
		}
		b.WriteString("\n")
		if msg.Content != "" {
			b.WriteString(strings.TrimRight(msg.Content, "\n") + "\n")
		}
		for _, call := range msg.ToolCalls {
			fmt.Fprintf(&b, "-> %s\n", call.String())
		}
		if msg.Error != "" {
			fmt.Fprintf(&b, "Error: %s\n", msg.Error)
		}
	}

	fmt.Fprintf(&b, "\nCompleted at: %s\n", time.Now().Format(time.RFC3339))
	return b.String()
}

// LogProgress is a no-op: progress is shown by the display, not written to
// log files.
func (fl *FileLogger) LogProgress(task string, completed, total int) {
}

// LogTaskComplete logs the completion of a task at INFO level.
func (fl *FileLogger) LogTaskComplete(result models.TaskResult) {
	if !fl.shouldLog("info") {
		return
	}

	succeeded, failed := result.Counts()
	fl.writeRunLog(fmt.Sprintf("[%s] %s complete: %d/%d succeeded, accuracy %.3f, duration %.1fs\n",
		timestamp(), result.Task, succeeded, succeeded+failed, result.Accuracy(), result.Duration.Seconds()))
}

// LogSummary logs the evaluation summary at INFO level.
func (fl *FileLogger) LogSummary(result models.EvalResult) {
	if !fl.shouldLog("info") {
		return
	}

	ts := timestamp()
	total, succeeded, failed := result.Totals()

	status := "SUCCESS"
	if failed > 0 {
		if succeeded == 0 {
			status = "FAILED"
		} else {
			status = "PARTIAL"
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n[%s] === EVALUATION SUMMARY ===\n", ts)
	fmt.Fprintf(&b, "[%s] Run:          %s\n", ts, result.RunID)
	fmt.Fprintf(&b, "[%s] Samples:      %d\n", ts, total)
	fmt.Fprintf(&b, "[%s] Succeeded:    %d\n", ts, succeeded)
	fmt.Fprintf(&b, "[%s] Failed:       %d\n", ts, failed)
	for _, task := range result.Tasks {
		fmt.Fprintf(&b, "[%s] Accuracy:     %s %.3f\n", ts, task.Task, task.Accuracy())
	}
	fmt.Fprintf(&b, "[%s] Total time:   %.1fs\n", ts, result.Duration.Seconds())
	fmt.Fprintf(&b, "[%s] Status:       %s (%d/%d samples succeeded)\n", ts, status, succeeded, total)
	fmt.Fprintf(&b, "[%s] Completed at: %s\n", ts, time.Now().Format(time.RFC3339))

	fl.writeRunLog(b.String())
}

// Close flushes and closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}

	return nil
}

// writeRunLog is a thread-safe helper to write to the run log file.
func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
		fl.runLog.Sync()
	}
}
