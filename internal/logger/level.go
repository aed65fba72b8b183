package logger

import "strings"

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// Levels lists the valid log level names from most to least verbose.
var Levels = []string{"trace", "debug", "info", "warn", "error"}

// normalizeLogLevel converts a log level string to lowercase and validates it.
// Returns "info" as default for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	for _, l := range Levels {
		if l == normalized {
			return normalized
		}
	}
	return "info"
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// MaxLevel returns the less verbose of two levels. The console logger uses
// it to stay quiet under a live display while the file log keeps detail.
func MaxLevel(a, b string) string {
	a, b = normalizeLogLevel(a), normalizeLogLevel(b)
	if logLevelToInt(a) >= logLevelToInt(b) {
		return a
	}
	return b
}
