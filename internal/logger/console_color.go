package logger

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/harrison/evalrun/internal/models"
)

// colorScheme defines consistent colors for different metric types.
// Green: success, Red: failure, Yellow: warning, Cyan: labels.
type colorScheme struct {
	success *color.Color
	fail    *color.Color
	warn    *color.Color
	label   *color.Color
	value   *color.Color
}

// newColorScheme creates the standard color scheme for metrics, forced on or
// off to match the logger's color setting.
func newColorScheme(enabled bool) *colorScheme {
	s := &colorScheme{
		success: color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		warn:    color.New(color.FgYellow),
		label:   color.New(color.FgCyan),
		value:   color.New(color.FgWhite),
	}
	for _, c := range []*color.Color{s.success, s.fail, s.warn, s.label, s.value} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return s
}

// formatColorizedMetric formats a single metric as "label: value".
func formatColorizedMetric(label string, value interface{}, scheme *colorScheme) string {
	return fmt.Sprintf("%s: %s", scheme.label.Sprint(label), scheme.value.Sprintf("%v", value))
}

// formatSampleMetrics summarizes a sample result.
// Format: "score: 1, answer: 4, messages: 3, tool calls: 1, tool errors: 1"
// Scores below 1 are yellow, zero scores and tool errors red.
func formatSampleMetrics(result models.SampleResult, colorOutput bool) string {
	scheme := newColorScheme(colorOutput)
	var parts []string

	if result.Score != nil {
		value := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", result.Score.Value), "0"), ".")
		switch {
		case result.Score.Value >= 1:
			parts = append(parts, fmt.Sprintf("%s: %s", scheme.success.Sprint("score"), scheme.value.Sprint(value)))
		case result.Score.Value <= 0:
			parts = append(parts, fmt.Sprintf("%s: %s", scheme.fail.Sprint("score"), scheme.fail.Sprint(value)))
		default:
			parts = append(parts, fmt.Sprintf("%s: %s", scheme.warn.Sprint("score"), scheme.warn.Sprint(value)))
		}
		if result.Score.Answer != "" {
			parts = append(parts, formatColorizedMetric("answer", truncate(result.Score.Answer, 40), scheme))
		}
	}

	if n := len(result.Messages); n > 0 {
		parts = append(parts, formatColorizedMetric("messages", n, scheme))
	}

	calls, toolErrors := 0, 0
	for _, msg := range result.Messages {
		calls += len(msg.ToolCalls)
		if msg.Role == models.RoleTool && msg.Error != "" {
			toolErrors++
		}
	}
	if calls > 0 {
		parts = append(parts, formatColorizedMetric("tool calls", calls, scheme))
	}
	if toolErrors > 0 {
		parts = append(parts, fmt.Sprintf("%s: %s", scheme.fail.Sprint("tool errors"), scheme.fail.Sprintf("%d", toolErrors)))
	}

	return strings.Join(parts, ", ")
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
