package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/harrison/evalrun/internal/models"
)

// SampleRef identifies a running sample epoch
type SampleRef struct {
	Task  string
	ID    string
	Epoch int
}

// String formats the reference as "task / id (epoch n)"
func (r SampleRef) String() string {
	if r.Epoch > 1 {
		return fmt.Sprintf("%s / %s (epoch %d)", r.Task, r.ID, r.Epoch)
	}
	return fmt.Sprintf("%s / %s", r.Task, r.ID)
}

// TranscriptRenderer serializes conversations to a terminal: each message is
// a role-titled panel, assistant content is rendered as markdown and tool
// calls are listed as function(arg=value) lines.
type TranscriptRenderer struct {
	out    io.Writer
	colors *palette
	width  int
	md     *markdownRenderer
}

// NewTranscriptRenderer creates a renderer writing to out.
// A width of 0 uses the terminal width of out.
func NewTranscriptRenderer(out io.Writer, colorEnabled bool, width int) *TranscriptRenderer {
	if width <= 0 {
		width = TerminalWidth(out, defaultWidth)
	}
	return newTranscriptRenderer(out, newPalette(colorEnabled), width)
}

func newTranscriptRenderer(out io.Writer, colors *palette, width int) *TranscriptRenderer {
	return &TranscriptRenderer{
		out:    out,
		colors: colors,
		width:  width,
		md:     newMarkdownRenderer(colors, width-4),
	}
}

// RenderMessage prints one conversation message.
func (t *TranscriptRenderer) RenderMessage(msg models.Message) {
	fmt.Fprintln(t.out, t.FormatMessage(msg))
}

// FormatMessage returns the rendering of one conversation message.
func (t *TranscriptRenderer) FormatMessage(msg models.Message) string {
	var title string
	var titleColor = t.colors.bold
	var body string

	switch msg.Role {
	case models.RoleSystem:
		title, titleColor = "system", t.colors.system
		body = t.colors.dim.Sprint(strings.TrimSpace(msg.Content))

	case models.RoleUser:
		title, titleColor = "user", t.colors.user
		body = t.md.Render(msg.Content)

	case models.RoleAssistant:
		title, titleColor = "assistant", t.colors.assistant
		var parts []string
		if strings.TrimSpace(msg.Content) != "" {
			parts = append(parts, t.md.Render(msg.Content))
		}
		for _, call := range msg.ToolCalls {
			parts = append(parts, t.colors.tool.Sprint("→ ")+t.colors.code.Sprint(call.String()))
		}
		body = strings.Join(parts, "\n\n")

	case models.RoleTool:
		title, titleColor = "tool: "+msg.Function, t.colors.tool
		if msg.Error != "" {
			body = t.colors.fail.Sprint("Error: " + msg.Error)
		} else {
			body = strings.TrimRight(msg.Content, "\n")
		}

	default:
		title = string(msg.Role)
		body = msg.Content
	}

	if body == "" {
		body = t.colors.dim.Sprint("(no content)")
	}
	return renderPanel(title, body, t.width, titleColor)
}

// RenderHeader prints the rule that opens a sample's transcript.
func (t *TranscriptRenderer) RenderHeader(ref SampleRef) {
	fmt.Fprintln(t.out, renderRule(ref.String(), t.width, t.colors))
}

// RenderScore prints the outcome line of a finished sample.
func (t *TranscriptRenderer) RenderScore(result models.SampleResult) {
	fmt.Fprintln(t.out, t.FormatOutcome(result))
}

// FormatOutcome returns the status and score summary of a finished sample.
func (t *TranscriptRenderer) FormatOutcome(result models.SampleResult) string {
	switch result.Status {
	case models.StatusSuccess:
	case models.StatusTerminated:
		return t.colors.warn.Sprint("Terminated") + t.reason(result.Error)
	case models.StatusCancelled:
		return t.colors.warn.Sprint("Cancelled")
	default:
		return t.colors.fail.Sprint("Error") + t.reason(result.Error)
	}

	if result.Score == nil {
		return t.colors.success.Sprint("Complete")
	}
	line := fmt.Sprintf("%s %s", t.colors.bold.Sprint("Score:"), t.colors.success.Sprint(formatScore(result.Score.Value)))
	if result.Score.Answer != "" {
		line += fmt.Sprintf("  %s %s", t.colors.bold.Sprint("Answer:"), result.Score.Answer)
	}
	if result.Score.Explanation != "" {
		line += "\n" + t.colors.dim.Sprint(result.Score.Explanation)
	}
	return line
}

func (t *TranscriptRenderer) reason(msg string) string {
	if msg == "" {
		return ""
	}
	return ": " + msg
}

// RenderSample prints a complete sample: header, every message and the
// outcome.
func (t *TranscriptRenderer) RenderSample(result models.SampleResult) {
	t.RenderHeader(SampleRef{Task: result.Task, ID: result.Sample.ID, Epoch: result.Epoch})
	for _, msg := range result.Messages {
		t.RenderMessage(msg)
	}
	t.RenderScore(result)
	fmt.Fprintln(t.out)
}

// RenderConversation prints a sequence of messages with no header or outcome.
func (t *TranscriptRenderer) RenderConversation(messages []models.Message) {
	for _, msg := range messages {
		t.RenderMessage(msg)
	}
}

func formatScore(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", v), "0"), ".")
}

// Transcript prints messages the way the conversation display does.
func (c *Console) Transcript(messages []models.Message) {
	newTranscriptRenderer(c.out, c.colors, c.width).RenderConversation(messages)
}
