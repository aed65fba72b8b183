package display

import (
	"fmt"

	"github.com/harrison/evalrun/internal/models"
)

// conversationDisplay prints every message of a sample as it arrives,
// followed by the sample's score. The runner executes one sample at a time
// in this mode.
type conversationDisplay struct {
	*core
	transcript *TranscriptRenderer
}

func newConversationDisplay(c *core) *conversationDisplay {
	return &conversationDisplay{
		core:       c,
		transcript: newTranscriptRenderer(nil, c.colors, c.width),
	}
}

func (d *conversationDisplay) TaskStart(name string, total int) {
	d.print(renderRule(fmt.Sprintf("%s (%d samples)", name, total), d.width, d.colors) + "\n\n")
}

func (d *conversationDisplay) SampleStart(ref SampleRef) {
	d.print(d.colors.bold.Sprint(ref.String()) + "\n")
}

func (d *conversationDisplay) Message(_ SampleRef, msg models.Message) {
	d.print(d.transcript.FormatMessage(msg) + "\n")
}

func (d *conversationDisplay) SampleComplete(result models.SampleResult) {
	d.print(d.transcript.FormatOutcome(result) + "\n\n")
}

func (d *conversationDisplay) TaskComplete(result models.TaskResult) {
	d.print(formatTaskSummary(result, d.colors) + "\n")
}

func (d *conversationDisplay) Close() error {
	d.markClosed()
	return nil
}
