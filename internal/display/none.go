package display

import "github.com/harrison/evalrun/internal/models"

// noneDisplay renders nothing. Log lines and input screens still reach the
// terminal.
type noneDisplay struct {
	*core
}

func newNoneDisplay(c *core) *noneDisplay {
	return &noneDisplay{core: c}
}

func (d *noneDisplay) TaskStart(string, int)              {}
func (d *noneDisplay) SampleStart(SampleRef)              {}
func (d *noneDisplay) Message(SampleRef, models.Message)  {}
func (d *noneDisplay) SampleComplete(models.SampleResult) {}
func (d *noneDisplay) TaskComplete(models.TaskResult)     {}

func (d *noneDisplay) Close() error {
	d.markClosed()
	return nil
}
