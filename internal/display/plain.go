package display

import (
	"fmt"
	"sync"
	"time"

	"github.com/harrison/evalrun/internal/logger"
	"github.com/harrison/evalrun/internal/models"
)

// plainDisplay prints one timestamped line per event. It never moves the
// cursor, so its output is safe to pipe or redirect.
type plainDisplay struct {
	*core

	progressMu sync.Mutex
	bars       map[string]*logger.ProgressBar
}

func newPlainDisplay(c *core) *plainDisplay {
	return &plainDisplay{core: c, bars: make(map[string]*logger.ProgressBar)}
}

func (d *plainDisplay) line(format string, args ...interface{}) {
	ts := time.Now().Format("15:04:05")
	d.print(fmt.Sprintf("[%s] %s\n", ts, fmt.Sprintf(format, args...)))
}

func (d *plainDisplay) TaskStart(name string, total int) {
	d.progressMu.Lock()
	d.bars[name] = logger.NewProgressBar(total, barWidth/2, d.colorEnabled)
	d.progressMu.Unlock()

	d.line("Running %s: %d samples", d.colors.bold.Sprint(name), total)
}

func (d *plainDisplay) SampleStart(SampleRef) {}

func (d *plainDisplay) Message(SampleRef, models.Message) {}

func (d *plainDisplay) SampleComplete(result models.SampleResult) {
	d.progressMu.Lock()
	bar, ok := d.bars[result.Task]
	if ok {
		bar.Increment()
	}
	d.progressMu.Unlock()
	if !ok {
		return
	}

	ref := SampleRef{Task: result.Task, ID: result.Sample.ID, Epoch: result.Epoch}
	status := d.colors.success.Sprint(result.Status)
	if !result.Succeeded() {
		status = d.colors.fail.Sprint(result.Status)
	}
	d.line("%s %s %s", bar.Render(), ref, status)
}

func (d *plainDisplay) TaskComplete(result models.TaskResult) {
	d.progressMu.Lock()
	delete(d.bars, result.Task)
	d.progressMu.Unlock()

	d.print(formatTaskSummary(result, d.colors) + "\n")
}

func (d *plainDisplay) Close() error {
	d.markClosed()
	return nil
}
