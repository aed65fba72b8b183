package display

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/harrison/evalrun/internal/logger"
	"github.com/harrison/evalrun/internal/models"
)

const (
	maxTaskNameWidth = 32
	barWidth         = 20
)

// taskRow is the live state of one running task.
type taskRow struct {
	name      string
	total     int
	completed int
	failed    int
	running   int
	started   time.Time
}

// fullDisplay keeps one progress row per running task at the bottom of the
// terminal and redraws it on a ticker. Log lines and completed task
// summaries are printed above the rows.
type fullDisplay struct {
	*core

	interval time.Duration
	rows     []*taskRow
	lines    int

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func newFullDisplay(c *core, interval time.Duration) *fullDisplay {
	d := &fullDisplay{
		core:     c,
		interval: interval,
		done:     make(chan struct{}),
	}
	c.live = d

	d.wg.Add(1)
	go d.refreshLoop()
	return d
}

func (d *fullDisplay) refreshLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.done:
			return
		case <-ticker.C:
			d.mu.Lock()
			if !d.suspended && !d.closed {
				d.eraseLocked()
				d.drawLocked()
			}
			d.mu.Unlock()
		}
	}
}

func (d *fullDisplay) rowLocked(name string) *taskRow {
	for _, row := range d.rows {
		if row.name == name {
			return row
		}
	}
	return nil
}

func (d *fullDisplay) TaskStart(name string, total int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rowLocked(name) != nil {
		return
	}
	d.rows = append(d.rows, &taskRow{name: name, total: total, started: time.Now()})
}

func (d *fullDisplay) SampleStart(ref SampleRef) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if row := d.rowLocked(ref.Task); row != nil {
		row.running++
	}
}

// Message is not shown in full mode; the transcript is kept in the logs.
func (d *fullDisplay) Message(SampleRef, models.Message) {}

func (d *fullDisplay) SampleComplete(result models.SampleResult) {
	d.mu.Lock()
	defer d.mu.Unlock()
	row := d.rowLocked(result.Task)
	if row == nil {
		return
	}
	if row.running > 0 {
		row.running--
	}
	row.completed++
	if !result.Succeeded() {
		row.failed++
	}
}

func (d *fullDisplay) TaskComplete(result models.TaskResult) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, row := range d.rows {
		if row.name == result.Task {
			d.rows = append(d.rows[:i], d.rows[i+1:]...)
			break
		}
	}
	d.emitLocked([]byte(formatTaskSummary(result, d.colors) + "\n"))
}

// Close stops the refresh loop and leaves the last rows on screen.
func (d *fullDisplay) Close() error {
	d.closeOnce.Do(func() {
		close(d.done)
		d.wg.Wait()

		d.mu.Lock()
		defer d.mu.Unlock()
		if !d.suspended {
			d.eraseLocked()
			d.drawLocked()
		}
		d.lines = 0
		d.closed = true
		io.WriteString(d.out, showCursor)
	})
	return nil
}

func (d *fullDisplay) eraseLocked() {
	if d.lines == 0 {
		return
	}
	fmt.Fprintf(d.out, "\r"+cursorUpFmt+eraseDown, d.lines)
	d.lines = 0
}

func (d *fullDisplay) drawLocked() {
	if len(d.rows) == 0 {
		return
	}

	nameWidth := 0
	for _, row := range d.rows {
		if w := runewidth.StringWidth(row.name); w > nameWidth {
			nameWidth = w
		}
	}
	if nameWidth > maxTaskNameWidth {
		nameWidth = maxTaskNameWidth
	}

	var b strings.Builder
	b.WriteString(hideCursor)
	for _, row := range d.rows {
		b.WriteString(d.formatRow(row, nameWidth))
		b.WriteByte('\n')
	}
	io.WriteString(d.out, b.String())
	d.lines = len(d.rows)
}

func (d *fullDisplay) formatRow(row *taskRow, nameWidth int) string {
	name := runewidth.FillRight(runewidth.Truncate(row.name, nameWidth, "…"), nameWidth)

	bar := logger.NewProgressBar(row.total, barWidth, d.colorEnabled)
	bar.Update(row.completed)

	line := fmt.Sprintf("%s %s", d.colors.bold.Sprint(name), bar.Render())
	if row.running > 0 {
		line += d.colors.dim.Sprintf("  running %d", row.running)
	}
	if row.failed > 0 {
		line += d.colors.fail.Sprintf("  errors %d", row.failed)
	}
	line += d.colors.dim.Sprintf("  %s", logger.FormatDuration(time.Since(row.started)))

	return line
}

// formatTaskSummary is the permanent line printed when a task finishes.
func formatTaskSummary(result models.TaskResult, colors *palette) string {
	succeeded, failed := result.Counts()
	total := succeeded + failed

	mark := colors.success.Sprint("✓")
	if failed > 0 {
		mark = colors.warn.Sprint("!")
	}

	line := fmt.Sprintf("%s %s  %d/%d samples", mark, colors.bold.Sprint(result.Task), succeeded, total)
	if failed > 0 {
		line += colors.fail.Sprintf("  %d failed", failed)
	}
	line += fmt.Sprintf("  accuracy %.3f", result.Accuracy())
	line += colors.dim.Sprintf("  (%s)", logger.FormatDuration(result.Duration))
	return line
}
