package display

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/harrison/evalrun/internal/models"
)

// Display renders evaluation progress and hosts input screens.
// Implementations are safe for concurrent use by running samples.
type Display interface {
	// TaskStart announces a task with total sample epochs to run.
	TaskStart(name string, total int)
	// SampleStart announces that a sample epoch began running.
	SampleStart(ref SampleRef)
	// Message reports a message appended to a running sample's conversation.
	Message(ref SampleRef, msg models.Message)
	// SampleComplete reports a finished sample epoch.
	SampleComplete(result models.SampleResult)
	// TaskComplete reports a finished task.
	TaskComplete(result models.TaskResult)
	// LogWriter returns a writer for log lines that cooperates with the
	// live display and with open input screens.
	LogWriter() io.Writer
	// InputScreen suspends the display and runs fn with a Console. Screens
	// are serialized: a call waits until the open screen closes. Calls made
	// from inside fn, with c.Context() or with the context that opened the
	// screen, return ErrScreenNested. Concurrent callers must therefore not
	// share one context.
	InputScreen(ctx context.Context, opts InputScreenOptions, fn func(*Console) error) error
	// Close stops rendering. Input screens fail with ErrDisplayClosed afterwards.
	Close() error
}

// Options configures a Display
type Options struct {
	Out             io.Writer     // Defaults to os.Stdout
	In              io.Reader     // Defaults to os.Stdin
	NoColor         bool          // Disable ANSI colors
	Width           int           // Columns; 0 detects the terminal width
	RefreshInterval time.Duration // Live redraw interval for full mode
	ForceTerminal   bool          // Treat Out as an interactive terminal
}

// New creates a Display for mode. A full display on a writer that is not a
// terminal falls back to plain output.
func New(mode Mode, opts Options) Display {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	interactive := opts.ForceTerminal || IsTerminal(opts.Out)
	if opts.Width <= 0 {
		opts.Width = TerminalWidth(opts.Out, defaultWidth)
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 250 * time.Millisecond
	}

	colorEnabled := !opts.NoColor && !color.NoColor && interactive
	c := newCore(opts.Out, opts.In, colorEnabled, opts.Width)

	switch mode {
	case ModeConversation:
		return newConversationDisplay(c)
	case ModePlain:
		return newPlainDisplay(c)
	case ModeNone:
		return newNoneDisplay(c)
	default:
		if !interactive {
			return newPlainDisplay(c)
		}
		return newFullDisplay(c, opts.RefreshInterval)
	}
}

func newCore(out io.Writer, in io.Reader, colorEnabled bool, width int) *core {
	return &core{
		out:          out,
		in:           newInput(in),
		colors:       newPalette(colorEnabled),
		colorEnabled: colorEnabled,
		width:        width,
		slot:         make(chan struct{}, 1),
	}
}
