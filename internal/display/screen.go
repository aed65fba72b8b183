package display

import (
	"context"
	"errors"
	"io"
	"sync"
)

var (
	// ErrDisplayClosed is returned by InputScreen after Close.
	ErrDisplayClosed = errors.New("display is closed")
	// ErrScreenNested is returned when InputScreen is called from inside
	// another input screen of the same display, either with the Console's
	// context (or one derived from it) or with the context that opened the
	// outer screen.
	ErrScreenNested = errors.New("input screen is already open in this context")
)

// InputScreenOptions configures an input screen
type InputScreenOptions struct {
	// Header is printed as a rule at the top of the screen when set.
	Header string
	// Transient runs the screen on the terminal's alternate buffer so its
	// output disappears when the screen closes. Only the full display has an
	// alternate buffer; other displays leave the output in place.
	Transient bool
	// Width overrides the console width in columns.
	Width int
}

// liveRegion is implemented by displays that keep redrawn content on screen.
// Both methods are called with core.mu held.
type liveRegion interface {
	eraseLocked()
	drawLocked()
}

// core holds the terminal state shared by every display implementation:
// output serialization, the single input screen slot and log lines held back
// while a screen is open.
type core struct {
	out          io.Writer
	in           *input
	colors       *palette
	colorEnabled bool
	width        int
	slot         chan struct{}

	mu        sync.Mutex
	screenCtx context.Context // context that opened the current screen
	suspended bool
	closed    bool
	held      [][]byte
	live      liveRegion
}

type screenKey struct{ c *core }

// InputScreen waits for the display's input slot, suspends live rendering,
// prints the optional header and runs fn. When fn returns (or panics) the
// display is restored: held log lines are flushed in order and the live
// region is redrawn.
func (c *core) InputScreen(ctx context.Context, opts InputScreenOptions, fn func(*Console) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Value(screenKey{c}) != nil || c.isScreenContext(ctx) {
		return ErrScreenNested
	}

	select {
	case c.slot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-c.slot }()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrDisplayClosed
	}
	c.screenCtx = ctx
	c.suspended = true
	alt := false
	if c.live != nil {
		c.live.eraseLocked()
		io.WriteString(c.out, showCursor)
		alt = opts.Transient
	}
	c.mu.Unlock()

	if alt {
		io.WriteString(c.out, enterAltScreen)
	}
	defer c.restore(alt)

	width := c.width
	if opts.Width > 0 {
		width = opts.Width
	}
	console := newConsole(context.WithValue(ctx, screenKey{c}, true), c.out, c.in, c.colors, width)
	if opts.Header != "" {
		console.Rule(opts.Header)
	}
	return fn(console)
}

func (c *core) restore(alt bool) {
	if alt {
		io.WriteString(c.out, leaveAltScreen)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.screenCtx = nil
	c.suspended = false
	held := c.held
	c.held = nil
	for _, p := range held {
		c.out.Write(p)
	}
	if c.live != nil && !c.closed {
		c.live.drawLocked()
	}
}

func (c *core) isScreenContext(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.screenCtx != nil && c.screenCtx == ctx
}

// Suspended reports whether an input screen is currently open.
func (c *core) Suspended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suspended
}

// LogWriter returns a writer whose lines are printed above the live region,
// or held until the open input screen closes.
func (c *core) LogWriter() io.Writer {
	return logWriter{c: c}
}

type logWriter struct {
	c *core
}

func (w logWriter) Write(p []byte) (int, error) {
	w.c.mu.Lock()
	defer w.c.mu.Unlock()
	if err := w.c.emitLocked(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// print writes s as permanent output, honouring suspension.
func (c *core) print(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emitLocked([]byte(s))
}

// emitLocked writes p above the live region, or holds a copy while a screen
// is open.
func (c *core) emitLocked(p []byte) error {
	if c.suspended {
		c.held = append(c.held, append([]byte(nil), p...))
		return nil
	}
	if c.live != nil && !c.closed {
		c.live.eraseLocked()
	}
	_, err := c.out.Write(p)
	if c.live != nil && !c.closed {
		c.live.drawLocked()
	}
	return err
}

// markClosed flags the display closed; it reports false if it already was.
func (c *core) markClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	return true
}
