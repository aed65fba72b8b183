package display

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

const defaultWidth = 100

// ANSI control sequences used by the live display and input screens
const (
	cursorUpFmt    = "\x1b[%dA"
	eraseDown      = "\x1b[J"
	enterAltScreen = "\x1b[?1049h\x1b[H"
	leaveAltScreen = "\x1b[?1049l"
	hideCursor     = "\x1b[?25l"
	showCursor     = "\x1b[?25h"
)

type fdWriter interface {
	Fd() uintptr
}

// IsTerminal reports whether w is attached to an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(fdWriter)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// TerminalWidth returns the column count of w, or fallback when w is not a
// terminal or its size cannot be read.
func TerminalWidth(w io.Writer, fallback int) int {
	f, ok := w.(fdWriter)
	if !ok {
		return fallback
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}

// inputFd returns the descriptor of r when it is a terminal, otherwise -1.
func inputFd(r io.Reader) int {
	f, ok := r.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return -1
	}
	return int(f.Fd())
}
