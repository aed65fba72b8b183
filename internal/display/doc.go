// Package display renders evaluation progress to the terminal and lets a
// human interact with running samples.
//
// A Display is created for one of four modes:
//
//   - full: a live region of per-task progress rows redrawn in place
//   - conversation: every message of every sample is printed as it arrives
//   - plain: line-oriented output only (progress comes from the console logger)
//   - none: nothing is rendered except input screens
//
// # Input Screens
//
// InputScreen suspends the live display for the duration of a callback so
// the callback can print conversation state and ask questions:
//
//	err := disp.InputScreen(ctx, display.InputScreenOptions{Header: "Approve tool call"},
//	    func(c *display.Console) error {
//	        c.Markdown(state.Output)
//	        ok, err := c.Confirm("Run web_search?", true)
//	        ...
//	    })
//
// Only one screen is open at a time per display; other callers wait for the
// slot (honouring ctx). Log lines written through LogWriter while a screen is
// open are held back and flushed, in order, when it closes. With Transient
// set, a full display runs the screen on the terminal's alternate buffer so
// the progress view returns exactly as it was.
//
// # Console Primitives
//
// Console offers text output (Print, Rule), Markdown, Table and Panel
// rendering, and prompts (Prompt, Confirm, AskInt, AskFloat, Choose).
// Markdown parsing is done by goldmark, tables by go-pretty and panel boxes
// by lipgloss.
//
// All types take io.Writer/io.Reader so they can be driven from tests.
package display
