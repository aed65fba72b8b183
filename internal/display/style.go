package display

import (
	"github.com/fatih/color"
)

// palette holds the colors used for rendering. Every color is forced on or
// off so output does not depend on the global color.NoColor setting.
type palette struct {
	bold      *color.Color
	dim       *color.Color
	italic    *color.Color
	underline *color.Color
	strike    *color.Color
	code      *color.Color
	heading   *color.Color
	link      *color.Color
	rule      *color.Color
	prompt    *color.Color
	choices   *color.Color
	success   *color.Color
	warn      *color.Color
	fail      *color.Color
	system    *color.Color
	user      *color.Color
	assistant *color.Color
	tool      *color.Color
}

func newPalette(enabled bool) *palette {
	p := &palette{
		bold:      color.New(color.Bold),
		dim:       color.New(color.Faint),
		italic:    color.New(color.Italic),
		underline: color.New(color.Underline),
		strike:    color.New(color.CrossedOut),
		code:      color.New(color.FgCyan),
		heading:   color.New(color.Bold, color.FgMagenta),
		link:      color.New(color.Underline, color.FgBlue),
		rule:      color.New(color.FgHiBlack),
		prompt:    color.New(color.Bold),
		choices:   color.New(color.FgMagenta, color.Bold),
		success:   color.New(color.FgGreen),
		warn:      color.New(color.FgYellow),
		fail:      color.New(color.FgRed),
		system:    color.New(color.Faint),
		user:      color.New(color.FgCyan, color.Bold),
		assistant: color.New(color.FgGreen, color.Bold),
		tool:      color.New(color.FgYellow, color.Bold),
	}

	for _, c := range []*color.Color{
		p.bold, p.dim, p.italic, p.underline, p.strike, p.code, p.heading,
		p.link, p.rule, p.prompt, p.choices, p.success, p.warn, p.fail,
		p.system, p.user, p.assistant, p.tool,
	} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}
