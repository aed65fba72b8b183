package display

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
)

// Validation messages shown when a prompt answer is rejected
const (
	msgInvalidChoice  = "Please select one of the available options"
	msgInvalidInt     = "Please enter a valid integer number"
	msgInvalidFloat   = "Please enter a valid number"
	msgInvalidConfirm = "Please enter Y or N"
)

// Console is handed to an input screen callback. It writes directly to the
// terminal and reads answers from the display's input.
type Console struct {
	ctx    context.Context
	out    io.Writer
	in     *input
	colors *palette
	width  int
	md     *markdownRenderer
}

func newConsole(ctx context.Context, out io.Writer, in *input, colors *palette, width int) *Console {
	if width <= 0 {
		width = defaultWidth
	}
	return &Console{
		ctx:    ctx,
		out:    out,
		in:     in,
		colors: colors,
		width:  width,
		md:     newMarkdownRenderer(colors, width),
	}
}

// Context returns the context of the input screen the console belongs to.
func (c *Console) Context() context.Context {
	return c.ctx
}

// Width returns the console width in columns.
func (c *Console) Width() int {
	return c.width
}

// Print writes its operands like fmt.Print.
func (c *Console) Print(a ...interface{}) {
	fmt.Fprint(c.out, a...)
}

// Printf writes a formatted string like fmt.Printf.
func (c *Console) Printf(format string, a ...interface{}) {
	fmt.Fprintf(c.out, format, a...)
}

// Println writes its operands followed by a newline.
func (c *Console) Println(a ...interface{}) {
	fmt.Fprintln(c.out, a...)
}

// Rule prints a horizontal line across the console, with an optional
// centered title.
func (c *Console) Rule(title string) {
	fmt.Fprintln(c.out, renderRule(title, c.width, c.colors))
}

// Markdown renders markdown source to the console.
func (c *Console) Markdown(src string) {
	out := c.md.Render(src)
	if out == "" {
		return
	}
	fmt.Fprintln(c.out, out)
}

// Table prints rows under headers as a bordered table.
func (c *Console) Table(headers []string, rows [][]string) {
	fmt.Fprintln(c.out, renderTable(headers, rows, c.width))
}

// Panel prints body inside a rounded box with title set into the top border.
func (c *Console) Panel(title, body string) {
	fmt.Fprintln(c.out, renderPanel(title, body, c.width, c.colors.bold))
}

// PromptOptions configures Prompt
type PromptOptions struct {
	Default       string   // Returned when the answer is empty
	Choices       []string // When set, the answer must be one of these
	CaseSensitive bool     // Match choices case-sensitively
	Password      bool     // Do not echo input (terminal input only)
	HideChoices   bool     // Do not list the choices after the question
	HideDefault   bool     // Do not show the default after the question
}

// Prompt asks a question and returns the answer. With Choices set, answers
// that match no choice are rejected and the question is asked again.
func (c *Console) Prompt(question string, opts PromptOptions) (string, error) {
	for {
		c.writePrompt(question, opts.Choices, !opts.HideChoices, opts.Default, !opts.HideDefault)

		var answer string
		var err error
		if opts.Password {
			answer, err = c.readPassword()
		} else {
			answer, err = c.readLine()
		}
		if err != nil {
			return "", err
		}

		if answer == "" && opts.Default != "" {
			return opts.Default, nil
		}
		if len(opts.Choices) == 0 {
			return answer, nil
		}
		if choice, ok := matchChoice(answer, opts.Choices, opts.CaseSensitive); ok {
			return choice, nil
		}
		c.warn(msgInvalidChoice)
	}
}

// Confirm asks a yes/no question. An empty answer returns defaultYes.
func (c *Console) Confirm(question string, defaultYes bool) (bool, error) {
	def := "n"
	if defaultYes {
		def = "y"
	}
	for {
		c.writePrompt(question, []string{"y", "n"}, true, def, true)
		answer, err := c.readLine()
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "":
			return defaultYes, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		c.warn(msgInvalidConfirm)
	}
}

// AskInt asks for an integer. A nil def means an answer is required.
func (c *Console) AskInt(question string, def *int) (int, error) {
	defText := ""
	if def != nil {
		defText = strconv.Itoa(*def)
	}
	for {
		c.writePrompt(question, nil, false, defText, true)
		answer, err := c.readLine()
		if err != nil {
			return 0, err
		}
		if answer == "" && def != nil {
			return *def, nil
		}
		if v, err := strconv.Atoi(answer); err == nil {
			return v, nil
		}
		c.warn(msgInvalidInt)
	}
}

// AskFloat asks for a number. A nil def means an answer is required.
func (c *Console) AskFloat(question string, def *float64) (float64, error) {
	defText := ""
	if def != nil {
		defText = strconv.FormatFloat(*def, 'g', -1, 64)
	}
	for {
		c.writePrompt(question, nil, false, defText, true)
		answer, err := c.readLine()
		if err != nil {
			return 0, err
		}
		if answer == "" && def != nil {
			return *def, nil
		}
		if v, err := strconv.ParseFloat(answer, 64); err == nil {
			return v, nil
		}
		c.warn(msgInvalidFloat)
	}
}

// Choose lists options as a numbered menu and returns the index of the
// selected one. The answer may be the option's number or its text.
func (c *Console) Choose(question string, options []string) (int, error) {
	if len(options) == 0 {
		return -1, errors.New("choose: no options")
	}

	for i, opt := range options {
		fmt.Fprintf(c.out, "  %s %s\n", c.colors.choices.Sprintf("%d.", i+1), opt)
	}
	for {
		c.writePrompt(question, nil, false, "", false)
		answer, err := c.readLine()
		if err != nil {
			return -1, err
		}
		if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		for i, opt := range options {
			if strings.EqualFold(answer, opt) {
				return i, nil
			}
		}
		c.warn(msgInvalidChoice)
	}
}

func (c *Console) writePrompt(question string, choices []string, showChoices bool, def string, showDefault bool) {
	var b strings.Builder
	b.WriteString(c.colors.prompt.Sprint(question))
	if showChoices && len(choices) > 0 {
		b.WriteString(" " + c.colors.choices.Sprintf("[%s]", strings.Join(choices, "/")))
	}
	if showDefault && def != "" {
		b.WriteString(" " + c.colors.code.Sprintf("(%s)", def))
	}
	b.WriteString(": ")
	fmt.Fprint(c.out, b.String())
}

func (c *Console) warn(msg string) {
	fmt.Fprintln(c.out, c.colors.fail.Sprint(msg))
}

// readLine reads one line of input without its line ending. Input that ends
// without a newline is returned as the final line. Cancelling the screen's
// context abandons the read.
func (c *Console) readLine() (string, error) {
	line, err := c.in.readLine(c.ctx)
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if c.ctx.Err() != nil {
			return "", err
		}
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (c *Console) readPassword() (string, error) {
	if c.in.fd < 0 {
		return c.readLine()
	}
	secret, err := c.in.readPassword(c.ctx)
	fmt.Fprintln(c.out)
	if err != nil {
		if c.ctx.Err() != nil {
			return "", err
		}
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(secret), nil
}

func matchChoice(answer string, choices []string, caseSensitive bool) (string, bool) {
	for _, choice := range choices {
		if caseSensitive && answer == choice {
			return choice, true
		}
		if !caseSensitive && strings.EqualFold(answer, choice) {
			return choice, true
		}
	}
	return "", false
}

// renderRule draws a full-width line with an optional centered title.
func renderRule(title string, width int, colors *palette) string {
	if width <= 0 {
		width = defaultWidth
	}
	if title == "" {
		return colors.rule.Sprint(strings.Repeat("─", width))
	}

	title = runewidth.Truncate(title, width-4, "…")
	titleWidth := runewidth.StringWidth(title) + 2
	left := (width - titleWidth) / 2
	right := width - titleWidth - left
	if left < 0 {
		left = 0
	}
	if right < 0 {
		right = 0
	}
	return colors.rule.Sprint(strings.Repeat("─", left)) + " " + colors.bold.Sprint(title) + " " + colors.rule.Sprint(strings.Repeat("─", right))
}

// renderTable lays out headers and rows with go-pretty, bounded to width.
func renderTable(headers []string, rows [][]string, width int) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	if width > 0 {
		t.SetAllowedRowLength(width)
	}
	if len(headers) > 0 {
		header := make(table.Row, len(headers))
		for i, h := range headers {
			header[i] = h
		}
		t.AppendHeader(header)
	}
	for _, r := range rows {
		row := make(table.Row, len(r))
		for i, cell := range r {
			row[i] = cell
		}
		t.AppendRow(row)
	}
	return t.Render()
}

// panelStyle is the lipgloss box used for panels. Border color is left unset
// so the top border can be spliced with a title.
var panelStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	Padding(0, 1)

// renderPanel draws body inside a rounded box of the given total width, with
// title set into the top border when it fits.
func renderPanel(title, body string, width int, titleColor interface{ Sprint(...interface{}) string }) string {
	if width <= 0 {
		width = defaultWidth
	}
	inner := width - 2
	if inner < 4 {
		inner = 4
	}
	box := panelStyle.Width(inner).Render(body)
	if title == "" {
		return box
	}

	lines := strings.SplitN(box, "\n", 2)
	top := []rune(lines[0])
	plain := runewidth.Truncate(title, len(top)-6, "…")
	titleWidth := runewidth.StringWidth(plain) + 2
	if len(top) < titleWidth+4 {
		return box
	}

	header := string(top[:2]) + " " + titleColor.Sprint(plain) + " " + string(top[2+titleWidth:])
	if len(lines) == 1 {
		return header
	}
	return header + "\n" + lines[1]
}
