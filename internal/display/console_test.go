package display

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConsole(input string) (*Console, *bytes.Buffer) {
	var out bytes.Buffer
	return newConsole(context.Background(), &out, newInput(strings.NewReader(input)), newPalette(false), 40), &out
}

func TestConsolePrompt(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		opts    PromptOptions
		want    string
		warning bool
	}{
		{name: "plain answer", input: "hello\n", want: "hello"},
		{name: "trims whitespace", input: "  hi  \n", want: "hi"},
		{name: "default on empty", input: "\n", opts: PromptOptions{Default: "x"}, want: "x"},
		{name: "choice case-insensitive", input: "BLUE\n", opts: PromptOptions{Choices: []string{"red", "blue"}}, want: "blue"},
		{name: "invalid choice reprompts", input: "green\nred\n", opts: PromptOptions{Choices: []string{"red", "blue"}}, want: "red", warning: true},
		{name: "case-sensitive choice", input: "Red\nred\n", opts: PromptOptions{Choices: []string{"red"}, CaseSensitive: true}, want: "red", warning: true},
		{name: "final line without newline", input: "last", want: "last"},
		{name: "password falls back to line input", input: "secret\n", opts: PromptOptions{Password: true}, want: "secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, out := newTestConsole(tt.input)
			got, err := c.Prompt("Color", tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.warning, strings.Contains(out.String(), msgInvalidChoice))
		})
	}
}

func TestConsolePromptFormat(t *testing.T) {
	c, out := newTestConsole("\n")
	_, err := c.Prompt("Pick", PromptOptions{Choices: []string{"a", "b"}, Default: "a"})
	require.NoError(t, err)
	assert.Equal(t, "Pick [a/b] (a): ", out.String())

	c, out = newTestConsole("\n")
	_, err = c.Prompt("Pick", PromptOptions{Choices: []string{"a", "b"}, Default: "a", HideChoices: true, HideDefault: true})
	require.NoError(t, err)
	assert.Equal(t, "Pick: ", out.String())
}

func TestConsolePromptEOF(t *testing.T) {
	c, _ := newTestConsole("")
	_, err := c.Prompt("Name", PromptOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read input")
}

func TestConsoleConfirm(t *testing.T) {
	tests := []struct {
		input      string
		defaultYes bool
		want       bool
	}{
		{"y\n", false, true},
		{"YES\n", false, true},
		{"n\n", true, false},
		{"no\n", true, false},
		{"\n", true, true},
		{"\n", false, false},
		{"maybe\ny\n", false, true},
	}

	for _, tt := range tests {
		c, out := newTestConsole(tt.input)
		got, err := c.Confirm("Continue?", tt.defaultYes)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
		if strings.HasPrefix(tt.input, "maybe") {
			assert.Contains(t, out.String(), msgInvalidConfirm)
		}
	}
}

func TestConsoleAskInt(t *testing.T) {
	c, out := newTestConsole("abc\n42\n")
	got, err := c.AskInt("Count", nil)
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Contains(t, out.String(), msgInvalidInt)

	def := 7
	c, out = newTestConsole("\n")
	got, err = c.AskInt("Count", &def)
	require.NoError(t, err)
	assert.Equal(t, 7, got)
	assert.Contains(t, out.String(), "(7)")
}

func TestConsoleAskFloat(t *testing.T) {
	c, out := newTestConsole("x\n0.25\n")
	got, err := c.AskFloat("Score", nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, got, 1e-9)
	assert.Contains(t, out.String(), "Please enter a valid number")

	def := 0.5
	c, _ = newTestConsole("\n")
	got, err = c.AskFloat("Score", &def)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got, 1e-9)
}

func TestConsoleChoose(t *testing.T) {
	c, out := newTestConsole("3\nbeta\n")
	got, err := c.Choose("Which", []string{"alpha", "beta"})
	require.NoError(t, err)
	assert.Equal(t, 1, got)
	assert.Contains(t, out.String(), "1. alpha")
	assert.Contains(t, out.String(), "2. beta")
	assert.Contains(t, out.String(), msgInvalidChoice)

	c, _ = newTestConsole("1\n")
	got, err = c.Choose("Which", []string{"alpha", "beta"})
	require.NoError(t, err)
	assert.Equal(t, 0, got)

	c, _ = newTestConsole("")
	_, err = c.Choose("Which", nil)
	assert.Error(t, err)
}

func TestConsoleRule(t *testing.T) {
	p := newPalette(false)
	assert.Equal(t, strings.Repeat("─", 10), renderRule("", 10, p))
	assert.Equal(t, "─── hi ───", renderRule("hi", 10, p))
}

func TestConsolePanel(t *testing.T) {
	p := newPalette(false)
	out := renderPanel("user", "hello", 40, p.bold)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)

	assert.True(t, strings.HasPrefix(lines[0], "╭─ user ─"), lines[0])
	assert.Equal(t, 40, len([]rune(lines[0])))
	assert.Contains(t, lines[1], "hello")
	assert.True(t, strings.HasPrefix(lines[2], "╰"))
}

func TestConsolePanelWithoutTitle(t *testing.T) {
	out := renderPanel("", "body", 20, newPalette(false).bold)
	assert.True(t, strings.HasPrefix(out, "╭──"))
	assert.Contains(t, out, "body")
}

func TestConsoleTable(t *testing.T) {
	c, out := newTestConsole("")
	c.Table([]string{"task", "accuracy"}, [][]string{{"arith", "0.9"}, {"trivia", "0.5"}})

	s := out.String()
	assert.Contains(t, s, "╭")
	assert.Contains(t, s, "TASK")
	assert.Contains(t, s, "arith")
	assert.Contains(t, s, "0.5")
}
