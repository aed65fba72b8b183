package eval

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/harrison/evalrun/internal/display"
	"github.com/harrison/evalrun/internal/models"
)

// syncBuffer is a bytes.Buffer safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// inputDisplay returns a display that reads operator answers from input.
func inputDisplay(input string) (display.Display, *syncBuffer) {
	out := &syncBuffer{}
	return display.New(display.ModeNone, display.Options{Out: out, In: strings.NewReader(input), Width: 80}), out
}

func quietDisplay() display.Display {
	return display.New(display.ModeNone, display.Options{Out: io.Discard, In: strings.NewReader("")})
}

// answerModel replies with the answer mapped to the last user message, or
// fails when the answer is "!error".
type answerModel struct {
	answers map[string]string
}

func (m *answerModel) Name() string { return "mockllm/answers" }

func (m *answerModel) Generate(ctx context.Context, messages []models.Message, tools []models.ToolInfo) (models.Message, error) {
	if err := ctx.Err(); err != nil {
		return models.Message{}, err
	}
	var prompt string
	for _, msg := range messages {
		if msg.Role == models.RoleUser {
			prompt = msg.Content
		}
	}
	answer := m.answers[prompt]
	if answer == "!error" {
		return models.Message{}, errors.New("model overloaded")
	}
	return models.AssistantMessage(answer), nil
}

// fakeTool echoes its "text" argument, or fails when asked to.
type fakeTool struct {
	mu    sync.Mutex
	calls int
}

func (t *fakeTool) Info() models.ToolInfo {
	return models.ToolInfo{
		Name:        "echo",
		Description: "Echo text back.",
		Parameters:  map[string]models.ToolParam{"text": {Type: "string"}},
		Required:    []string{"text"},
	}
}

func (t *fakeTool) Call(ctx context.Context, args map[string]interface{}) (string, error) {
	t.mu.Lock()
	t.calls++
	t.mu.Unlock()
	text, _ := args["text"].(string)
	if text == "fail" {
		return "", errors.New("echo failed")
	}
	return text, nil
}

func (t *fakeTool) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

type fixedApprover struct {
	decision Decision
}

func (a fixedApprover) Approve(context.Context, *TaskState, models.ToolCall) (Decision, error) {
	return a.decision, nil
}
