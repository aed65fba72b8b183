package model

import (
	"context"
	"sync"

	"github.com/harrison/evalrun/internal/models"
)

// DefaultMockOutput is returned by a mock model with no scripted outputs left.
const DefaultMockOutput = "Default output from mockllm/model"

// Mock is a model that replays scripted outputs in order, then returns
// DefaultMockOutput. It records every conversation it was asked about.
type Mock struct {
	name string

	mu      sync.Mutex
	outputs []models.Message
	calls   [][]models.Message
}

// NewMock creates a mock model that replays outputs.
func NewMock(name string, outputs ...models.Message) *Mock {
	return &Mock{name: name, outputs: outputs}
}

func (m *Mock) Name() string {
	return "mockllm/" + m.name
}

func (m *Mock) Generate(ctx context.Context, messages []models.Message, tools []models.ToolInfo) (models.Message, error) {
	if err := ctx.Err(); err != nil {
		return models.Message{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, append([]models.Message(nil), messages...))
	if len(m.outputs) == 0 {
		return models.AssistantMessage(DefaultMockOutput), nil
	}
	out := m.outputs[0]
	m.outputs = m.outputs[1:]
	if out.Role == "" {
		out.Role = models.RoleAssistant
	}
	return out, nil
}

// Calls returns the conversations passed to Generate so far.
func (m *Mock) Calls() [][]models.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]models.Message(nil), m.calls...)
}
