// Package model connects evaluations to language model providers.
//
// Models are addressed as "provider/model", for example
// "anthropic/claude-sonnet-4-5", "openai/gpt-4o" or "mockllm/model".
package model

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/harrison/evalrun/internal/models"
)

// ErrUnknownProvider is returned by Get for an unregistered provider.
var ErrUnknownProvider = errors.New("unknown model provider")

// Model generates the next assistant message of a conversation
type Model interface {
	// Name returns the "provider/model" name.
	Name() string
	// Generate returns the assistant's reply to messages. Tool calls in the
	// reply refer to entries of tools.
	Generate(ctx context.Context, messages []models.Message, tools []models.ToolInfo) (models.Message, error)
}

// Factory creates a model of one provider from the model part of its name.
type Factory func(modelName string) (Model, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{
		"anthropic": func(name string) (Model, error) { return NewAnthropic(name) },
		"openai":    func(name string) (Model, error) { return NewOpenAI(name) },
		"mockllm":   func(name string) (Model, error) { return NewMock(name), nil },
	}
)

// Register adds or replaces a provider.
func Register(provider string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[provider] = factory
}

// Providers returns the registered provider names, sorted.
func Providers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get resolves a "provider/model" name.
func Get(name string) (Model, error) {
	provider, modelName, ok := strings.Cut(strings.TrimSpace(name), "/")
	if !ok || provider == "" || modelName == "" {
		return nil, fmt.Errorf("invalid model name %q: expected provider/model", name)
	}

	registryMu.RLock()
	factory, found := registry[provider]
	registryMu.RUnlock()
	if !found {
		return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownProvider, provider, strings.Join(Providers(), ", "))
	}

	m, err := factory(modelName)
	if err != nil {
		return nil, fmt.Errorf("create model %s: %w", name, err)
	}
	return m, nil
}

// limited bounds the number of concurrent Generate calls of a model.
type limited struct {
	Model
	sem chan struct{}
}

// WithMaxConnections wraps m so at most n Generate calls run at once.
// n <= 0 returns m unchanged.
func WithMaxConnections(m Model, n int) Model {
	if n <= 0 {
		return m
	}
	return &limited{Model: m, sem: make(chan struct{}, n)}
}

func (l *limited) Generate(ctx context.Context, messages []models.Message, tools []models.ToolInfo) (models.Message, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return models.Message{}, ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.Model.Generate(ctx, messages, tools)
}
