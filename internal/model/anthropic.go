package model

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/harrison/evalrun/internal/models"
)

const anthropicMaxTokens = 4096

// Anthropic is a model served by the Anthropic Messages API.
type Anthropic struct {
	client *anthropic.Client
	model  string
}

// NewAnthropic creates an Anthropic model.
// It requires the ANTHROPIC_API_KEY environment variable; ANTHROPIC_BASE_URL
// overrides the API endpoint.
func NewAnthropic(modelName string, opts ...option.RequestOption) (*Anthropic, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
	}

	options := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL := os.Getenv("ANTHROPIC_BASE_URL"); baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}
	options = append(options, opts...)

	client := anthropic.NewClient(options...)
	return &Anthropic{client: &client, model: modelName}, nil
}

func (a *Anthropic) Name() string {
	return "anthropic/" + a.model
}

func (a *Anthropic) Generate(ctx context.Context, messages []models.Message, tools []models.ToolInfo) (models.Message, error) {
	conversation, system, err := toAnthropicMessages(messages)
	if err != nil {
		return models.Message{}, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: anthropicMaxTokens,
		Messages:  conversation,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	for _, t := range toAnthropicTools(tools) {
		tool := t
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{OfTool: &tool})
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return models.Message{}, fmt.Errorf("anthropic request failed: %w", err)
	}
	return fromAnthropicResponse(resp)
}

// toAnthropicMessages converts a conversation. System messages are joined
// into the system prompt and consecutive tool results are grouped into one
// user turn, as the Messages API requires.
func toAnthropicMessages(messages []models.Message) ([]anthropic.MessageParam, string, error) {
	var out []anthropic.MessageParam
	var system []string
	toolTurn := false

	for _, msg := range messages {
		switch msg.Role {
		case models.RoleSystem:
			system = append(system, msg.Content)
			continue

		case models.RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))

		case models.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				input, err := json.Marshal(call.Arguments)
				if err != nil {
					return nil, "", fmt.Errorf("marshal arguments of tool call %s: %w", call.Function, err)
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, json.RawMessage(input), call.Function))
			}
			if len(blocks) == 0 {
				continue
			}
			out = append(out, anthropic.NewAssistantMessage(blocks...))

		case models.RoleTool:
			content, isError := msg.Content, false
			if msg.Error != "" {
				content, isError = msg.Error, true
			}
			block := anthropic.NewToolResultBlock(msg.ToolCallID, content, isError)
			if toolTurn {
				last := &out[len(out)-1]
				last.Content = append(last.Content, block)
			} else {
				out = append(out, anthropic.NewUserMessage(block))
			}
			toolTurn = true
			continue
		}
		toolTurn = false
	}

	return out, strings.Join(system, "\n\n"), nil
}

func toAnthropicTools(tools []models.ToolInfo) []anthropic.ToolParam {
	var out []anthropic.ToolParam
	for _, t := range tools {
		out = append(out, anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: t.Schema(),
				Required:   t.Required,
			},
		})
	}
	return out
}

func fromAnthropicResponse(resp *anthropic.Message) (models.Message, error) {
	var text strings.Builder
	var calls []models.ToolCall

	for _, block := range resp.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(b.Text)
		case anthropic.ToolUseBlock:
			var args map[string]interface{}
			if len(b.Input) > 0 {
				if err := json.Unmarshal(b.Input, &args); err != nil {
					return models.Message{}, fmt.Errorf("unmarshal tool call input: %w", err)
				}
			}
			calls = append(calls, models.ToolCall{ID: b.ID, Function: b.Name, Arguments: args})
		}
	}

	return models.AssistantMessage(text.String(), calls...), nil
}
