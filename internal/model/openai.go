package model

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/harrison/evalrun/internal/models"
)

// OpenAI is a model served by the OpenAI Chat Completions API.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates an OpenAI model. It requires the OPENAI_API_KEY
// environment variable and honours OPENAI_BASE_URL for compatible endpoints.
func NewOpenAI(modelName string, opts ...option.RequestOption) (*OpenAI, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	options := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}
	options = append(options, opts...)

	c := openai.NewClient(options...)
	return &OpenAI{client: &c, model: modelName}, nil
}

func (o *OpenAI) Name() string {
	return "openai/" + o.model
}

func (o *OpenAI) Generate(ctx context.Context, messages []models.Message, tools []models.ToolInfo) (models.Message, error) {
	conversation, err := toOpenAIMessages(messages)
	if err != nil {
		return models.Message{}, err
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: conversation,
		Tools:    toOpenAITools(tools),
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return models.Message{}, fmt.Errorf("openai request failed: %w", err)
	}
	return fromOpenAIResponse(resp)
}

func toOpenAIMessages(messages []models.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	var out []openai.ChatCompletionMessageParamUnion
	for _, msg := range messages {
		switch msg.Role {
		case models.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))

		case models.RoleAssistant:
			assistant := openai.ChatCompletionMessage{
				Role:    "assistant",
				Content: msg.Content,
			}
			for _, call := range msg.ToolCalls {
				args, err := json.Marshal(call.Arguments)
				if err != nil {
					return nil, fmt.Errorf("marshal arguments of tool call %s: %w", call.Function, err)
				}
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnion{
					ID:   call.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageFunctionToolCallFunction{
						Name:      call.Function,
						Arguments: string(args),
					},
				})
			}
			out = append(out, assistant.ToParam())

		case models.RoleTool:
			content := msg.Content
			if msg.Error != "" {
				content = "Error: " + msg.Error
			}
			out = append(out, openai.ToolMessage(content, msg.ToolCallID))

		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out, nil
}

func toOpenAITools(tools []models.ToolInfo) []openai.ChatCompletionToolUnionParam {
	if len(tools) == 0 {
		return nil
	}
	var out []openai.ChatCompletionToolUnionParam
	for _, t := range tools {
		params := openai.FunctionParameters{
			"type":       "object",
			"properties": t.Schema(),
		}
		if len(t.Required) > 0 {
			params["required"] = t.Required
		}
		out = append(out, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openai.String(t.Description),
			Parameters:  params,
		}))
	}
	return out
}

func fromOpenAIResponse(resp *openai.ChatCompletion) (models.Message, error) {
	if len(resp.Choices) == 0 {
		return models.AssistantMessage(""), nil
	}

	choice := resp.Choices[0].Message
	var calls []models.ToolCall
	for _, tc := range choice.ToolCalls {
		var args map[string]interface{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return models.Message{}, fmt.Errorf("unmarshal tool call arguments: %w", err)
			}
		}
		calls = append(calls, models.ToolCall{ID: tc.ID, Function: tc.Function.Name, Arguments: args})
	}
	return models.AssistantMessage(choice.Content, calls...), nil
}
