package models

import (
	"fmt"
	"sort"
	"strings"
)

// Role identifies the author of a conversation message
type Role string

// Conversation roles
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a model request to invoke a tool
type ToolCall struct {
	ID        string                 `json:"id"`
	Function  string                 `json:"function"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

// String renders the call as function(arg=value, ...) with arguments in key order.
func (c ToolCall) String() string {
	keys := make([]string, 0, len(c.Arguments))
	for k := range c.Arguments {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]string, 0, len(keys))
	for _, k := range keys {
		v := c.Arguments[k]
		if s, ok := v.(string); ok {
			args = append(args, fmt.Sprintf("%s=%q", k, s))
		} else {
			args = append(args, fmt.Sprintf("%s=%v", k, v))
		}
	}
	return fmt.Sprintf("%s(%s)", c.Function, strings.Join(args, ", "))
}

// Message is a single entry in a sample's conversation
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // Set on tool messages
	Function   string     `json:"function,omitempty"`     // Set on tool messages
	Error      string     `json:"error,omitempty"`        // Tool error, if the call failed
}

// SystemMessage creates a system message
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage creates a user message
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage creates an assistant message
func AssistantMessage(content string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// ToolMessage creates a tool result message for the given call
func ToolMessage(call ToolCall, content string, err error) Message {
	msg := Message{
		Role:       RoleTool,
		Content:    content,
		ToolCallID: call.ID,
		Function:   call.Function,
	}
	if err != nil {
		msg.Error = err.Error()
	}
	return msg
}

// HasToolCalls reports whether the message requests any tool invocations
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}
