// Package agent runs a tool-calling language model as a small state graph:
// an agent node that calls the model, a tools node that executes requested
// tool calls, and a router that ends the run once the model stops asking for
// tools. Conversation state is keyed by thread through a Checkpointer.
package agent

import (
	"encoding/json"
	"fmt"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a model's request to run a tool.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	// Invalid holds the rejected argument text when the model sent
	// malformed JSON. Arguments is then empty.
	Invalid string `json:"invalid_arguments,omitempty"`
}

// NewToolCall builds a call from raw model output. Arguments that are not
// valid JSON are moved to Invalid so the message list stays encodable.
func NewToolCall(id, name string, raw []byte) ToolCall {
	c := ToolCall{ID: id, Name: name}
	switch {
	case len(raw) == 0:
	case json.Valid(raw):
		c.Arguments = append(json.RawMessage(nil), raw...)
	default:
		c.Invalid = string(raw)
	}
	return c
}

// argumentsError describes a call whose arguments could not be parsed.
func (c ToolCall) argumentsError() error {
	if c.Invalid == "" {
		return nil
	}
	return fmt.Errorf("invalid tool arguments (not JSON): %s", c.Invalid)
}

// Message is one entry in a conversation.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
	IsError    bool       `json:"is_error,omitempty"`
}

// SystemMessage returns a system message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage returns a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage returns an assistant message without tool calls.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToolMessage returns the result of a tool call.
func ToolMessage(callID, name, content string, isError bool) Message {
	return Message{Role: RoleTool, ToolCallID: callID, Name: name, Content: content, IsError: isError}
}

// HasToolCalls reports whether m is an assistant message requesting tools.
func (m Message) HasToolCalls() bool {
	return m.Role == RoleAssistant && len(m.ToolCalls) > 0
}

// arguments returns the call arguments, defaulting to an empty object.
func (c ToolCall) arguments() json.RawMessage {
	if len(c.Arguments) == 0 {
		return json.RawMessage("{}")
	}
	return c.Arguments
}

// CloneMessages returns a deep copy of msgs.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m
		if m.ToolCalls != nil {
			out[i].ToolCalls = make([]ToolCall, len(m.ToolCalls))
			for j, c := range m.ToolCalls {
				out[i].ToolCalls[j] = c
				if c.Arguments != nil {
					out[i].ToolCalls[j].Arguments = append(json.RawMessage(nil), c.Arguments...)
				}
			}
		}
	}
	return out
}
