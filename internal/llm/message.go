// Package llm is the chat-model boundary: message and tool types, the
// Model interface the workflows call, structured output on top of forced
// tool calls, and an OpenAI-compatible implementation.
package llm

import (
	"encoding/json"
	"fmt"
)

// Role of a chat message author
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a model's request to run a tool with JSON arguments.
type ToolCall struct {
	ID        string `json:"id" msgpack:"id"`
	Name      string `json:"name" msgpack:"name"`
	Arguments string `json:"arguments" msgpack:"arguments"`
}

// Message is one chat turn. Tool results carry ToolCallID and Name of the
// call they answer.
type Message struct {
	Role       Role       `json:"role" msgpack:"role"`
	Content    string     `json:"content" msgpack:"content"`
	Name       string     `json:"name,omitempty" msgpack:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty" msgpack:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty" msgpack:"tool_call_id,omitempty"`
}

func System(content string) Message { return Message{Role: RoleSystem, Content: content} }
func Human(content string) Message  { return Message{Role: RoleUser, Content: content} }
func AI(content string) Message     { return Message{Role: RoleAssistant, Content: content} }

// ToolResult answers call with content.
func ToolResult(call ToolCall, content string) Message {
	return Message{Role: RoleTool, Content: content, Name: call.Name, ToolCallID: call.ID}
}

// HasToolCalls reports whether the message asks for tools to run
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// ToolSpec describes a callable tool. Parameters is a JSON schema object.
type ToolSpec struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// MessagesFrom converts a state value back into messages. It accepts the
// typed slice nodes write and the generic shapes a checkpoint round trip
// leaves behind.
func MessagesFrom(v interface{}) ([]Message, error) {
	switch m := v.(type) {
	case nil:
		return nil, nil
	case []Message:
		return m, nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("messages: %w", err)
		}
		var out []Message
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("messages: %w", err)
		}
		return out, nil
	}
}
