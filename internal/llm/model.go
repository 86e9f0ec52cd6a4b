package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Request is a single chat completion call
type Request struct {
	Messages []Message
	Tools    []ToolSpec
	// ToolChoice forces a call to the named tool; empty lets the model pick.
	ToolChoice string
}

// Model generates the next assistant message
type Model interface {
	Generate(ctx context.Context, req Request) (Message, error)
}

// Invoke sends msgs and returns the reply text.
func Invoke(ctx context.Context, m Model, msgs ...Message) (string, error) {
	reply, err := m.Generate(ctx, Request{Messages: msgs})
	if err != nil {
		return "", err
	}
	return reply.Content, nil
}

// Schema names a structured output shape. Parameters is a JSON schema
// object describing the fields of the target struct.
type Schema struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// InvokeStructured asks the model to answer by calling a tool shaped like
// schema and decodes the arguments into out. A reply that skips the tool
// call but carries JSON in its content is accepted as well.
func InvokeStructured(ctx context.Context, m Model, schema Schema, msgs []Message, out interface{}) error {
	reply, err := m.Generate(ctx, Request{
		Messages: msgs,
		Tools: []ToolSpec{{
			Name:        schema.Name,
			Description: schema.Description,
			Parameters:  schema.Parameters,
		}},
		ToolChoice: schema.Name,
	})
	if err != nil {
		return err
	}

	for _, call := range reply.ToolCalls {
		if call.Name != schema.Name {
			continue
		}
		if err := json.Unmarshal([]byte(call.Arguments), out); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMalformedOutput, schema.Name, err)
		}
		return nil
	}

	body := stripFences(reply.Content)
	if body == "" {
		return fmt.Errorf("%w: %s: no tool call and no content", ErrMalformedOutput, schema.Name)
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedOutput, schema.Name, err)
	}
	return nil
}

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
