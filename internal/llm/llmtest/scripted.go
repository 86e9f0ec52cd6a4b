// Package llmtest provides a scripted llm.Model for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"github.com/flowgraph/csagent/internal/llm"
)

// ErrScriptExhausted is returned once every scripted reply was used.
var ErrScriptExhausted = errors.New("llmtest: no scripted reply left")

// Reply computes the model's answer to a request.
type Reply func(req llm.Request) (llm.Message, error)

// Scripted answers requests with Replies in order and records every
// request it receives.
type Scripted struct {
	mu       sync.Mutex
	Replies  []Reply
	Requests []llm.Request
}

// Generate implements llm.Model
func (s *Scripted) Generate(_ context.Context, req llm.Request) (llm.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Requests = append(s.Requests, req)
	if len(s.Replies) == 0 {
		return llm.Message{}, ErrScriptExhausted
	}
	next := s.Replies[0]
	s.Replies = s.Replies[1:]
	return next(req)
}

// Calls returns how many requests were made
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Requests)
}

// Text replies with plain content.
func Text(content string) Reply {
	return func(llm.Request) (llm.Message, error) { return llm.AI(content), nil }
}

// Call replies with a single tool call.
func Call(id, name, arguments string) Reply {
	return func(llm.Request) (llm.Message, error) {
		return llm.Message{
			Role:      llm.RoleAssistant,
			ToolCalls: []llm.ToolCall{{ID: id, Name: name, Arguments: arguments}},
		}, nil
	}
}

// Fail replies with err.
func Fail(err error) Reply {
	return func(llm.Request) (llm.Message, error) { return llm.Message{}, err }
}

// Func answers every request with fn and never runs out.
type Func func(req llm.Request) (llm.Message, error)

// Generate implements llm.Model
func (f Func) Generate(_ context.Context, req llm.Request) (llm.Message, error) {
	return f(req)
}
