package react

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph/csagent/internal/hub"
	"github.com/flowgraph/csagent/internal/llm"
	"github.com/flowgraph/csagent/internal/llm/llmtest"
	"github.com/flowgraph/csagent/pkg/flowgraph"
	"github.com/flowgraph/csagent/pkg/prebuilt"
)

type echoTool struct {
	calls []string
	err   error
}

func (t *echoTool) Name() string        { return "search" }
func (t *echoTool) Description() string { return "searches" }
func (t *echoTool) Parameters() map[string]interface{} {
	return map[string]interface{}{"type": "object"}
}
func (t *echoTool) Call(_ context.Context, args string) (string, error) {
	t.calls = append(t.calls, args)
	if t.err != nil {
		return "", t.err
	}
	return "result for " + args, nil
}

func reactPrompt() *hub.ChatPrompt {
	return &hub.ChatPrompt{Messages: []hub.PromptMessage{
		{Kind: hub.KindSystem, Template: "You are a helpful assistant."},
		{Kind: hub.KindPlaceholder, Variable: "messages"},
	}}
}

func TestAgent_NoToolCall(t *testing.T) {
	model := &llmtest.Scripted{Replies: []llmtest.Reply{llmtest.Text("Oracle Database is a relational DBMS.")}}
	tool := &echoTool{}
	agent, err := New(context.Background(), Config{Model: model, Tools: []Tool{tool}, Prompt: reactPrompt()})
	require.NoError(t, err)

	in := []llm.Message{llm.Human("What is Oracle database")}
	out, err := agent.Invoke(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 1, model.Calls())
	assert.Empty(t, tool.calls)
	assert.Equal(t, []llm.Message{
		llm.Human("What is Oracle database"),
		llm.AI("Oracle Database is a relational DBMS."),
	}, out)

	req := model.Requests[0]
	assert.Equal(t, []llm.Message{llm.System("You are a helpful assistant."), llm.Human("What is Oracle database")}, req.Messages)
	require.Len(t, req.Tools, 1)
	assert.Equal(t, "search", req.Tools[0].Name)
	assert.Empty(t, req.ToolChoice)
}

func TestAgent_ToolLoop(t *testing.T) {
	model := &llmtest.Scripted{Replies: []llmtest.Reply{
		llmtest.Call("call_1", "search", `{"query":"oracle"}`),
		llmtest.Call("call_2", "missing", `{}`),
		llmtest.Text("done"),
	}}
	tool := &echoTool{}
	agent, err := New(context.Background(), Config{Model: model, Tools: []Tool{tool}, SystemPrompt: "sys"})
	require.NoError(t, err)

	out, err := agent.Invoke(context.Background(), []llm.Message{llm.Human("q")})
	require.NoError(t, err)

	require.Len(t, out, 6)
	assert.Equal(t, llm.RoleUser, out[0].Role)
	assert.True(t, out[1].HasToolCalls())
	assert.Equal(t, llm.Message{Role: llm.RoleTool, Content: `result for {"query":"oracle"}`, Name: "search", ToolCallID: "call_1"}, out[2])
	assert.Equal(t, "Error: missing is not a valid tool", out[4].Content)
	assert.Equal(t, llm.AI("done"), out[5])
	assert.Equal(t, []string{`{"query":"oracle"}`}, tool.calls)

	assert.Equal(t, 3, model.Calls())
	last := model.Requests[2].Messages
	assert.Equal(t, llm.System("sys"), last[0])
	assert.Len(t, last, 6)
}

func TestAgent_ToolErrorBecomesMessage(t *testing.T) {
	model := &llmtest.Scripted{Replies: []llmtest.Reply{
		llmtest.Call("c", "search", `{"query":"x"}`),
		llmtest.Text("sorry"),
	}}
	agent, err := New(context.Background(), Config{Model: model, Tools: []Tool{&echoTool{err: errors.New("rate limited")}}})
	require.NoError(t, err)

	out, err := agent.Invoke(context.Background(), []llm.Message{llm.Human("q")})
	require.NoError(t, err)
	assert.Equal(t, "Error: rate limited", out[2].Content)
}

func TestAgent_MaxIterations(t *testing.T) {
	model := llmtest.Func(func(llm.Request) (llm.Message, error) {
		return llm.Message{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{ID: "c", Name: "search", Arguments: "{}"}}}, nil
	})
	agent, err := New(context.Background(), Config{Model: model, Tools: []Tool{&echoTool{}}, MaxIterations: 2})
	require.NoError(t, err)

	_, err = agent.Invoke(context.Background(), []llm.Message{llm.Human("q")})
	assert.ErrorIs(t, err, flowgraph.ErrRecursionLimit)
}

func TestAgent_ModelError(t *testing.T) {
	errDown := errors.New("connection refused")
	agent, err := New(context.Background(), Config{Model: &llmtest.Scripted{Replies: []llmtest.Reply{llmtest.Fail(errDown)}}})
	require.NoError(t, err)

	_, err = agent.Invoke(context.Background(), []llm.Message{llm.Human("q")})
	assert.ErrorIs(t, err, errDown)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.ErrorIs(t, err, ErrNoModel)

	_, err = New(context.Background(), Config{Model: &llmtest.Scripted{}, Tools: []Tool{&echoTool{}, &echoTool{}}})
	assert.ErrorIs(t, err, ErrDuplicateTool)

	agent, err := New(context.Background(), Config{Model: &llmtest.Scripted{}})
	require.NoError(t, err)
	_, err = agent.Invoke(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyTranscript)
}

func TestBuilder_Registered(t *testing.T) {
	assert.Contains(t, prebuilt.DefaultRegistry.Names(), Name)

	g, err := prebuilt.DefaultRegistry.Build(context.Background(), Name, GraphConfig{ID: "custom"})
	require.NoError(t, err)
	assert.Equal(t, "custom", g.ID)
	assert.Equal(t, NodeAgent, g.EntryPoint)
	assert.Len(t, g.Nodes, 2)

	_, err = prebuilt.DefaultRegistry.Build(context.Background(), Name, "bad")
	assert.ErrorIs(t, err, prebuilt.ErrInvalidConfig)
}
