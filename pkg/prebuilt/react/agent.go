// Package react is a prebuilt tool-calling agent. The agent node asks the
// model for the next message; while that message requests tools the tools
// node runs them and hands the results back to the agent.
package react

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/flowgraph/csagent/internal/core/channel"
	"github.com/flowgraph/csagent/internal/llm"
	"github.com/flowgraph/csagent/pkg/flowgraph"
	"github.com/flowgraph/csagent/pkg/prebuilt"
)

const (
	// Name is the registry name of the prebuilt
	Name = "react"

	// KeyMessages holds the transcript in graph state
	KeyMessages = "messages"

	NodeAgent = "agent"
	NodeTools = "tools"

	// DefaultMaxIterations gives 25 steps, the usual recursion limit.
	DefaultMaxIterations = 12

	routerToolsCondition = "tools_condition"
)

var (
	ErrNoModel         = errors.New("react: model is required")
	ErrDuplicateTool   = errors.New("react: duplicate tool name")
	ErrEmptyTranscript = errors.New("react: no messages")
)

// Tool is something the model may call by name with JSON arguments.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Call(ctx context.Context, arguments string) (string, error)
}

// Prompt renders the transcript into what the model sees. *hub.ChatPrompt
// satisfies it with a "messages" placeholder.
type Prompt interface {
	FormatMessages(vars map[string]string, placeholders map[string][]llm.Message) ([]llm.Message, error)
}

// Config configures an Agent
type Config struct {
	Model llm.Model
	Tools []Tool
	// Prompt wins over SystemPrompt when both are set.
	Prompt        Prompt
	SystemPrompt  string
	MaxIterations int
	Logger        *slog.Logger
	// RuntimeOptions are passed to flowgraph.NewRuntime
	RuntimeOptions []flowgraph.Option
}

// Agent is a compiled ReAct graph
type Agent struct {
	cfg    Config
	tools  map[string]Tool
	specs  []llm.ToolSpec
	rt     *flowgraph.Runtime
	logger *slog.Logger
}

// GraphConfig is the Builder config for the prebuilt registry
type GraphConfig struct {
	ID string
}

// NewBuilder returns the registry builder for the agent graph.
func NewBuilder() prebuilt.Builder {
	return prebuilt.NewBuildFunc(Name, func(_ context.Context, cfg any) (*flowgraph.Graph, error) {
		var c GraphConfig
		switch v := cfg.(type) {
		case nil:
		case GraphConfig:
			c = v
		default:
			return nil, fmt.Errorf("%w for %s: %T", prebuilt.ErrInvalidConfig, Name, cfg)
		}
		return BuildGraph(c.ID)
	})
}

func init() {
	prebuilt.DefaultRegistry.MustRegister(NewBuilder())
}

// BuildGraph returns the agent/tools loop. id defaults to Name.
func BuildGraph(id string) (*flowgraph.Graph, error) {
	if id == "" {
		id = Name
	}
	g := flowgraph.NewGraph(id, "ReAct agent")
	if err := g.AddNode(&flowgraph.Node{
		ID:   NodeAgent,
		Name: "Agent",
		Type: flowgraph.NodeTypeAgent,
		Conditional: &flowgraph.ConditionalBranch{
			Router: routerToolsCondition,
			Conditions: map[string]string{
				NodeTools:     NodeTools,
				flowgraph.End: flowgraph.End,
			},
		},
	}); err != nil {
		return nil, err
	}
	if err := g.AddNode(&flowgraph.Node{ID: NodeTools, Name: "Tools", Type: flowgraph.NodeTypeTool}); err != nil {
		return nil, err
	}
	if err := g.Connect(NodeTools, NodeAgent); err != nil {
		return nil, err
	}
	if err := g.SetEntryPoint(NodeAgent); err != nil {
		return nil, err
	}
	return g, nil
}

// New compiles an agent from cfg.
func New(ctx context.Context, cfg Config) (*Agent, error) {
	if cfg.Model == nil {
		return nil, ErrNoModel
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &Agent{cfg: cfg, tools: make(map[string]Tool, len(cfg.Tools)), logger: logger}
	for _, t := range cfg.Tools {
		if _, dup := a.tools[t.Name()]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTool, t.Name())
		}
		a.tools[t.Name()] = t
		a.specs = append(a.specs, llm.ToolSpec{Name: t.Name(), Description: t.Description(), Parameters: t.Parameters()})
	}

	opts := []flowgraph.Option{
		flowgraph.WithLogger(logger),
		flowgraph.WithConfig(flowgraph.Config{MaxSteps: 2*cfg.MaxIterations + 1}),
		flowgraph.WithReducers(flowgraph.Reducers{KeyMessages: channel.Append}),
	}
	a.rt = flowgraph.NewRuntime(append(opts, cfg.RuntimeOptions...)...)
	a.rt.RegisterFunc(NodeAgent, a.callModel)
	a.rt.RegisterFunc(NodeTools, a.runTools)
	a.rt.RegisterRouter(routerToolsCondition, toolsCondition)

	g, err := BuildGraph(Name)
	if err != nil {
		return nil, err
	}
	if err := a.rt.SaveGraph(ctx, g); err != nil {
		return nil, err
	}
	return a, nil
}

// Invoke runs the agent once on messages and returns the whole transcript:
// the input messages followed by every model and tool message.
func (a *Agent) Invoke(ctx context.Context, messages []llm.Message) ([]llm.Message, error) {
	if len(messages) == 0 {
		return nil, ErrEmptyTranscript
	}
	threadID := uuid.NewString()
	resp, err := a.rt.Run(ctx, Name, threadID, map[string]interface{}{
		KeyMessages: append([]llm.Message(nil), messages...),
	})
	if err != nil {
		return nil, fmt.Errorf("react agent: %w", err)
	}
	a.logger.Debug("react agent finished", "thread_id", threadID, "steps", len(resp.Steps))
	return llm.MessagesFrom(resp.Output[KeyMessages])
}

func (a *Agent) callModel(ctx context.Context, state map[string]interface{}) (map[string]interface{}, error) {
	history, err := llm.MessagesFrom(state[KeyMessages])
	if err != nil {
		return nil, err
	}
	msgs, err := a.render(history)
	if err != nil {
		return nil, err
	}
	reply, err := a.cfg.Model.Generate(ctx, llm.Request{Messages: msgs, Tools: a.specs})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{KeyMessages: []llm.Message{reply}}, nil
}

func (a *Agent) render(history []llm.Message) ([]llm.Message, error) {
	switch {
	case a.cfg.Prompt != nil:
		msgs, err := a.cfg.Prompt.FormatMessages(nil, map[string][]llm.Message{KeyMessages: history})
		if err != nil {
			return nil, fmt.Errorf("format prompt: %w", err)
		}
		return msgs, nil
	case a.cfg.SystemPrompt != "":
		return append([]llm.Message{llm.System(a.cfg.SystemPrompt)}, history...), nil
	default:
		return history, nil
	}
}

// runTools answers every tool call of the last message. Tool failures are
// reported back to the model rather than ending the run.
func (a *Agent) runTools(ctx context.Context, state map[string]interface{}) (map[string]interface{}, error) {
	history, err := llm.MessagesFrom(state[KeyMessages])
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, ErrEmptyTranscript
	}
	last := history[len(history)-1]

	results := make([]llm.Message, 0, len(last.ToolCalls))
	for _, call := range last.ToolCalls {
		tool, ok := a.tools[call.Name]
		if !ok {
			results = append(results, llm.ToolResult(call, fmt.Sprintf("Error: %s is not a valid tool", call.Name)))
			continue
		}
		out, err := tool.Call(ctx, call.Arguments)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			a.logger.Warn("tool call failed", "tool", call.Name, "error", err)
			out = "Error: " + err.Error()
		}
		results = append(results, llm.ToolResult(call, out))
	}
	return map[string]interface{}{KeyMessages: results}, nil
}

func toolsCondition(_ context.Context, state map[string]interface{}) (string, error) {
	history, err := llm.MessagesFrom(state[KeyMessages])
	if err != nil {
		return "", err
	}
	if len(history) > 0 && history[len(history)-1].HasToolCalls() {
		return NodeTools, nil
	}
	return flowgraph.End, nil
}
