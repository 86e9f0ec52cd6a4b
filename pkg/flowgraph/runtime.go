package flowgraph

import (
	"context"
	"log/slog"

	graphrepo "github.com/flowgraph/csagent/internal/adapters/repository/graph"
	memory "github.com/flowgraph/csagent/internal/adapters/repository/memory"
	"github.com/flowgraph/csagent/internal/app/dto"
	"github.com/flowgraph/csagent/internal/app/services"
	"github.com/flowgraph/csagent/internal/app/usecases"
	"github.com/flowgraph/csagent/internal/core/channel"
	"github.com/flowgraph/csagent/internal/core/checkpoint"
	coregraph "github.com/flowgraph/csagent/internal/core/graph"
)

// Re-export core types for convenience
type (
	Graph             = coregraph.Graph
	Node              = coregraph.Node
	Edge              = coregraph.Edge
	NodeType          = coregraph.NodeType
	ConditionalBranch = coregraph.ConditionalBranch
	NodeFunc          = usecases.NodeFunc
	RouterFunc        = usecases.RouterFunc
	StepHook          = usecases.StepHook
	StepResult        = dto.StepResult
	Response          = dto.ExecutionResponse
	Config            = dto.ExecutionConfig
	Reducers          = channel.Spec
)

// End is the routing target that finishes a run.
const End = coregraph.End

// Errors callers commonly match on
var (
	ErrRecursionLimit   = dto.ErrRecursionLimit
	ErrExecutionTimeout = dto.ErrExecutionTimeout
	ErrExecutionStopped = dto.ErrExecutionStopped
	ErrStepFailed       = dto.ErrStepFailed
)

// Node types
const (
	NodeTypeFunction    = coregraph.NodeTypeFunction
	NodeTypeTool        = coregraph.NodeTypeTool
	NodeTypeAgent       = coregraph.NodeTypeAgent
	NodeTypeConditional = coregraph.NodeTypeConditional
)

// NewGraph creates an empty graph
func NewGraph(id, name string) *Graph {
	return coregraph.New(id, name)
}

// Runtime wires the executor to a graph repository, a checkpoint saver and
// the function and router registries.
type Runtime struct {
	processor *usecases.DefaultNodeProcessor
	evaluator *usecases.DefaultEdgeEvaluator
	executor  *usecases.DefaultGraphExecutor
	repo      usecases.GraphRepository
	config    dto.ExecutionConfig
}

type options struct {
	saver    checkpoint.Saver
	reducers channel.Spec
	logger   *slog.Logger
	config   dto.ExecutionConfig
}

// Option configures a Runtime
type Option func(*options)

// WithSaver selects where checkpoints go. The default is a transient
// in-memory saver.
func WithSaver(saver checkpoint.Saver) Option {
	return func(o *options) { o.saver = saver }
}

// WithReducers sets per-key reducers applied when node updates are merged.
func WithReducers(r Reducers) Option {
	return func(o *options) { o.reducers = r }
}

// WithLogger sets the logger for step-level debug output
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithConfig sets the execution config used by Run, Stream and Resume.
func WithConfig(cfg Config) Option {
	return func(o *options) { o.config = cfg }
}

// NewRuntime constructs a runtime. Without options it checkpoints into
// memory and overwrites every state key on update.
func NewRuntime(opts ...Option) *Runtime {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.saver == nil {
		o.saver = memory.DefaultInMemorySaver()
	}

	processor := usecases.NewDefaultNodeProcessor()
	evaluator := usecases.NewDefaultEdgeEvaluator()
	stateManager := services.NewStateService(o.reducers)
	checkpointManager := services.NewCheckpointService(o.saver)
	repo := graphrepo.NewInMemoryGraphRepository()
	executor := usecases.NewDefaultGraphExecutor(processor, evaluator, stateManager, checkpointManager, repo).
		WithLogger(o.logger)

	return &Runtime{
		processor: processor,
		evaluator: evaluator,
		executor:  executor,
		repo:      repo,
		config:    o.config,
	}
}

// RegisterFunc binds a node function name
func (rt *Runtime) RegisterFunc(name string, fn NodeFunc) {
	rt.processor.RegisterFunc(name, fn)
}

// RegisterRouter binds a branch router name
func (rt *Runtime) RegisterRouter(name string, fn RouterFunc) {
	rt.evaluator.RegisterRouter(name, fn)
}

// SaveGraph validates g and stores it under g.ID.
func (rt *Runtime) SaveGraph(ctx context.Context, g *Graph) error {
	return rt.repo.Save(ctx, g)
}

// Execute runs a graph with the provided request.
func (rt *Runtime) Execute(ctx context.Context, req *dto.ExecutionRequest) (*Response, error) {
	return rt.executor.Execute(ctx, req)
}

// Run executes a saved graph on threadID.
func (rt *Runtime) Run(ctx context.Context, graphID, threadID string, input map[string]interface{}) (*Response, error) {
	return rt.Stream(ctx, graphID, threadID, input, nil)
}

// Stream executes a saved graph and reports every step to hook.
func (rt *Runtime) Stream(ctx context.Context, graphID, threadID string, input map[string]interface{}, hook StepHook) (*Response, error) {
	return rt.executor.Stream(ctx, &dto.ExecutionRequest{
		GraphID:  graphID,
		ThreadID: threadID,
		Input:    input,
		Config:   rt.config,
	}, hook)
}

// Resume continues a thread from a checkpoint, folding input into the
// restored state first.
func (rt *Runtime) Resume(ctx context.Context, checkpointID string, input map[string]interface{}, hook StepHook) (*Response, error) {
	return rt.executor.ResumeStream(ctx, checkpointID, &dto.ExecutionRequest{
		Input:  input,
		Config: rt.config,
	}, hook)
}

// State returns the newest checkpointed state of a thread and its
// checkpoint ID.
func (rt *Runtime) State(ctx context.Context, graphID, threadID string) (map[string]interface{}, string, error) {
	return rt.executor.GetState(ctx, graphID, threadID)
}

// RunSimple saves g and runs it once on threadID.
func (rt *Runtime) RunSimple(ctx context.Context, g *Graph, threadID string, input map[string]interface{}) (*Response, error) {
	if err := rt.repo.Save(ctx, g); err != nil {
		return nil, err
	}
	return rt.Run(ctx, g.ID, threadID, input)
}
