package usecases

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flowgraph/csagent/internal/app/dto"
	cgraph "github.com/flowgraph/csagent/internal/core/graph"
	"github.com/flowgraph/csagent/internal/infrastructure/metrics"
	"github.com/flowgraph/csagent/pkg/validation"
)

// DefaultGraphExecutor runs graphs one node at a time. Each step runs a
// node, folds its update into a new state map, routes, and checkpoints.
type DefaultGraphExecutor struct {
	nodeProcessor     NodeProcessor
	edgeEvaluator     EdgeEvaluator
	stateManager      StateManager
	checkpointManager CheckpointManager
	graphRepository   GraphRepository
	logger            *slog.Logger

	mu         sync.RWMutex
	executions map[string]*execution
}

type execution struct {
	ctx     *dto.ExecutionContext
	cancel  context.CancelFunc
	stopped bool
}

// NewDefaultGraphExecutor creates a new graph executor with dependencies.
// checkpointManager may be nil to run without checkpoints.
func NewDefaultGraphExecutor(
	nodeProcessor NodeProcessor,
	edgeEvaluator EdgeEvaluator,
	stateManager StateManager,
	checkpointManager CheckpointManager,
	graphRepository GraphRepository,
) *DefaultGraphExecutor {
	return &DefaultGraphExecutor{
		nodeProcessor:     nodeProcessor,
		edgeEvaluator:     edgeEvaluator,
		stateManager:      stateManager,
		checkpointManager: checkpointManager,
		graphRepository:   graphRepository,
		logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
		executions:        make(map[string]*execution),
	}
}

// WithLogger sets the logger used for step-level debug output
func (e *DefaultGraphExecutor) WithLogger(logger *slog.Logger) *DefaultGraphExecutor {
	if logger != nil {
		e.logger = logger
	}
	return e
}

// Execute runs a graph with the given request
func (e *DefaultGraphExecutor) Execute(ctx context.Context, req *dto.ExecutionRequest) (*dto.ExecutionResponse, error) {
	return e.Stream(ctx, req, nil)
}

// Stream runs a graph like Execute and calls hook after every step.
func (e *DefaultGraphExecutor) Stream(ctx context.Context, req *dto.ExecutionRequest, hook StepHook) (*dto.ExecutionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	g, err := e.loadGraph(ctx, req.GraphID, req.Config)
	if err != nil {
		return nil, err
	}

	execCtx := &dto.ExecutionContext{
		ExecutionID: e.generateExecutionID(),
		GraphID:     req.GraphID,
		ThreadID:    req.ThreadID,
		NextNode:    g.EntryPoint,
		State:       e.stateManager.Apply(nil, req.Input),
		Config:      req.Config,
		StartTime:   time.Now(),
	}
	return e.run(ctx, g, execCtx, hook)
}

// Resume continues the thread of a checkpoint from the node it recorded as
// next. req.Input, when set, is folded into the restored state first, and
// non-zero config fields override the defaults.
func (e *DefaultGraphExecutor) Resume(ctx context.Context, checkpointID string, req *dto.ExecutionRequest) (*dto.ExecutionResponse, error) {
	return e.ResumeStream(ctx, checkpointID, req, nil)
}

// ResumeStream is Resume with a per-step hook.
func (e *DefaultGraphExecutor) ResumeStream(ctx context.Context, checkpointID string, req *dto.ExecutionRequest, hook StepHook) (*dto.ExecutionResponse, error) {
	if e.checkpointManager == nil {
		return nil, fmt.Errorf("resume %s: no checkpoint manager configured", checkpointID)
	}
	execCtx, err := e.checkpointManager.LoadCheckpoint(ctx, checkpointID)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if execCtx.NextNode == "" || execCtx.NextNode == cgraph.End {
		return nil, fmt.Errorf("checkpoint %s: %w", checkpointID, dto.ErrNothingToResume)
	}

	var cfg dto.ExecutionConfig
	if req != nil {
		cfg = req.Config
		if len(req.Input) > 0 {
			execCtx.State = e.stateManager.Apply(execCtx.State, req.Input)
		}
	}
	if cfg.MaxSteps < 0 || cfg.CheckpointEvery < 0 || cfg.Timeout < 0 {
		return nil, fmt.Errorf("invalid request: %w", dto.ErrInvalidConfig)
	}
	cfg.ApplyDefaults()
	execCtx.Config = cfg
	execCtx.ExecutionID = e.generateExecutionID()
	execCtx.StartTime = time.Now()

	g, err := e.loadGraph(ctx, execCtx.GraphID, cfg)
	if err != nil {
		return nil, err
	}
	if _, ok := g.Nodes[execCtx.NextNode]; !ok {
		return nil, fmt.Errorf("resume at %s: %w", execCtx.NextNode, cgraph.ErrNodeNotFound)
	}
	return e.run(ctx, g, execCtx, hook)
}

// Stop cancels a running execution. The run returns ErrExecutionStopped.
func (e *DefaultGraphExecutor) Stop(_ context.Context, executionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ex, exists := e.executions[executionID]
	if !exists {
		return fmt.Errorf("%w: %s", dto.ErrExecutionUnknown, executionID)
	}
	ex.stopped = true
	ex.cancel()
	return nil
}

// GetStatus returns the state of a running execution as of its last step
func (e *DefaultGraphExecutor) GetStatus(ctx context.Context, executionID string) (*dto.ExecutionResponse, error) {
	e.mu.RLock()
	_, exists := e.executions[executionID]
	e.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: %s", dto.ErrExecutionUnknown, executionID)
	}

	execCtx, err := e.stateManager.LoadState(ctx, executionID)
	if err != nil {
		return nil, err
	}
	return &dto.ExecutionResponse{
		ExecutionID:  executionID,
		GraphID:      execCtx.GraphID,
		ThreadID:     execCtx.ThreadID,
		Status:       dto.ExecutionStatusRunning,
		Output:       execCtx.State,
		CheckpointID: execCtx.ParentID,
		StartTime:    execCtx.StartTime,
	}, nil
}

// GetState returns the state stored in the newest checkpoint of a thread
func (e *DefaultGraphExecutor) GetState(ctx context.Context, graphID, threadID string) (map[string]interface{}, string, error) {
	if e.checkpointManager == nil {
		return nil, "", fmt.Errorf("get state: no checkpoint manager configured")
	}
	cp, err := e.checkpointManager.LatestCheckpoint(ctx, graphID, threadID)
	if err != nil {
		return nil, "", err
	}
	return cp.State, cp.ID, nil
}

func (e *DefaultGraphExecutor) loadGraph(ctx context.Context, graphID string, cfg dto.ExecutionConfig) (*cgraph.Graph, error) {
	g, err := e.graphRepository.Get(ctx, graphID)
	if err != nil {
		return nil, fmt.Errorf("failed to load graph %s: %w", graphID, err)
	}
	if cfg.ValidateCycles {
		if verr := validation.ValidateCoreGraph(g, validation.GraphValidationOptions{CheckCycles: true}); verr != nil {
			return nil, fmt.Errorf("graph validation failed: %w", verr)
		}
	}
	return g, nil
}

// run drives execCtx from execCtx.NextNode until End, the step limit, an
// error, or cancellation.
func (e *DefaultGraphExecutor) run(ctx context.Context, g *cgraph.Graph, execCtx *dto.ExecutionContext, hook StepHook) (*dto.ExecutionResponse, error) {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if execCtx.Config.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, execCtx.Config.Timeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	ex := &execution{ctx: execCtx, cancel: cancel}
	e.mu.Lock()
	e.executions[execCtx.ExecutionID] = ex
	e.mu.Unlock()
	_ = e.stateManager.SaveState(runCtx, execCtx)

	response := &dto.ExecutionResponse{
		ExecutionID: execCtx.ExecutionID,
		GraphID:     execCtx.GraphID,
		ThreadID:    execCtx.ThreadID,
		Status:      dto.ExecutionStatusRunning,
		StartTime:   execCtx.StartTime,
		Steps:       make([]dto.StepResult, 0),
	}

	err := e.loop(runCtx, g, execCtx, response, hook)

	e.mu.Lock()
	stopped := ex.stopped
	delete(e.executions, execCtx.ExecutionID)
	e.mu.Unlock()
	_ = e.stateManager.CleanupState(ctx, execCtx.ExecutionID)

	response.EndTime = time.Now()
	response.Duration = response.EndTime.Sub(response.StartTime)
	response.Output = execCtx.State
	response.CheckpointID = execCtx.ParentID

	switch {
	case err == nil:
		response.Status = dto.ExecutionStatusCompleted
	case stopped:
		err = fmt.Errorf("%w: %s", dto.ErrExecutionStopped, execCtx.ExecutionID)
		response.Status = dto.ExecutionStatusStopped
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		err = fmt.Errorf("%w after %s: %w", dto.ErrExecutionTimeout, execCtx.Config.Timeout, err)
		response.Status = dto.ExecutionStatusFailed
	default:
		response.Status = dto.ExecutionStatusFailed
	}
	if err != nil {
		response.Error = err.Error()
	}
	return response, err
}

func (e *DefaultGraphExecutor) loop(ctx context.Context, g *cgraph.Graph, execCtx *dto.ExecutionContext, response *dto.ExecutionResponse, hook StepHook) error {
	steps := 0
	for execCtx.NextNode != cgraph.End {
		if err := ctx.Err(); err != nil {
			return err
		}
		if steps >= execCtx.Config.MaxSteps {
			return fmt.Errorf("%w: limit %d", dto.ErrRecursionLimit, execCtx.Config.MaxSteps)
		}
		node, ok := g.Nodes[execCtx.NextNode]
		if !ok {
			return fmt.Errorf("%w: %s", cgraph.ErrNodeNotFound, execCtx.NextNode)
		}

		rec, err := e.step(ctx, g, execCtx, node)
		response.Steps = append(response.Steps, rec)
		if err != nil {
			return err
		}
		steps++
		if hook != nil {
			if herr := hook(rec); herr != nil {
				return herr
			}
		}
	}
	return nil
}

// step runs one node and advances execCtx. The returned record is filled
// in even when the step fails.
func (e *DefaultGraphExecutor) step(ctx context.Context, g *cgraph.Graph, execCtx *dto.ExecutionContext, node *cgraph.Node) (dto.StepResult, error) {
	start := time.Now()
	rec := dto.StepResult{
		StepNumber: execCtx.CurrentStep + 1,
		NodeID:     node.ID,
		NodeType:   node.Type,
		StartTime:  start,
	}
	fail := func(err error) (dto.StepResult, error) {
		rec.Duration = time.Since(start)
		rec.Status = dto.StepStatusFailed
		rec.Error = err.Error()
		return rec, err
	}

	update, err := e.nodeProcessor.Process(ctx, node, execCtx.State)
	if err != nil {
		return fail(fmt.Errorf("%w: node %s: %w", dto.ErrStepFailed, node.ID, err))
	}
	state := e.stateManager.Apply(execCtx.State, update)

	next, err := e.edgeEvaluator.Next(ctx, node, g.OutgoingEdges(node.ID), state)
	if err != nil {
		return fail(fmt.Errorf("%w: routing after %s: %w", dto.ErrStepFailed, node.ID, err))
	}

	execCtx.State = state
	execCtx.CurrentStep++
	execCtx.NextNode = next
	metrics.IncSteps()

	if e.checkpointManager != nil && (execCtx.CurrentStep%execCtx.Config.CheckpointEvery == 0 || next == cgraph.End) {
		id, err := e.checkpointManager.CreateCheckpoint(ctx, execCtx, node.ID, update)
		if err != nil {
			return fail(err)
		}
		execCtx.ParentID = id
		rec.CheckpointID = id
	}
	_ = e.stateManager.SaveState(ctx, execCtx)

	rec.Update = update
	rec.Next = next
	rec.Duration = time.Since(start)
	rec.Status = dto.StepStatusCompleted
	e.logger.Debug("step completed", "graph", execCtx.GraphID, "thread", execCtx.ThreadID,
		"step", rec.StepNumber, "node", node.ID, "next", next, "duration", rec.Duration)
	return rec, nil
}

func (e *DefaultGraphExecutor) generateExecutionID() string {
	return uuid.NewString()
}
