package usecases

import (
	"context"

	"github.com/flowgraph/csagent/internal/app/dto"
	"github.com/flowgraph/csagent/internal/core/checkpoint"
	"github.com/flowgraph/csagent/internal/core/graph"
)

// GraphRepository stores graph definitions by ID
type GraphRepository interface {
	Save(ctx context.Context, g *graph.Graph) error
	Get(ctx context.Context, id string) (*graph.Graph, error)
	List(ctx context.Context) ([]*graph.Graph, error)
}

// GraphExecutor defines the interface for executing graphs
type GraphExecutor interface {
	// Execute runs a graph from its entry point until it routes to End
	Execute(ctx context.Context, req *dto.ExecutionRequest) (*dto.ExecutionResponse, error)

	// Resume continues a thread from the node recorded in a checkpoint
	Resume(ctx context.Context, checkpointID string, req *dto.ExecutionRequest) (*dto.ExecutionResponse, error)

	// Stop cancels a running execution
	Stop(ctx context.Context, executionID string) error

	// GetStatus returns the current status of an execution
	GetStatus(ctx context.Context, executionID string) (*dto.ExecutionResponse, error)
}

// StepHook observes each completed step. Returning an error aborts the run.
type StepHook func(step dto.StepResult) error

// NodeFunc is the behaviour bound to a node. It receives the current state
// and returns only the keys it writes.
type NodeFunc func(ctx context.Context, state map[string]interface{}) (map[string]interface{}, error)

// RouterFunc picks the branch key for a conditional node.
type RouterFunc func(ctx context.Context, state map[string]interface{}) (string, error)

// NodeProcessor defines the interface for processing individual nodes
type NodeProcessor interface {
	// Process executes a single node and returns its state update
	Process(ctx context.Context, node *graph.Node, state map[string]interface{}) (map[string]interface{}, error)

	// CanProcess returns true if this processor can handle the given node type
	CanProcess(nodeType graph.NodeType) bool
}

// EdgeEvaluator decides where execution goes after a node
type EdgeEvaluator interface {
	// Evaluate returns true if the edge condition is satisfied
	Evaluate(ctx context.Context, edge *graph.Edge, state map[string]interface{}) (bool, error)

	// Next returns the ID of the node to run after current, or graph.End
	Next(ctx context.Context, current *graph.Node, edges []*graph.Edge, state map[string]interface{}) (string, error)
}

// StateManager merges updates and tracks live execution state
type StateManager interface {
	// Apply returns a new state with update folded in
	Apply(state, update map[string]interface{}) map[string]interface{}

	// SaveState records the current execution state
	SaveState(ctx context.Context, executionCtx *dto.ExecutionContext) error

	// LoadState returns the recorded state of a running execution
	LoadState(ctx context.Context, executionID string) (*dto.ExecutionContext, error)

	// CleanupState removes execution state after completion
	CleanupState(ctx context.Context, executionID string) error
}

// CheckpointManager defines the interface for checkpoint operations during execution
type CheckpointManager interface {
	// CreateCheckpoint snapshots the execution after node wrote writes
	CreateCheckpoint(ctx context.Context, executionCtx *dto.ExecutionContext, node string, writes map[string]interface{}) (string, error)

	// LoadCheckpoint loads execution state from a checkpoint
	LoadCheckpoint(ctx context.Context, checkpointID string) (*dto.ExecutionContext, error)

	// ListCheckpoints returns available checkpoints for a thread
	ListCheckpoints(ctx context.Context, threadID string) ([]string, error)

	// LatestCheckpoint returns the newest checkpoint of a graph thread
	LatestCheckpoint(ctx context.Context, graphID, threadID string) (*checkpoint.Checkpoint, error)
}
