package dto

import (
	"time"

	"github.com/flowgraph/csagent/internal/core/graph"
)

const (
	// DefaultMaxSteps matches LangGraph's default recursion limit.
	DefaultMaxSteps = 25
	// DefaultCheckpointEvery checkpoints after every step.
	DefaultCheckpointEvery = 1
)

// ExecutionRequest represents a request to execute a graph
type ExecutionRequest struct {
	GraphID  string                 `json:"graph_id"`
	ThreadID string                 `json:"thread_id"`
	Input    map[string]interface{} `json:"input"`
	Config   ExecutionConfig        `json:"config"`
}

// ExecutionConfig contains configuration for graph execution
type ExecutionConfig struct {
	MaxSteps        int           `json:"max_steps"`        // step limit before ErrRecursionLimit
	Timeout         time.Duration `json:"timeout"`          // zero means no deadline
	CheckpointEvery int           `json:"checkpoint_every"` // save a checkpoint every N steps
	ValidateCycles  bool          `json:"validate_cycles"`  // reject cyclic graphs before running
}

// ExecutionResponse represents the response from graph execution
type ExecutionResponse struct {
	ExecutionID  string                 `json:"execution_id"`
	GraphID      string                 `json:"graph_id"`
	ThreadID     string                 `json:"thread_id"`
	Status       ExecutionStatus        `json:"status"`
	Output       map[string]interface{} `json:"output"`
	Steps        []StepResult           `json:"steps"`
	CheckpointID string                 `json:"checkpoint_id,omitempty"` // last checkpoint written
	StartTime    time.Time              `json:"start_time"`
	EndTime      time.Time              `json:"end_time"`
	Duration     time.Duration          `json:"duration"`
	Error        string                 `json:"error,omitempty"`
}

// ExecutionStatus represents the status of graph execution
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusStopped   ExecutionStatus = "stopped"
)

// StepResult represents the result of executing a single step
type StepResult struct {
	StepNumber   int                    `json:"step_number"`
	NodeID       string                 `json:"node_id"`
	NodeType     graph.NodeType         `json:"node_type"`
	Update       map[string]interface{} `json:"update"` // partial state returned by the node
	Next         string                 `json:"next"`   // node chosen by routing, End when done
	StartTime    time.Time              `json:"start_time"`
	Duration     time.Duration          `json:"duration"`
	Status       StepStatus             `json:"status"`
	Error        string                 `json:"error,omitempty"`
	CheckpointID string                 `json:"checkpoint_id,omitempty"`
}

// StepStatus represents the status of a single step
type StepStatus string

const (
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
)

// ExecutionContext holds the context for graph execution
type ExecutionContext struct {
	ExecutionID string
	GraphID     string
	ThreadID    string
	CurrentStep int
	NextNode    string
	ParentID    string // ID of the last checkpoint written on this thread
	State       map[string]interface{}
	Config      ExecutionConfig
	StartTime   time.Time
}

// Validate checks required fields and fills in defaults
func (req *ExecutionRequest) Validate() error {
	if req.GraphID == "" {
		return ErrMissingGraphID
	}
	if req.ThreadID == "" {
		return ErrMissingThreadID
	}
	if req.Config.MaxSteps < 0 || req.Config.CheckpointEvery < 0 || req.Config.Timeout < 0 {
		return ErrInvalidConfig
	}
	req.Config.ApplyDefaults()
	if req.Input == nil {
		req.Input = map[string]interface{}{}
	}
	return nil
}

// ApplyDefaults fills zero values with the package defaults
func (c *ExecutionConfig) ApplyDefaults() {
	if c.MaxSteps == 0 {
		c.MaxSteps = DefaultMaxSteps
	}
	if c.CheckpointEvery == 0 {
		c.CheckpointEvery = DefaultCheckpointEvery
	}
}
