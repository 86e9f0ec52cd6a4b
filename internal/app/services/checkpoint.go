package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flowgraph/csagent/internal/app/dto"
	"github.com/flowgraph/csagent/internal/core/checkpoint"
	"github.com/flowgraph/csagent/internal/infrastructure/metrics"
)

// Source is stamped on checkpoints written by the executor.
const Source = "loop"

// CheckpointService writes and reads execution snapshots through a
// checkpoint.Saver.
type CheckpointService struct {
	saver checkpoint.Saver
}

// NewCheckpointService creates a new checkpoint service
func NewCheckpointService(saver checkpoint.Saver) *CheckpointService {
	return &CheckpointService{saver: saver}
}

// CreateCheckpoint snapshots execCtx after node produced writes. The
// returned ID becomes the parent of the thread's next checkpoint.
func (s *CheckpointService) CreateCheckpoint(ctx context.Context, execCtx *dto.ExecutionContext, node string, writes map[string]interface{}) (string, error) {
	cp := &checkpoint.Checkpoint{
		ID:       uuid.NewString(),
		GraphID:  execCtx.GraphID,
		ThreadID: execCtx.ThreadID,
		State:    execCtx.State,
		Metadata: checkpoint.Metadata{
			Step:     execCtx.CurrentStep,
			Source:   Source,
			Node:     node,
			Next:     execCtx.NextNode,
			ParentID: execCtx.ParentID,
			Writes:   writes,
		},
		Timestamp: time.Now().UTC(),
		Version:   checkpoint.CurrentVersion,
	}

	if err := s.saver.Save(ctx, cp); err != nil {
		return "", fmt.Errorf("failed to save checkpoint: %w", err)
	}
	metrics.IncCheckpointsSaved()
	return cp.ID, nil
}

// LoadCheckpoint restores an execution context from a checkpoint. The
// caller supplies the execution ID and config.
func (s *CheckpointService) LoadCheckpoint(ctx context.Context, checkpointID string) (*dto.ExecutionContext, error) {
	cp, err := s.saver.Load(ctx, checkpointID)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return &dto.ExecutionContext{
		GraphID:     cp.GraphID,
		ThreadID:    cp.ThreadID,
		State:       cp.State,
		CurrentStep: cp.Metadata.Step,
		NextNode:    cp.Metadata.Next,
		ParentID:    cp.ID,
	}, nil
}

// ListCheckpoints returns the checkpoint IDs of a thread, newest first
func (s *CheckpointService) ListCheckpoints(ctx context.Context, threadID string) ([]string, error) {
	cps, err := s.saver.List(ctx, checkpoint.Filter{ThreadID: threadID})
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	ids := make([]string, 0, len(cps))
	for _, cp := range cps {
		ids = append(ids, cp.ID)
	}
	return ids, nil
}

// LatestCheckpoint returns the highest-step checkpoint of a graph thread.
func (s *CheckpointService) LatestCheckpoint(ctx context.Context, graphID, threadID string) (*checkpoint.Checkpoint, error) {
	cps, err := s.saver.List(ctx, checkpoint.Filter{GraphID: graphID, ThreadID: threadID})
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	latest := checkpoint.Latest(cps)
	if latest == nil {
		return nil, checkpoint.ErrCheckpointNotFound
	}
	return latest, nil
}
