package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/flowgraph/csagent/internal/app/dto"
	"github.com/flowgraph/csagent/internal/core/channel"
)

// StateService merges node updates into run state and tracks the live
// state of running executions for status queries.
type StateService struct {
	states   map[string]*dto.ExecutionContext
	reducers channel.Spec
	mu       sync.RWMutex
}

// NewStateService creates a new state service. Keys without a reducer in
// spec are overwritten by updates.
func NewStateService(spec ...channel.Spec) *StateService {
	reducers := channel.Spec{}
	for _, sp := range spec {
		for k, r := range sp {
			reducers[k] = r
		}
	}
	return &StateService{
		states:   make(map[string]*dto.ExecutionContext),
		reducers: reducers,
	}
}

// Apply returns a new map holding state with update folded in. Neither
// argument is modified.
func (s *StateService) Apply(state, update map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(state)+len(update))
	for k, v := range state {
		out[k] = v
	}
	for k, v := range update {
		out[k] = s.reducers.Reduce(k, out[k], v)
	}
	return out
}

// SaveState records a snapshot of the execution context
func (s *StateService) SaveState(_ context.Context, executionCtx *dto.ExecutionContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[executionCtx.ExecutionID] = copyContext(executionCtx)
	return nil
}

// LoadState returns a copy of the recorded execution context
func (s *StateService) LoadState(_ context.Context, executionID string) (*dto.ExecutionContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, exists := s.states[executionID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", dto.ErrExecutionUnknown, executionID)
	}
	return copyContext(state), nil
}

// CleanupState removes execution state after completion
func (s *StateService) CleanupState(_ context.Context, executionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, executionID)
	return nil
}

// GetActiveStates returns the number of active execution states
func (s *StateService) GetActiveStates() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}

func copyContext(in *dto.ExecutionContext) *dto.ExecutionContext {
	out := *in
	out.State = make(map[string]interface{}, len(in.State))
	for k, v := range in.State {
		out.State[k] = v
	}
	return &out
}
