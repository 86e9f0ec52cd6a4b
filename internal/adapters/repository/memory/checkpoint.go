// Package memory provides a transient, process-local checkpoint store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/flowgraph/csagent/internal/core/checkpoint"
	"github.com/flowgraph/csagent/pkg/serialization"
)

// InMemorySaver implements checkpoint.Saver. Checkpoints are stored
// serialized so callers never share state maps with the store.
type InMemorySaver struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	serializer *serialization.Serializer
}

// entry keeps the filterable fields next to the serialized checkpoint
type entry struct {
	header checkpoint.Checkpoint // State left nil
	data   []byte
}

// NewInMemorySaver creates a saver; a nil serializer selects the default.
func NewInMemorySaver(serializer *serialization.Serializer) *InMemorySaver {
	if serializer == nil {
		serializer = serialization.DefaultSerializer()
	}
	return &InMemorySaver{
		entries:    make(map[string]*entry),
		serializer: serializer,
	}
}

// DefaultInMemorySaver returns a saver using msgpack+zstd.
func DefaultInMemorySaver() *InMemorySaver {
	return NewInMemorySaver(nil)
}

// Save stores a copy of cp
func (s *InMemorySaver) Save(_ context.Context, cp *checkpoint.Checkpoint) error {
	if cp == nil {
		return checkpoint.ErrInvalidCheckpointID
	}
	if err := cp.Validate(); err != nil {
		return fmt.Errorf("checkpoint validation failed: %w", err)
	}
	data, err := s.serializer.Serialize(cp)
	if err != nil {
		return fmt.Errorf("checkpoint serialization failed: %w", err)
	}

	header := *cp
	header.State = nil

	s.mu.Lock()
	s.entries[cp.ID] = &entry{header: header, data: data}
	s.mu.Unlock()
	return nil
}

// Load returns a fresh copy of the checkpoint
func (s *InMemorySaver) Load(_ context.Context, id string) (*checkpoint.Checkpoint, error) {
	if id == "" {
		return nil, checkpoint.ErrInvalidCheckpointID
	}
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, checkpoint.ErrCheckpointNotFound
	}
	return s.decode(e)
}

// List returns matching checkpoints, newest first
func (s *InMemorySaver) List(_ context.Context, filter checkpoint.Filter) ([]*checkpoint.Checkpoint, error) {
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("filter validation failed: %w", err)
	}

	s.mu.RLock()
	matched := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		if filter.Matches(&e.header) {
			matched = append(matched, e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i].header, matched[j].header
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return a.Metadata.Step > b.Metadata.Step
	})

	if filter.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	out := make([]*checkpoint.Checkpoint, 0, len(matched))
	for _, e := range matched {
		cp, err := s.decode(e)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

// Delete removes a checkpoint from memory
func (s *InMemorySaver) Delete(_ context.Context, id string) error {
	if id == "" {
		return checkpoint.ErrInvalidCheckpointID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return checkpoint.ErrCheckpointNotFound
	}
	delete(s.entries, id)
	return nil
}

// Len reports the number of stored checkpoints
func (s *InMemorySaver) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close drops every checkpoint; the store is transient by nature.
func (s *InMemorySaver) Close() error {
	s.mu.Lock()
	s.entries = make(map[string]*entry)
	s.mu.Unlock()
	return nil
}

func (s *InMemorySaver) decode(e *entry) (*checkpoint.Checkpoint, error) {
	var cp checkpoint.Checkpoint
	if err := s.serializer.Deserialize(e.data, &cp); err != nil {
		return nil, fmt.Errorf("checkpoint deserialization failed: %w", err)
	}
	return &cp, nil
}
