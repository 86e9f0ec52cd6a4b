// Package checkpoint provides checkpoint persistence interfaces
package checkpoint

import (
	"context"
	"time"
)

// Saver persists checkpoints. Implementations must be safe for concurrent use.
type Saver interface {
	// Save persists a checkpoint, replacing any checkpoint with the same ID
	Save(ctx context.Context, checkpoint *Checkpoint) error

	// Load retrieves a checkpoint by ID
	Load(ctx context.Context, id string) (*Checkpoint, error)

	// List returns checkpoints matching the filter, newest first
	List(ctx context.Context, filter Filter) ([]*Checkpoint, error)

	// Delete removes a checkpoint by ID
	Delete(ctx context.Context, id string) error
}

// Filter for checkpoint queries
type Filter struct {
	GraphID  string     `json:"graph_id,omitempty"`
	ThreadID string     `json:"thread_id,omitempty"`
	Limit    int        `json:"limit,omitempty"`
	Offset   int        `json:"offset,omitempty"`
	Since    *time.Time `json:"since,omitempty"`
	Before   *time.Time `json:"before,omitempty"`
}

// Validate ensures filter parameters are valid
func (f *Filter) Validate() error {
	if f.Limit < 0 {
		return ErrInvalidLimit
	}
	if f.Offset < 0 {
		return ErrInvalidOffset
	}
	if f.Since != nil && f.Before != nil && f.Since.After(*f.Before) {
		return ErrInvalidTimeRange
	}
	return nil
}

// Matches reports whether cp passes the filter's field constraints.
// Limit and Offset are applied by the caller.
func (f *Filter) Matches(cp *Checkpoint) bool {
	if f.GraphID != "" && cp.GraphID != f.GraphID {
		return false
	}
	if f.ThreadID != "" && cp.ThreadID != f.ThreadID {
		return false
	}
	if f.Since != nil && !cp.Timestamp.After(*f.Since) {
		return false
	}
	if f.Before != nil && !cp.Timestamp.Before(*f.Before) {
		return false
	}
	return true
}
