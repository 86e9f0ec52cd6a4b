// Package checkpoint provides the checkpoint domain entities and the Saver
// contract implemented by the storage adapters.
package checkpoint

import (
	"time"
)

// Checkpoint is a snapshot of a thread's state taken after a step
type Checkpoint struct {
	ID        string                 `json:"id" msgpack:"id"`
	GraphID   string                 `json:"graph_id" msgpack:"graph_id"`
	ThreadID  string                 `json:"thread_id" msgpack:"thread_id"`
	State     map[string]interface{} `json:"state" msgpack:"state"`
	Metadata  Metadata               `json:"metadata" msgpack:"metadata"`
	Timestamp time.Time              `json:"timestamp" msgpack:"timestamp"`
	Version   string                 `json:"version" msgpack:"version"`
}

// Metadata describes where in the run the checkpoint was taken
type Metadata struct {
	Step     int                    `json:"step" msgpack:"step"`
	Source   string                 `json:"source" msgpack:"source"`
	Node     string                 `json:"node,omitempty" msgpack:"node,omitempty"` // node that produced Writes
	Next     string                 `json:"next,omitempty" msgpack:"next,omitempty"` // node to resume from; End when finished
	ParentID string                 `json:"parent_id,omitempty" msgpack:"parent_id,omitempty"`
	Writes   map[string]interface{} `json:"writes,omitempty" msgpack:"writes,omitempty"`
	Tags     []string               `json:"tags,omitempty" msgpack:"tags,omitempty"`
}

// CurrentVersion is stamped on checkpoints written by this module.
const CurrentVersion = "1.0"

// Validate ensures checkpoint integrity
func (c *Checkpoint) Validate() error {
	if c.ID == "" {
		return ErrInvalidCheckpointID
	}
	if c.GraphID == "" {
		return ErrInvalidGraphID
	}
	if c.ThreadID == "" {
		return ErrInvalidThreadID
	}
	if c.State == nil {
		return ErrNilState
	}
	return nil
}

// Latest returns the checkpoint with the highest step, breaking ties on
// timestamp. It returns nil for an empty slice.
func Latest(cps []*Checkpoint) *Checkpoint {
	var latest *Checkpoint
	for _, cp := range cps {
		if latest == nil ||
			cp.Metadata.Step > latest.Metadata.Step ||
			(cp.Metadata.Step == latest.Metadata.Step && cp.Timestamp.After(latest.Timestamp)) {
			latest = cp
		}
	}
	return latest
}
