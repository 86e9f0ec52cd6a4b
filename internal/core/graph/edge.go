// Package graph provides edge definitions
package graph

// EdgeType represents the type of edge
type EdgeType string

const (
	// EdgeTypeDefault represents a default edge
	EdgeTypeDefault EdgeType = "default"
	// EdgeTypeConditional is only traversed when Condition holds
	EdgeTypeConditional EdgeType = "conditional"
	// EdgeTypeError is only traversed when the state carries an error
	EdgeTypeError EdgeType = "error"
)

// Edge represents a connection between nodes
type Edge struct {
	ID         string                 `json:"id"`
	Source     string                 `json:"source"` // Source node ID
	Target     string                 `json:"target"` // Target node ID or End
	Type       EdgeType               `json:"type"`
	Condition  string                 `json:"condition,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// Validate ensures edge integrity
func (e *Edge) Validate() error {
	if e.Source == "" || e.Source == End {
		return ErrInvalidSource
	}
	if e.Target == "" {
		return ErrInvalidTarget
	}
	if e.Source == e.Target {
		return ErrSelfLoop
	}
	if e.Type == "" {
		e.Type = EdgeTypeDefault
	}
	return nil
}

// IsConditional checks if edge is conditional
func (e *Edge) IsConditional() bool {
	return e.Type == EdgeTypeConditional
}

// IsTerminal reports whether the edge leads to End
func (e *Edge) IsTerminal() bool {
	return e.Target == End
}
