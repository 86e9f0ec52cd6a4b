// Package graph provides node definitions
package graph

import "time"

// NodeType represents the type of node
type NodeType string

const (
	// NodeTypeFunction runs a registered function against the state
	NodeTypeFunction NodeType = "function"
	// NodeTypeTool executes tool calls requested by a model
	NodeTypeTool NodeType = "tool"
	// NodeTypeAgent calls a language model
	NodeTypeAgent NodeType = "agent"
	// NodeTypeConditional only routes and never updates the state
	NodeTypeConditional NodeType = "conditional"
)

// End is the virtual terminal node. Edges and branches may target it but it
// can never be added as a real node.
const End = "__end__"

// Node represents a vertex in the graph
type Node struct {
	ID          string                 `json:"id"`
	Type        NodeType               `json:"type"`
	Name        string                 `json:"name"`
	Function    string                 `json:"function,omitempty"` // registered handler name, defaults to ID
	Config      map[string]interface{} `json:"config,omitempty"`
	Retries     int                    `json:"retries,omitempty"`
	Timeout     time.Duration          `json:"timeout,omitempty"`
	Conditional *ConditionalBranch     `json:"conditional,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// ConditionalBranch routes to the next node after this node finishes.
// The router named by Router returns a key looked up in Conditions.
type ConditionalBranch struct {
	Router     string            `json:"router"`
	Conditions map[string]string `json:"conditions"` // router key -> target node ID (or End)
	Default    string            `json:"default"`    // target if the key is not in Conditions
}

// Validate ensures node integrity
func (n *Node) Validate() error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if n.ID == End {
		return ErrReservedNodeID
	}
	if n.Name == "" {
		return ErrInvalidNodeName
	}
	if n.Type == "" {
		return ErrInvalidNodeType
	}
	if n.Type == NodeTypeConditional && n.Conditional == nil {
		return ErrMissingConditional
	}
	if n.Conditional != nil && n.Conditional.Router == "" {
		return ErrMissingRouter
	}
	return nil
}

// IsConditional reports whether the node routes through a branch
func (n *Node) IsConditional() bool {
	return n.Conditional != nil
}

// HandlerName returns the registered function name for the node
func (n *Node) HandlerName() string {
	if n.Function != "" {
		return n.Function
	}
	return n.ID
}

// Targets lists every node the branch can route to, including the default.
func (b *ConditionalBranch) Targets() []string {
	out := make([]string, 0, len(b.Conditions)+1)
	for _, t := range b.Conditions {
		out = append(out, t)
	}
	if b.Default != "" {
		out = append(out, b.Default)
	}
	return out
}
