// Package graph provides the core graph domain entities with zero external
// dependencies. A graph is pure data: node behaviour is bound at execution
// time by name.
package graph

import (
	"fmt"
	"time"
)

// Graph represents the core graph entity
type Graph struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Nodes      map[string]*Node `json:"nodes"`
	Edges      []*Edge          `json:"edges"`
	EntryPoint string           `json:"entry_point"`
	Config     GraphConfig      `json:"config"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// GraphConfig holds graph configuration
type GraphConfig struct {
	MaxIterations int                    `json:"max_iterations,omitempty"`
	Timeout       time.Duration          `json:"timeout,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// New returns an empty graph ready for AddNode/AddEdge.
func New(id, name string) *Graph {
	now := time.Now()
	return &Graph{
		ID:        id,
		Name:      name,
		Nodes:     make(map[string]*Node),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate ensures graph integrity
func (g *Graph) Validate() error {
	if g.Name == "" {
		return ErrInvalidGraphName
	}
	if g.EntryPoint == "" {
		return ErrNoEntryPoint
	}
	if _, exists := g.Nodes[g.EntryPoint]; !exists {
		return ErrInvalidEntryPoint
	}
	return nil
}

// AddNode adds a node to the graph
func (g *Graph) AddNode(node *Node) error {
	if node == nil {
		return ErrNilNode
	}
	if err := node.Validate(); err != nil {
		return err
	}
	if g.Nodes == nil {
		g.Nodes = make(map[string]*Node)
	}
	if _, exists := g.Nodes[node.ID]; exists {
		return ErrDuplicateNode
	}
	g.Nodes[node.ID] = node
	g.UpdatedAt = time.Now()
	return nil
}

// AddEdge adds an edge to the graph. The target may be End.
func (g *Graph) AddEdge(edge *Edge) error {
	if edge == nil {
		return ErrNilEdge
	}
	if err := edge.Validate(); err != nil {
		return err
	}
	if _, exists := g.Nodes[edge.Source]; !exists {
		return ErrSourceNodeNotFound
	}
	if !g.HasTarget(edge.Target) {
		return ErrTargetNodeNotFound
	}
	for _, e := range g.Edges {
		if e.Source == edge.Source && e.Target == edge.Target && e.Type == edge.Type && e.Condition == edge.Condition {
			return ErrDuplicateEdge
		}
	}
	if edge.ID == "" {
		edge.ID = fmt.Sprintf("%s->%s", edge.Source, edge.Target)
	}
	g.Edges = append(g.Edges, edge)
	g.UpdatedAt = time.Now()
	return nil
}

// Connect is shorthand for a default edge between two nodes.
func (g *Graph) Connect(source, target string) error {
	return g.AddEdge(&Edge{Source: source, Target: target, Type: EdgeTypeDefault})
}

// SetEntryPoint marks the node execution starts from.
func (g *Graph) SetEntryPoint(nodeID string) error {
	if _, ok := g.Nodes[nodeID]; !ok {
		return ErrInvalidEntryPoint
	}
	g.EntryPoint = nodeID
	g.UpdatedAt = time.Now()
	return nil
}

// HasTarget reports whether id is a valid routing target
func (g *Graph) HasTarget(id string) bool {
	if id == End {
		return true
	}
	_, ok := g.Nodes[id]
	return ok
}

// OutgoingEdges returns the edges leaving nodeID in insertion order.
func (g *Graph) OutgoingEdges(nodeID string) []*Edge {
	var out []*Edge
	for _, e := range g.Edges {
		if e.Source == nodeID {
			out = append(out, e)
		}
	}
	return out
}
