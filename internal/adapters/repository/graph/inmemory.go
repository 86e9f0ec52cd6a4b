// Package graphrepo stores graph definitions by ID.
package graphrepo

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/flowgraph/csagent/internal/core/graph"
	"github.com/flowgraph/csagent/pkg/validation"
)

// InMemoryGraphRepository is a map-backed, thread-safe graph store.
// Graphs are validated on Save so executors can trust what they Get.
type InMemoryGraphRepository struct {
	mu     sync.RWMutex
	graphs map[string]*graph.Graph
}

func NewInMemoryGraphRepository() *InMemoryGraphRepository {
	return &InMemoryGraphRepository{
		graphs: make(map[string]*graph.Graph),
	}
}

func (r *InMemoryGraphRepository) Save(_ context.Context, g *graph.Graph) error {
	// The support loop is a cycle, so no cycle check here
	if err := validation.ValidateCoreGraph(g); err != nil {
		return fmt.Errorf("invalid graph: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.graphs[g.ID] = g
	return nil
}

func (r *InMemoryGraphRepository) Get(_ context.Context, id string) (*graph.Graph, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.graphs[id]
	if !ok {
		return nil, graph.ErrGraphNotFound
	}
	return g, nil
}

// List returns all graphs ordered by ID.
func (r *InMemoryGraphRepository) List(_ context.Context) ([]*graph.Graph, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*graph.Graph, 0, len(r.graphs))
	for _, g := range r.graphs {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
