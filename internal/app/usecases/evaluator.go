package usecases

import (
	"context"
	"fmt"
	"sync"

	"github.com/flowgraph/csagent/internal/core/graph"
)

// DefaultEdgeEvaluator resolves the next node. A node with a conditional
// branch asks its router; otherwise the first outgoing edge whose
// condition holds wins, and a node with no such edge ends the run.
type DefaultEdgeEvaluator struct {
	mu      sync.RWMutex
	routers map[string]RouterFunc
}

// NewDefaultEdgeEvaluator creates a new edge evaluator
func NewDefaultEdgeEvaluator() *DefaultEdgeEvaluator {
	return &DefaultEdgeEvaluator{routers: make(map[string]RouterFunc)}
}

// RegisterRouter binds a router function by name
func (e *DefaultEdgeEvaluator) RegisterRouter(name string, fn RouterFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.routers[name] = fn
}

// Evaluate returns true if the edge condition is satisfied
func (e *DefaultEdgeEvaluator) Evaluate(_ context.Context, edge *graph.Edge, state map[string]interface{}) (bool, error) {
	return evaluateCondition(edge.Condition, state)
}

// Next returns the ID of the node that runs after current, or graph.End.
func (e *DefaultEdgeEvaluator) Next(ctx context.Context, current *graph.Node, edges []*graph.Edge, state map[string]interface{}) (string, error) {
	if current.Conditional != nil {
		return e.route(ctx, current, state)
	}

	for _, edge := range edges {
		if edge.Source != current.ID {
			continue
		}
		ok, err := e.Evaluate(ctx, edge, state)
		if err != nil {
			return "", fmt.Errorf("failed to evaluate edge %s: %w", edge.ID, err)
		}
		if ok {
			return edge.Target, nil
		}
	}
	return graph.End, nil
}

func (e *DefaultEdgeEvaluator) route(ctx context.Context, current *graph.Node, state map[string]interface{}) (string, error) {
	branch := current.Conditional
	e.mu.RLock()
	router, ok := e.routers[branch.Router]
	e.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s on node %s", ErrUnknownRouter, branch.Router, current.ID)
	}

	key, err := router(ctx, state)
	if err != nil {
		return "", fmt.Errorf("router %s: %w", branch.Router, err)
	}
	if target, ok := branch.Conditions[key]; ok {
		return target, nil
	}
	if branch.Default != "" {
		return branch.Default, nil
	}
	return "", fmt.Errorf("%w: %q from router %s", ErrUnknownRoute, key, branch.Router)
}

// evaluateCondition understands the small fixed vocabulary used on edges.
func evaluateCondition(condition string, state map[string]interface{}) (bool, error) {
	switch condition {
	case "", "always":
		return true, nil
	case "never":
		return false, nil
	case "has_error":
		errVal, exists := state["error"]
		return exists && errVal != nil, nil
	case "no_error":
		errVal, exists := state["error"]
		return !exists || errVal == nil, nil
	case "success":
		return state["status"] == "success", nil
	case "failure":
		status := state["status"]
		return status == "failure" || status == "failed", nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownCondition, condition)
	}
}
