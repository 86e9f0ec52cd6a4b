// Package validation checks graph definitions before they run and
// configuration structs before they are used.
package validation

import (
	"fmt"

	coregraph "github.com/flowgraph/csagent/internal/core/graph"
)

// GraphValidationOptions controls optional validation checks.
type GraphValidationOptions struct {
	// CheckCycles rejects graphs with directed cycles. Off by default since
	// revision loops are cycles.
	CheckCycles bool
}

// ValidateCoreGraph performs structural validation on a graph loaded or
// assembled outside AddNode/AddEdge. Edge and branch targets may be End.
func ValidateCoreGraph(g *coregraph.Graph, opts ...GraphValidationOptions) error {
	if g == nil {
		return fmt.Errorf("graph is nil")
	}
	if err := g.Validate(); err != nil {
		return err
	}

	for id, n := range g.Nodes {
		if n == nil {
			return fmt.Errorf("nil node encountered")
		}
		if err := n.Validate(); err != nil {
			return fmt.Errorf("node %s: %w", id, err)
		}
		if n.Conditional == nil {
			continue
		}
		for _, target := range n.Conditional.Targets() {
			if !g.HasTarget(target) {
				return fmt.Errorf("node %s branch to %s: %w", id, target, coregraph.ErrTargetNodeNotFound)
			}
		}
	}

	type edgeKey struct{ s, t, ty, cond string }
	seen := make(map[edgeKey]struct{}, len(g.Edges))

	for _, e := range g.Edges {
		if e == nil {
			return fmt.Errorf("nil edge encountered")
		}
		if err := e.Validate(); err != nil {
			return err
		}
		if _, ok := g.Nodes[e.Source]; !ok {
			return coregraph.ErrSourceNodeNotFound
		}
		if !g.HasTarget(e.Target) {
			return coregraph.ErrTargetNodeNotFound
		}
		k := edgeKey{e.Source, e.Target, string(e.Type), e.Condition}
		if _, dup := seen[k]; dup {
			return coregraph.ErrDuplicateEdge
		}
		seen[k] = struct{}{}
	}

	var cfg GraphValidationOptions
	if len(opts) > 0 {
		cfg = opts[0]
	}
	if cfg.CheckCycles && hasCycle(g) {
		return coregraph.ErrCyclicGraph
	}
	return nil
}

// successors lists every node reachable in one step, edges and branches alike.
func successors(g *coregraph.Graph) map[string][]string {
	adj := make(map[string][]string, len(g.Nodes))
	for _, e := range g.Edges {
		if e.Target != coregraph.End {
			adj[e.Source] = append(adj[e.Source], e.Target)
		}
	}
	for id, n := range g.Nodes {
		if n.Conditional == nil {
			continue
		}
		for _, t := range n.Conditional.Targets() {
			if t != coregraph.End {
				adj[id] = append(adj[id], t)
			}
		}
	}
	return adj
}

// hasCycle detects any cycle using DFS with coloring.
func hasCycle(g *coregraph.Graph) bool {
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(g.Nodes))
	adj := successors(g)

	var dfs func(string) bool
	dfs = func(u string) bool {
		color[u] = gray
		for _, v := range adj[u] {
			if color[v] == gray {
				return true
			}
			if color[v] == white && dfs(v) {
				return true
			}
		}
		color[u] = black
		return false
	}
	for id := range g.Nodes {
		if color[id] == white && dfs(id) {
			return true
		}
	}
	return false
}

// Unreachable returns the IDs of nodes that cannot be reached from the
// entry point.
func Unreachable(g *coregraph.Graph) []string {
	adj := successors(g)
	seen := map[string]bool{g.EntryPoint: true}
	queue := []string{g.EntryPoint}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, v := range adj[u] {
			if !seen[v] {
				seen[v] = true
				queue = append(queue, v)
			}
		}
	}
	var out []string
	for id := range g.Nodes {
		if !seen[id] {
			out = append(out, id)
		}
	}
	return out
}
