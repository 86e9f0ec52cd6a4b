package prebuilt

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/flowgraph/csagent/pkg/flowgraph"
)

// Builder constructs a graph from a typed configuration.
// Implementations should be pure (no side effects) and return
// a graph that passes core validation.
type Builder interface {
	Name() string
	Build(ctx context.Context, cfg any) (*flowgraph.Graph, error)
}

// BuildFunc is a convenience adapter to implement Builder via functions.
type BuildFunc struct {
	NameStr string
	Fn      func(ctx context.Context, cfg any) (*flowgraph.Graph, error)
}

func (b BuildFunc) Name() string { return b.NameStr }
func (b BuildFunc) Build(ctx context.Context, cfg any) (*flowgraph.Graph, error) {
	return b.Fn(ctx, cfg)
}

// NewBuildFunc creates a Builder from a function.
func NewBuildFunc(name string, fn func(ctx context.Context, cfg any) (*flowgraph.Graph, error)) BuildFunc {
	return BuildFunc{NameStr: name, Fn: fn}
}

// Registry holds named prebuilts.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

// Register adds or replaces a prebuilt builder.
func (r *Registry) Register(b Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[b.Name()] = b
}

// MustRegister panics on duplicate names; useful during init() setup.
func (r *Registry) MustRegister(b Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.builders[b.Name()]; exists {
		panic(fmt.Sprintf("prebuilt already registered: %s", b.Name()))
	}
	r.builders[b.Name()] = b
}

// Get retrieves a named prebuilt.
func (r *Registry) Get(name string) (Builder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.builders[name]
	return b, ok
}

// Names lists registered prebuilts in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build looks up name and builds it with cfg.
func (r *Registry) Build(ctx context.Context, name string, cfg any) (*flowgraph.Graph, error) {
	b, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPrebuilt, name)
	}
	return b.Build(ctx, cfg)
}

// DefaultRegistry is a singleton for convenience. Projects can also
// construct their own Registry if they want isolation.
var DefaultRegistry = NewRegistry()
