package usecases

import (
	"context"
	"fmt"
	"sync"

	"github.com/flowgraph/csagent/internal/core/graph"
	"github.com/flowgraph/csagent/internal/infrastructure/metrics"
)

// DefaultNodeProcessor dispatches a node to the processor registered for
// its type, applying the node's timeout and retry policy around the call.
type DefaultNodeProcessor struct {
	mu         sync.RWMutex
	processors map[graph.NodeType]NodeTypeProcessor
	funcs      *FuncRegistry
}

// NodeTypeProcessor defines the interface for type-specific node processors
type NodeTypeProcessor interface {
	Process(ctx context.Context, node *graph.Node, state map[string]interface{}) (map[string]interface{}, error)
}

// FuncRegistry holds the functions nodes are bound to by name.
type FuncRegistry struct {
	mu    sync.RWMutex
	funcs map[string]NodeFunc
}

// NewFuncRegistry creates an empty registry
func NewFuncRegistry() *FuncRegistry {
	return &FuncRegistry{funcs: make(map[string]NodeFunc)}
}

// Register binds name to fn, replacing any previous binding.
func (r *FuncRegistry) Register(name string, fn NodeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// Lookup returns the function bound to name.
func (r *FuncRegistry) Lookup(name string) (NodeFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// NewDefaultNodeProcessor creates a processor where function, agent and
// tool nodes run registered functions and conditional nodes only route.
func NewDefaultNodeProcessor() *DefaultNodeProcessor {
	funcs := NewFuncRegistry()
	processor := &DefaultNodeProcessor{
		processors: make(map[graph.NodeType]NodeTypeProcessor),
		funcs:      funcs,
	}

	fn := &FunctionNodeProcessor{funcs: funcs}
	processor.RegisterProcessor(graph.NodeTypeFunction, fn)
	processor.RegisterProcessor(graph.NodeTypeAgent, fn)
	processor.RegisterProcessor(graph.NodeTypeTool, fn)
	processor.RegisterProcessor(graph.NodeTypeConditional, &ConditionalNodeProcessor{})

	return processor
}

// RegisterProcessor registers a processor for a specific node type
func (p *DefaultNodeProcessor) RegisterProcessor(nodeType graph.NodeType, processor NodeTypeProcessor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processors[nodeType] = processor
}

// RegisterFunc binds a node function by name
func (p *DefaultNodeProcessor) RegisterFunc(name string, fn NodeFunc) {
	p.funcs.Register(name, fn)
}

// Process runs node against state. A failed attempt is retried up to
// node.Retries times; each attempt gets node.Timeout when it is set.
func (p *DefaultNodeProcessor) Process(ctx context.Context, node *graph.Node, state map[string]interface{}) (map[string]interface{}, error) {
	p.mu.RLock()
	processor, exists := p.processors[node.Type]
	p.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNoProcessor, node.Type)
	}

	var (
		update map[string]interface{}
		err    error
	)
	for attempt := 0; attempt <= node.Retries; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return nil, cerr
		}
		update, err = p.attempt(ctx, processor, node, state)
		metrics.NodeExecuted(node.ID, err)
		if err == nil {
			return update, nil
		}
	}
	return nil, err
}

func (p *DefaultNodeProcessor) attempt(ctx context.Context, processor NodeTypeProcessor, node *graph.Node, state map[string]interface{}) (map[string]interface{}, error) {
	if node.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, node.Timeout)
		defer cancel()
	}
	return processor.Process(ctx, node, state)
}

// CanProcess returns true if this processor can handle the given node type
func (p *DefaultNodeProcessor) CanProcess(nodeType graph.NodeType) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, exists := p.processors[nodeType]
	return exists
}

// FunctionNodeProcessor runs the function bound to node.HandlerName()
type FunctionNodeProcessor struct {
	funcs *FuncRegistry
}

func (p *FunctionNodeProcessor) Process(ctx context.Context, node *graph.Node, state map[string]interface{}) (map[string]interface{}, error) {
	fn, ok := p.funcs.Lookup(node.HandlerName())
	if !ok {
		return nil, fmt.Errorf("%w: %s (%s)", ErrUnknownFunction, node.ID, node.HandlerName())
	}
	return fn(ctx, state)
}

// ConditionalNodeProcessor handles routing-only nodes; they write nothing.
type ConditionalNodeProcessor struct{}

func (p *ConditionalNodeProcessor) Process(context.Context, *graph.Node, map[string]interface{}) (map[string]interface{}, error) {
	return map[string]interface{}{}, nil
}
