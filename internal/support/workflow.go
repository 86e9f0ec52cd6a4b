package support

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flowgraph/csagent/pkg/flowgraph"
	"github.com/flowgraph/csagent/pkg/prebuilt"
)

// GraphID names the support graph in the runtime
const GraphID = "support"

// Node IDs
const (
	NodePlanner          = "planner"
	NodeResearchPlan     = "research_plan"
	NodeGenerate         = "generate"
	NodeReflect          = "reflect"
	NodeResearchCritique = "research_critique"

	routerShouldContinue = "should_continue"
)

// ShouldContinue ends the run once the revision number passes the limit,
// otherwise it routes to another critique.
func (n *Nodes) ShouldContinue(_ context.Context, state map[string]interface{}) (string, error) {
	s := StateFrom(state)
	n.logger().Info("revision check", "current", s.RevisionNumber, "limit", s.MaxRevisions)
	if s.RevisionNumber > s.MaxRevisions {
		return flowgraph.End, nil
	}
	return NodeReflect, nil
}

// BuildGraph returns the support graph. retries applies to every node.
func BuildGraph(retries int) (*flowgraph.Graph, error) {
	g := flowgraph.NewGraph(GraphID, "Customer service agent")

	nodes := []*flowgraph.Node{
		{ID: NodePlanner, Name: "Planner", Type: flowgraph.NodeTypeAgent},
		{ID: NodeResearchPlan, Name: "Research plan", Type: flowgraph.NodeTypeAgent},
		{
			ID:   NodeGenerate,
			Name: "Generate",
			Type: flowgraph.NodeTypeAgent,
			Conditional: &flowgraph.ConditionalBranch{
				Router: routerShouldContinue,
				Conditions: map[string]string{
					NodeReflect:   NodeReflect,
					flowgraph.End: flowgraph.End,
				},
			},
		},
		{ID: NodeReflect, Name: "Reflect", Type: flowgraph.NodeTypeAgent},
		{ID: NodeResearchCritique, Name: "Research critique", Type: flowgraph.NodeTypeAgent},
	}
	for _, node := range nodes {
		node.Retries = retries
		if err := g.AddNode(node); err != nil {
			return nil, err
		}
	}

	for _, e := range [][2]string{
		{NodePlanner, NodeResearchPlan},
		{NodeResearchPlan, NodeGenerate},
		{NodeReflect, NodeResearchCritique},
		{NodeResearchCritique, NodeGenerate},
	} {
		if err := g.Connect(e[0], e[1]); err != nil {
			return nil, err
		}
	}
	if err := g.SetEntryPoint(NodePlanner); err != nil {
		return nil, err
	}
	return g, nil
}

// GraphConfig is the prebuilt registry config for the support graph
type GraphConfig struct {
	Retries int
}

func init() {
	prebuilt.DefaultRegistry.MustRegister(prebuilt.NewBuildFunc(GraphID, func(_ context.Context, cfg any) (*flowgraph.Graph, error) {
		switch c := cfg.(type) {
		case nil:
			return BuildGraph(0)
		case GraphConfig:
			return BuildGraph(c.Retries)
		default:
			return nil, fmt.Errorf("%w for %s: %T", prebuilt.ErrInvalidConfig, GraphID, cfg)
		}
	}))
}

// Register binds the node functions and router of n on rt.
func (n *Nodes) Register(rt *flowgraph.Runtime) {
	rt.RegisterFunc(NodePlanner, n.Plan)
	rt.RegisterFunc(NodeResearchPlan, n.ResearchPlan)
	rt.RegisterFunc(NodeGenerate, n.Generate)
	rt.RegisterFunc(NodeReflect, n.Reflect)
	rt.RegisterFunc(NodeResearchCritique, n.ResearchCritique)
	rt.RegisterRouter(routerShouldContinue, n.ShouldContinue)
}

// Workflow runs the support graph on a runtime
type Workflow struct {
	rt     *flowgraph.Runtime
	logger *slog.Logger
}

// NewWorkflow registers nodes on a fresh runtime built from opts and saves
// the graph.
func NewWorkflow(ctx context.Context, nodes *Nodes, retries int, opts ...flowgraph.Option) (*Workflow, error) {
	rt := flowgraph.NewRuntime(append([]flowgraph.Option{flowgraph.WithLogger(nodes.logger())}, opts...)...)
	nodes.Register(rt)

	g, err := BuildGraph(retries)
	if err != nil {
		return nil, fmt.Errorf("failed to build support graph: %w", err)
	}
	if err := rt.SaveGraph(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to save support graph: %w", err)
	}
	return &Workflow{rt: rt, logger: nodes.logger()}, nil
}

// StepFunc receives each finished step as {node: update}
type StepFunc func(step map[string]map[string]interface{}) error

// Run executes the workflow on threadID and returns the final state.
func (w *Workflow) Run(ctx context.Context, threadID string, input State) (State, error) {
	return w.Stream(ctx, threadID, input, nil)
}

// Stream executes the workflow and calls fn after every step. The final
// state is returned even when a step fails.
func (w *Workflow) Stream(ctx context.Context, threadID string, input State, fn StepFunc) (State, error) {
	resp, err := w.rt.Stream(ctx, GraphID, threadID, input.Values(), stepHook(fn))
	return w.finish(threadID, resp, err)
}

// Resume continues threadID from its newest checkpoint, re-running the
// step that was next when it was written.
func (w *Workflow) Resume(ctx context.Context, threadID string, fn StepFunc) (State, error) {
	_, checkpointID, err := w.rt.State(ctx, GraphID, threadID)
	if err != nil {
		return State{}, fmt.Errorf("support workflow: resume %s: %w", threadID, err)
	}
	w.logger.Info("resuming support workflow", "thread_id", threadID, "checkpoint_id", checkpointID)
	resp, err := w.rt.Resume(ctx, checkpointID, nil, stepHook(fn))
	return w.finish(threadID, resp, err)
}

func (w *Workflow) finish(threadID string, resp *flowgraph.Response, err error) (State, error) {
	var final State
	if resp != nil {
		final = StateFrom(resp.Output)
		w.logger.Debug("support run finished", "thread_id", threadID, "steps", len(resp.Steps), "status", resp.Status)
	}
	if err != nil {
		return final, fmt.Errorf("support workflow: %w", err)
	}
	return final, nil
}

func stepHook(fn StepFunc) flowgraph.StepHook {
	if fn == nil {
		return nil
	}
	return func(step flowgraph.StepResult) error {
		return fn(map[string]map[string]interface{}{step.NodeID: step.Update})
	}
}

// State returns the last checkpointed state of threadID
func (w *Workflow) State(ctx context.Context, threadID string) (State, error) {
	v, _, err := w.rt.State(ctx, GraphID, threadID)
	if err != nil {
		return State{}, err
	}
	return StateFrom(v), nil
}
