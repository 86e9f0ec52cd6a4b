package support

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/flowgraph/csagent/internal/hub"
	"github.com/flowgraph/csagent/internal/infrastructure/metrics"
	"github.com/flowgraph/csagent/internal/llm"
	"github.com/flowgraph/csagent/internal/search"
)

// DefaultMaxResults caps each research query
const DefaultMaxResults = 2

var (
	// ErrNoSearcher is returned by the research nodes when Nodes has no Searcher.
	ErrNoSearcher = errors.New("support: no searcher configured")
)

// Queries is the structured output of the research steps
type Queries struct {
	Queries []string `json:"queries"`
}

var queriesSchema = llm.Schema{
	Name:        "Queries",
	Description: "Search queries that gather the information needed to answer.",
	Parameters: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"queries": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "string"},
			},
		},
		"required": []string{"queries"},
	},
}

// Nodes holds the step functions of the workflow. Each returns a partial
// update and never touches the state it was given.
type Nodes struct {
	Model      llm.Model
	Searcher   search.Searcher
	MaxResults int
	Logger     *slog.Logger
}

func (n *Nodes) logger() *slog.Logger {
	if n.Logger == nil {
		return slog.Default()
	}
	return n.Logger
}

func (n *Nodes) maxResults() int {
	if n.MaxResults <= 0 {
		return DefaultMaxResults
	}
	return n.MaxResults
}

// Plan asks the manager for a plan
func (n *Nodes) Plan(ctx context.Context, state map[string]interface{}) (map[string]interface{}, error) {
	s := StateFrom(state)
	plan, err := llm.Invoke(ctx, n.Model, llm.System(ManagerPrompt), llm.Human(s.Task))
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	return map[string]interface{}{KeyPlan: plan}, nil
}

// ResearchPlan searches for the policy details behind the task.
func (n *Nodes) ResearchPlan(ctx context.Context, state map[string]interface{}) (map[string]interface{}, error) {
	s := StateFrom(state)
	content, err := n.research(ctx, PolicyPrompt, s.Task, s.Content)
	if err != nil {
		return nil, fmt.Errorf("research plan: %w", err)
	}
	return map[string]interface{}{KeyContent: content}, nil
}

// ResearchCritique searches for what the critique asks for.
func (n *Nodes) ResearchCritique(ctx context.Context, state map[string]interface{}) (map[string]interface{}, error) {
	s := StateFrom(state)
	content, err := n.research(ctx, SeniorAgentPrompt, s.Critique, s.Content)
	if err != nil {
		return nil, fmt.Errorf("research critique: %w", err)
	}
	return map[string]interface{}{KeyContent: content}, nil
}

// research returns a copy of content with every snippet found for the
// model's queries appended.
func (n *Nodes) research(ctx context.Context, system, input string, content []string) ([]string, error) {
	if n.Searcher == nil {
		return nil, ErrNoSearcher
	}
	var q Queries
	if err := llm.InvokeStructured(ctx, n.Model, queriesSchema, []llm.Message{llm.System(system), llm.Human(input)}, &q); err != nil {
		return nil, err
	}

	out := append([]string(nil), content...)
	for _, query := range q.Queries {
		resp, err := n.Searcher.Search(ctx, query, n.maxResults())
		if err != nil {
			return nil, fmt.Errorf("search %q: %w", query, err)
		}
		for _, r := range resp.Results {
			out = append(out, r.Content)
		}
	}
	n.logger().Debug("research done", "queries", len(q.Queries), "content", len(out))
	return out, nil
}

// Generate drafts an answer from the task, plan and gathered content and
// bumps the revision number.
func (n *Nodes) Generate(ctx context.Context, state map[string]interface{}) (map[string]interface{}, error) {
	s := StateFrom(state)
	system, err := hub.FormatFString(AgentPrompt, map[string]string{"content": strings.Join(s.Content, "\n\n")})
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	user := fmt.Sprintf("%s\n\nHere is my plan:\n\n%s", s.Task, s.Plan)

	draft, err := llm.Invoke(ctx, n.Model, llm.System(system), llm.Human(user))
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	metrics.IncRevisions()

	revision := s.RevisionNumber
	if revision == 0 {
		revision = 1
	}
	return map[string]interface{}{
		KeyDraft:          draft,
		KeyRevisionNumber: revision + 1,
	}, nil
}

// Reflect has QA critique the current draft
func (n *Nodes) Reflect(ctx context.Context, state map[string]interface{}) (map[string]interface{}, error) {
	s := StateFrom(state)
	critique, err := llm.Invoke(ctx, n.Model, llm.System(QualityPrompt), llm.Human(s.Draft))
	if err != nil {
		return nil, fmt.Errorf("reflect: %w", err)
	}
	return map[string]interface{}{KeyCritique: critique}, nil
}
