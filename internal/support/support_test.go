package support

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph/csagent/internal/llm"
	"github.com/flowgraph/csagent/internal/llm/llmtest"
	"github.com/flowgraph/csagent/internal/search"
	"github.com/flowgraph/csagent/pkg/prebuilt"
)

const task = "what is the refund policy of the product apple 16 phone"

type fakeSearcher struct {
	mu      sync.Mutex
	queries []string
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, query string, maxResults int) (*search.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	resp := &search.Response{Query: query}
	for i := 1; i <= 3 && i <= maxResults; i++ {
		resp.Results = append(resp.Results, search.Result{Content: fmt.Sprintf("%s #%d", query, i)})
	}
	return resp, nil
}

// supportModel answers by prompt. Drafts are numbered by how much content
// the agent saw.
func supportModel() llmtest.Func {
	return func(req llm.Request) (llm.Message, error) {
		if req.ToolChoice == "Queries" {
			return llm.Message{
				Role:      llm.RoleAssistant,
				ToolCalls: []llm.ToolCall{{ID: "1", Name: "Queries", Arguments: `{"queries":["refund policy","refund policy"]}`}},
			}, nil
		}
		system := req.Messages[0].Content
		switch {
		case system == ManagerPrompt:
			return llm.AI("PLAN"), nil
		case system == QualityPrompt:
			return llm.AI("CRITIQUE of " + req.Messages[1].Content), nil
		case strings.HasPrefix(system, "You are a junior"):
			return llm.AI(fmt.Sprintf("DRAFT with %d snippets", strings.Count(system, "refund policy #"))), nil
		}
		return llm.Message{}, fmt.Errorf("unexpected prompt %q", system)
	}
}

func newTestWorkflow(t *testing.T, model llm.Model, searcher search.Searcher) *Workflow {
	t.Helper()
	wf, err := NewWorkflow(context.Background(), &Nodes{Model: model, Searcher: searcher}, 0)
	require.NoError(t, err)
	return wf
}

func TestWorkflow_RevisionCount(t *testing.T) {
	tests := []struct {
		maxRevisions int
		wantDrafts   int
	}{
		{maxRevisions: 0, wantDrafts: 1},
		{maxRevisions: 1, wantDrafts: 1},
		{maxRevisions: 2, wantDrafts: 2},
		{maxRevisions: 4, wantDrafts: 4},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("max_revisions=%d", tt.maxRevisions), func(t *testing.T) {
			wf := newTestWorkflow(t, supportModel(), &fakeSearcher{})

			var nodes []string
			final, err := wf.Stream(context.Background(), "1", State{Task: task, MaxRevisions: tt.maxRevisions, RevisionNumber: 1},
				func(step map[string]map[string]interface{}) error {
					for node := range step {
						nodes = append(nodes, node)
					}
					return nil
				})
			require.NoError(t, err)

			drafts := 0
			for _, n := range nodes {
				if n == NodeGenerate {
					drafts++
				}
			}
			assert.Equal(t, tt.wantDrafts, drafts)
			assert.Equal(t, tt.wantDrafts+1, final.RevisionNumber)
			assert.Equal(t, []string{NodePlanner, NodeResearchPlan, NodeGenerate}, nodes[:3])
			assert.Equal(t, NodeGenerate, nodes[len(nodes)-1])
		})
	}
}

func TestWorkflow_ContentGrowsWithDuplicates(t *testing.T) {
	searcher := &fakeSearcher{}
	wf := newTestWorkflow(t, supportModel(), searcher)

	var lengths []int
	final, err := wf.Stream(context.Background(), "1", State{Task: task, MaxRevisions: 2},
		func(step map[string]map[string]interface{}) error {
			for _, update := range step {
				if c, ok := update[KeyContent]; ok {
					lengths = append(lengths, len(strs(c)))
				}
			}
			return nil
		})
	require.NoError(t, err)

	assert.Equal(t, []int{4, 8}, lengths)
	assert.Len(t, final.Content, 8)
	assert.Equal(t, "refund policy #1", final.Content[0])
	assert.Equal(t, final.Content[0], final.Content[2])
	assert.Len(t, searcher.queries, 4)
	assert.Equal(t, "DRAFT with 8 snippets", final.Draft)
	assert.Equal(t, "CRITIQUE of DRAFT with 4 snippets", final.Critique)
}

func TestWorkflow_Deterministic(t *testing.T) {
	run := func() State {
		wf := newTestWorkflow(t, supportModel(), &fakeSearcher{})
		s, err := wf.Run(context.Background(), "1", State{Task: task, MaxRevisions: 2, RevisionNumber: 1})
		require.NoError(t, err)
		return s
	}
	a, b := run(), run()
	assert.Equal(t, "PLAN", a.Plan)
	assert.Equal(t, a.Plan, b.Plan)
	assert.Equal(t, a.Draft, b.Draft)
	assert.Equal(t, a.Critique, b.Critique)
	assert.Equal(t, a.Content, b.Content)
}

func TestWorkflow_SearchErrorPropagates(t *testing.T) {
	errDown := errors.New("search backend down")
	wf := newTestWorkflow(t, supportModel(), &fakeSearcher{err: errDown})

	final, err := wf.Run(context.Background(), "1", State{Task: task, MaxRevisions: 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, errDown)
	assert.Equal(t, "PLAN", final.Plan)
	assert.Empty(t, final.Draft)
}

func TestWorkflow_ModelErrorPropagates(t *testing.T) {
	errAuth := errors.New("401 unauthorized")
	model := &llmtest.Scripted{Replies: []llmtest.Reply{llmtest.Fail(errAuth)}}
	wf := newTestWorkflow(t, model, &fakeSearcher{})

	_, err := wf.Run(context.Background(), "1", State{Task: task, MaxRevisions: 2})
	assert.ErrorIs(t, err, errAuth)
	assert.Equal(t, 1, model.Calls())
}

func TestWorkflow_State(t *testing.T) {
	wf := newTestWorkflow(t, supportModel(), &fakeSearcher{})
	final, err := wf.Run(context.Background(), "thread-7", State{Task: task, MaxRevisions: 1})
	require.NoError(t, err)

	saved, err := wf.State(context.Background(), "thread-7")
	require.NoError(t, err)
	assert.Equal(t, final, saved)
}

func TestNodes_Generate(t *testing.T) {
	model := &llmtest.Scripted{Replies: []llmtest.Reply{llmtest.Text("answer"), llmtest.Text("answer")}}
	n := &Nodes{Model: model}

	in := State{Task: "t", Plan: "p", Content: []string{"a", "b {x}"}}.Values()
	update, err := n.Generate(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{KeyDraft: "answer", KeyRevisionNumber: 2}, update)
	assert.Equal(t, []string{"a", "b {x}"}, in[KeyContent], "input state is left alone")

	req := model.Requests[0]
	require.Len(t, req.Messages, 2)
	assert.True(t, strings.HasSuffix(req.Messages[0].Content, "------\n\na\n\nb {x}"))
	assert.Equal(t, "t\n\nHere is my plan:\n\np", req.Messages[1].Content)

	update, err = n.Generate(context.Background(), State{RevisionNumber: 5}.Values())
	require.NoError(t, err)
	assert.Equal(t, 6, update[KeyRevisionNumber])
}

func TestNodes_ResearchCopiesContent(t *testing.T) {
	n := &Nodes{Model: supportModel(), Searcher: &fakeSearcher{}, MaxResults: 1}
	content := []string{"seed"}
	in := State{Critique: "be precise", Content: content}.Values()

	update, err := n.ResearchCritique(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, []string{"seed", "refund policy #1", "refund policy #1"}, update[KeyContent])
	assert.Equal(t, []string{"seed"}, content)

	_, err = (&Nodes{Model: supportModel()}).ResearchPlan(context.Background(), in)
	assert.ErrorIs(t, err, ErrNoSearcher)
}

func TestNodes_ShouldContinue(t *testing.T) {
	n := &Nodes{}
	tests := []struct {
		revision, limit int
		want            string
	}{
		{revision: 2, limit: 2, want: NodeReflect},
		{revision: 3, limit: 2, want: "__end__"},
		{revision: 1, limit: 0, want: "__end__"},
	}
	for _, tt := range tests {
		got, err := n.ShouldContinue(context.Background(), State{RevisionNumber: tt.revision, MaxRevisions: tt.limit}.Values())
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestStateFrom_DecodedShapes(t *testing.T) {
	s := StateFrom(map[string]interface{}{
		KeyTask:           "t",
		KeyContent:        []interface{}{"a", "b"},
		KeyRevisionNumber: int8(3),
		KeyMaxRevisions:   uint16(2),
	})
	assert.Equal(t, State{Task: "t", Content: []string{"a", "b"}, RevisionNumber: 3, MaxRevisions: 2}, s)

	v := State{Task: "t"}.Values()
	_, ok := v[KeyRevisionNumber]
	assert.False(t, ok)
}

func TestBuildGraph(t *testing.T) {
	g, err := prebuilt.DefaultRegistry.Build(context.Background(), GraphID, GraphConfig{Retries: 2})
	require.NoError(t, err)

	assert.Equal(t, NodePlanner, g.EntryPoint)
	assert.Len(t, g.Nodes, 5)
	for _, n := range g.Nodes {
		assert.Equal(t, 2, n.Retries, n.ID)
	}
	require.NotNil(t, g.Nodes[NodeGenerate].Conditional)
	assert.Equal(t, map[string]string{NodeReflect: NodeReflect, "__end__": "__end__"}, g.Nodes[NodeGenerate].Conditional.Conditions)
	assert.Len(t, g.OutgoingEdges(NodeGenerate), 0)
}
