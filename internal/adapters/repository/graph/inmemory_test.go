package graphrepo

import (
	"context"
	"testing"

	coregraph "github.com/flowgraph/csagent/internal/core/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func singleNode(id string) *coregraph.Graph {
	return &coregraph.Graph{
		ID:         id,
		Name:       "graph " + id,
		EntryPoint: "n1",
		Nodes: map[string]*coregraph.Node{
			"n1": {ID: "n1", Name: "Node 1", Type: coregraph.NodeTypeFunction},
		},
		Edges: []*coregraph.Edge{{Source: "n1", Target: coregraph.End}},
	}
}

func TestInMemoryGraphRepository_Get_NotFound(t *testing.T) {
	repo := NewInMemoryGraphRepository()

	g, err := repo.Get(context.Background(), "does-not-exist")
	assert.Nil(t, g)
	assert.ErrorIs(t, err, coregraph.ErrGraphNotFound)
}

func TestInMemoryGraphRepository_SaveAndGet(t *testing.T) {
	repo := NewInMemoryGraphRepository()
	g := singleNode("g1")

	require.NoError(t, repo.Save(context.Background(), g))

	loaded, err := repo.Get(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, g, loaded)
}

func TestInMemoryGraphRepository_SaveInvalid(t *testing.T) {
	repo := NewInMemoryGraphRepository()
	g := singleNode("g-bad")
	g.Edges = append(g.Edges, &coregraph.Edge{Source: "n1", Target: "missing"})

	err := repo.Save(context.Background(), g)
	assert.ErrorIs(t, err, coregraph.ErrTargetNodeNotFound)
}

func TestInMemoryGraphRepository_List(t *testing.T) {
	repo := NewInMemoryGraphRepository()
	require.NoError(t, repo.Save(context.Background(), singleNode("b")))
	require.NoError(t, repo.Save(context.Background(), singleNode("a")))

	all, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "b", all[1].ID)
}
