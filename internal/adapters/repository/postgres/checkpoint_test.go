package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/flowgraph/csagent/internal/core/checkpoint"
	"github.com/flowgraph/csagent/pkg/serialization"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresCheckpointSaver(t *testing.T) {
	dsn := os.Getenv("CSAGENT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("Integration test requires PostgreSQL database (set CSAGENT_TEST_POSTGRES_DSN)")
	}

	ctx := context.Background()
	saver, err := Open(ctx, dsn, serialization.DefaultSerializer())
	require.NoError(t, err)
	defer saver.Close()

	cp := &checkpoint.Checkpoint{
		ID:        "pg-test-1",
		GraphID:   "support",
		ThreadID:  "pg-thread",
		State:     map[string]interface{}{"task": "refund"},
		Metadata:  checkpoint.Metadata{Step: 1, Next: "research_plan"},
		Timestamp: time.Now(),
		Version:   checkpoint.CurrentVersion,
	}
	require.NoError(t, saver.Save(ctx, cp))
	defer func() { _ = saver.Delete(ctx, cp.ID) }()

	loaded, err := saver.Load(ctx, cp.ID)
	require.NoError(t, err)
	assert.Equal(t, "refund", loaded.State["task"])
	assert.Equal(t, "research_plan", loaded.Metadata.Next)
}

func TestPostgresCheckpointSaver_Errors(t *testing.T) {
	ctx := context.Background()
	saver := &CheckpointSaver{serializer: serialization.DefaultSerializer(), tableName: "checkpoints"}

	assert.Equal(t, checkpoint.ErrInvalidCheckpointID, saver.Save(ctx, nil))

	_, err := saver.Load(ctx, "")
	assert.Equal(t, checkpoint.ErrInvalidCheckpointID, err)

	assert.Equal(t, checkpoint.ErrInvalidCheckpointID, saver.Delete(ctx, ""))

	_, err = saver.List(ctx, checkpoint.Filter{Offset: -1})
	assert.ErrorIs(t, err, checkpoint.ErrInvalidOffset)
}

func TestBuildListQuery(t *testing.T) {
	saver := &CheckpointSaver{tableName: "checkpoints"}
	since := time.Unix(100, 0)

	query, args := saver.buildListQuery(checkpoint.Filter{ThreadID: "t1", Since: &since, Limit: 5, Offset: 2})
	assert.Equal(t,
		"SELECT id, graph_id, thread_id, state, metadata, timestamp, version FROM checkpoints WHERE 1=1"+
			" AND thread_id = $1 AND timestamp > $2 ORDER BY timestamp DESC, step DESC LIMIT $3 OFFSET $4",
		query)
	assert.Equal(t, []interface{}{"t1", since, 5, 2}, args)
}
