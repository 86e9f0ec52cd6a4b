// Package postgres stores checkpoints in PostgreSQL through pgx. It is the
// durable option for support threads that must survive a restart.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/flowgraph/csagent/internal/core/checkpoint"
	"github.com/flowgraph/csagent/pkg/serialization"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CheckpointSaver implements checkpoint.Saver interface for PostgreSQL
type CheckpointSaver struct {
	pool       *pgxpool.Pool
	serializer *serialization.Serializer
	tableName  string
}

// Open creates a pool for dsn and bootstraps the schema.
func Open(ctx context.Context, dsn string, serializer *serialization.Serializer) (*CheckpointSaver, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if serializer == nil {
		serializer = serialization.DefaultSerializer()
	}
	s := NewCheckpointSaver(pool, serializer)
	if err := s.CreateTables(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewCheckpointSaver wraps an existing pool
func NewCheckpointSaver(pool *pgxpool.Pool, serializer *serialization.Serializer) *CheckpointSaver {
	return &CheckpointSaver{
		pool:       pool,
		serializer: serializer,
		tableName:  "checkpoints",
	}
}

// Save upserts a checkpoint
func (s *CheckpointSaver) Save(ctx context.Context, cp *checkpoint.Checkpoint) error {
	if cp == nil {
		return checkpoint.ErrInvalidCheckpointID
	}
	if err := cp.Validate(); err != nil {
		return err
	}

	data, err := s.serializer.Serialize(cp.State)
	if err != nil {
		return fmt.Errorf("failed to serialize checkpoint state: %w", err)
	}
	meta, err := json.Marshal(cp.Metadata)
	if err != nil {
		return fmt.Errorf("failed to serialize metadata: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, graph_id, thread_id, step, state, metadata, timestamp, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			step = EXCLUDED.step,
			state = EXCLUDED.state,
			metadata = EXCLUDED.metadata,
			timestamp = EXCLUDED.timestamp`, s.tableName)

	if _, err = s.pool.Exec(ctx, query,
		cp.ID, cp.GraphID, cp.ThreadID, cp.Metadata.Step, data, meta, cp.Timestamp, cp.Version); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Load retrieves a checkpoint by ID
func (s *CheckpointSaver) Load(ctx context.Context, id string) (*checkpoint.Checkpoint, error) {
	if id == "" {
		return nil, checkpoint.ErrInvalidCheckpointID
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, columns, s.tableName)
	cp, err := s.scan(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, checkpoint.ErrCheckpointNotFound
		}
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return cp, nil
}

// List retrieves checkpoints based on filter criteria, newest first
func (s *CheckpointSaver) List(ctx context.Context, filter checkpoint.Filter) ([]*checkpoint.Checkpoint, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	query, args := s.buildListQuery(filter)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer rows.Close()

	var out []*checkpoint.Checkpoint
	for rows.Next() {
		cp, err := s.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint row: %w", err)
		}
		out = append(out, cp)
	}
	return out, rows.Err()
}

// Delete removes a checkpoint by ID
func (s *CheckpointSaver) Delete(ctx context.Context, id string) error {
	if id == "" {
		return checkpoint.ErrInvalidCheckpointID
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.tableName)
	result, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	if result.RowsAffected() == 0 {
		return checkpoint.ErrCheckpointNotFound
	}
	return nil
}

// CreateTables creates the checkpoint table and its indexes
func (s *CheckpointSaver) CreateTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id VARCHAR(255) PRIMARY KEY,
			graph_id VARCHAR(255) NOT NULL,
			thread_id VARCHAR(255) NOT NULL,
			step INTEGER NOT NULL DEFAULT 0,
			state BYTEA NOT NULL,
			metadata JSONB,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			version VARCHAR(50) NOT NULL DEFAULT '1.0'
		);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_thread_id ON %[1]s (thread_id, step);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_timestamp ON %[1]s (timestamp);
	`, s.tableName)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// Close closes the database connection pool
func (s *CheckpointSaver) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

const columns = "id, graph_id, thread_id, state, metadata, timestamp, version"

func (s *CheckpointSaver) scan(row pgx.Row) (*checkpoint.Checkpoint, error) {
	var (
		cp   checkpoint.Checkpoint
		data []byte
		meta []byte
	)
	if err := row.Scan(&cp.ID, &cp.GraphID, &cp.ThreadID, &data, &meta, &cp.Timestamp, &cp.Version); err != nil {
		return nil, err
	}
	if err := s.serializer.Deserialize(data, &cp.State); err != nil {
		return nil, fmt.Errorf("failed to deserialize checkpoint state: %w", err)
	}
	if cp.State == nil {
		cp.State = make(map[string]interface{})
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &cp.Metadata); err != nil {
			return nil, fmt.Errorf("failed to deserialize metadata: %w", err)
		}
	}
	return &cp, nil
}

// buildListQuery constructs the SQL query for listing checkpoints
func (s *CheckpointSaver) buildListQuery(filter checkpoint.Filter) (string, []interface{}) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s WHERE 1=1", columns, s.tableName)
	args := make([]interface{}, 0, 6)
	arg := func(clause string, v interface{}) {
		args = append(args, v)
		fmt.Fprintf(&b, clause, len(args))
	}

	if filter.GraphID != "" {
		arg(" AND graph_id = $%d", filter.GraphID)
	}
	if filter.ThreadID != "" {
		arg(" AND thread_id = $%d", filter.ThreadID)
	}
	if filter.Since != nil {
		arg(" AND timestamp > $%d", *filter.Since)
	}
	if filter.Before != nil {
		arg(" AND timestamp < $%d", *filter.Before)
	}

	b.WriteString(" ORDER BY timestamp DESC, step DESC")

	if filter.Limit > 0 {
		arg(" LIMIT $%d", filter.Limit)
	}
	if filter.Offset > 0 {
		arg(" OFFSET $%d", filter.Offset)
	}
	return b.String(), args
}
