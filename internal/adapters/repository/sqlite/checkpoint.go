// Package sqlite stores checkpoints in SQLite through modernc.org/sqlite.
// The default DSN ":memory:" gives a transient store that disappears with
// the process.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flowgraph/csagent/internal/core/checkpoint"
	"github.com/flowgraph/csagent/pkg/serialization"
	_ "modernc.org/sqlite"
)

// MemoryDSN opens a private in-memory database
const MemoryDSN = ":memory:"

// CheckpointSaver implements checkpoint.Saver interface for SQLite
type CheckpointSaver struct {
	db         *sql.DB
	serializer *serialization.Serializer
	tableName  string
}

// Open connects to dsn, creates the schema, and returns a saver that owns
// the connection. In-memory databases are pinned to one connection, since
// each new connection would otherwise see an empty database.
func Open(ctx context.Context, dsn string, serializer *serialization.Serializer) (*CheckpointSaver, error) {
	if dsn == "" {
		dsn = MemoryDSN
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", dsn, err)
	}
	if dsn == MemoryDSN || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	}
	if serializer == nil {
		serializer = serialization.DefaultSerializer()
	}
	s := NewCheckpointSaver(db, serializer)
	if err := s.CreateTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewCheckpointSaver wraps an existing database handle
func NewCheckpointSaver(db *sql.DB, serializer *serialization.Serializer) *CheckpointSaver {
	return &CheckpointSaver{
		db:         db,
		serializer: serializer,
		tableName:  "checkpoints",
	}
}

// WithTableName overrides the table name. Names other than [A-Za-z0-9_]+
// are ignored since the name is interpolated into SQL.
func (s *CheckpointSaver) WithTableName(name string) *CheckpointSaver {
	if isSafeIdent(name) {
		s.tableName = name
	}
	return s
}

func isSafeIdent(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			continue
		}
		return false
	}
	return true
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
		INSERT OR REPLACE INTO %s (id, graph_id, thread_id, step, state, metadata, timestamp, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, s.tableName)

	_, err = s.db.ExecContext(ctx, query,
		cp.ID, cp.GraphID, cp.ThreadID, cp.Metadata.Step, data, string(meta), cp.Timestamp.UnixNano(), cp.Version)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Load retrieves a checkpoint by ID
func (s *CheckpointSaver) Load(ctx context.Context, id string) (*checkpoint.Checkpoint, error) {
	if id == "" {
		return nil, checkpoint.ErrInvalidCheckpointID
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, columns, s.tableName)
	cp, err := s.scan(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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

	rows, err := s.db.QueryContext(ctx, query, args...)
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

	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.tableName)
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return checkpoint.ErrCheckpointNotFound
	}
	return nil
}

// CreateTables creates the checkpoint table and its indexes
func (s *CheckpointSaver) CreateTables(ctx context.Context) error {
	t := s.tableName
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id TEXT PRIMARY KEY,
			graph_id TEXT NOT NULL,
			thread_id TEXT NOT NULL,
			step INTEGER NOT NULL DEFAULT 0,
			state BLOB NOT NULL,
			metadata TEXT,
			timestamp INTEGER NOT NULL,
			version TEXT NOT NULL DEFAULT '1.0'
		);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_thread_id ON %[1]s (thread_id, step);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_timestamp ON %[1]s (timestamp);
	`, t)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *CheckpointSaver) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const columns = "id, graph_id, thread_id, state, metadata, timestamp, version"

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *CheckpointSaver) scan(row rowScanner) (*checkpoint.Checkpoint, error) {
	var (
		cp   checkpoint.Checkpoint
		data []byte
		meta sql.NullString
		ts   int64
	)
	if err := row.Scan(&cp.ID, &cp.GraphID, &cp.ThreadID, &data, &meta, &ts, &cp.Version); err != nil {
		return nil, err
	}
	cp.Timestamp = time.Unix(0, ts)

	if err := s.serializer.Deserialize(data, &cp.State); err != nil {
		return nil, fmt.Errorf("failed to deserialize checkpoint state: %w", err)
	}
	if cp.State == nil {
		cp.State = make(map[string]interface{})
	}
	if meta.Valid && meta.String != "" {
		if err := json.Unmarshal([]byte(meta.String), &cp.Metadata); err != nil {
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

	if filter.GraphID != "" {
		b.WriteString(" AND graph_id = ?")
		args = append(args, filter.GraphID)
	}
	if filter.ThreadID != "" {
		b.WriteString(" AND thread_id = ?")
		args = append(args, filter.ThreadID)
	}
	if filter.Since != nil {
		b.WriteString(" AND timestamp > ?")
		args = append(args, filter.Since.UnixNano())
	}
	if filter.Before != nil {
		b.WriteString(" AND timestamp < ?")
		args = append(args, filter.Before.UnixNano())
	}

	b.WriteString(" ORDER BY timestamp DESC, step DESC")

	// SQLite needs a LIMIT before OFFSET; -1 means unbounded.
	if filter.Limit > 0 || filter.Offset > 0 {
		limit := filter.Limit
		if limit == 0 {
			limit = -1
		}
		b.WriteString(" LIMIT ?")
		args = append(args, limit)
	}
	if filter.Offset > 0 {
		b.WriteString(" OFFSET ?")
		args = append(args, filter.Offset)
	}
	return b.String(), args
}
