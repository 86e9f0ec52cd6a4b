package main

import (
	"context"
	"fmt"

	"github.com/flowgraph/csagent/internal/adapters/repository/memory"
	"github.com/flowgraph/csagent/internal/adapters/repository/postgres"
	"github.com/flowgraph/csagent/internal/adapters/repository/sqlite"
	"github.com/flowgraph/csagent/internal/config"
	"github.com/flowgraph/csagent/internal/core/checkpoint"
	"github.com/flowgraph/csagent/pkg/serialization"
)

type closingSaver interface {
	checkpoint.Saver
	Close() error
}

// openSaver returns the checkpoint backend named in cfg.
func openSaver(ctx context.Context, cfg config.CheckpointConfig) (closingSaver, error) {
	ser, err := serialization.New(cfg.Codec, cfg.Compression, []byte(cfg.EncryptionKey))
	if err != nil {
		return nil, fmt.Errorf("invalid checkpoint serializer: %w", err)
	}
	switch cfg.Backend {
	case "memory":
		return memory.NewInMemorySaver(ser), nil
	case "sqlite", "":
		return sqlite.Open(ctx, cfg.DSN, ser)
	case "postgres":
		return postgres.Open(ctx, cfg.DSN, ser)
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q", cfg.Backend)
	}
}
