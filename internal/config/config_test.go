package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph/csagent/pkg/validation"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "gpt-3.5-turbo", cfg.OpenAI.Model)
	assert.Equal(t, 0.0, cfg.OpenAI.Temperature)
	assert.Equal(t, 2, cfg.Search.MaxResults)
	assert.Equal(t, "what is the refund policy of the product apple 16 phone", cfg.Support.Task)
	assert.Equal(t, 2, cfg.Support.MaxRevisions)
	assert.Equal(t, "1", cfg.Support.ThreadID)
	assert.Equal(t, "ollama", cfg.React.APIKey)
	assert.Equal(t, "mistral", cfg.React.Model)
	assert.Equal(t, "http://localhost:11434/v1", cfg.React.BaseURL)
	assert.Equal(t, "wfh/react-agent-executor", cfg.React.Prompt)
	assert.Equal(t, "What is Oracle database", cfg.React.Question)
	assert.Equal(t, 1, cfg.React.SearchMaxResults)
	assert.Equal(t, "sqlite", cfg.Checkpoint.Backend)
	assert.Equal(t, ":memory:", cfg.Checkpoint.DSN)
	assert.Equal(t, 60*time.Second, cfg.App.RequestTimeout)
	assert.Equal(t, 0, cfg.App.NodeRetries)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("TAVILY_API_KEY", "tvly-test")
	t.Setenv("SUPPORT_MAX_REVISIONS", "4")
	t.Setenv("APP_REQUEST_TIMEOUT", "5s")

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, "tvly-test", cfg.Search.APIKey)
	assert.Equal(t, 4, cfg.Support.MaxRevisions)
	assert.Equal(t, 5*time.Second, cfg.App.RequestTimeout)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "csagent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
support:
  task: where is my order
  max_revisions: 1
checkpoint:
  backend: memory
`), 0o600))

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, "where is my order", cfg.Support.Task)
	assert.Equal(t, 1, cfg.Support.MaxRevisions)
	assert.Equal(t, "memory", cfg.Checkpoint.Backend)
	assert.Equal(t, "1", cfg.Support.ThreadID)

	_, err = Load(New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		support string // failing field, empty when valid
		react   string
	}{
		{
			name:   "defaults with keys",
			mutate: func(*Config) {},
		},
		{
			name:    "missing openai key only affects support",
			mutate:  func(c *Config) { c.OpenAI.APIKey = "" },
			support: "openai.api_key",
		},
		{
			name:    "missing search key affects both",
			mutate:  func(c *Config) { c.Search.APIKey = "" },
			support: "search.api_key",
			react:   "search.api_key",
		},
		{
			name:   "bad prompt reference",
			mutate: func(c *Config) { c.React.Prompt = "react-agent-executor" },
			react:  "react.prompt",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Checkpoint.Backend = "redis" },
			support: "checkpoint.backend",
			react:   "checkpoint.backend",
		},
		{
			name:    "negative revisions",
			mutate:  func(c *Config) { c.Support.MaxRevisions = -1 },
			support: "support.max_revisions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(New(), "")
			require.NoError(t, err)
			cfg.OpenAI.APIKey = "sk-test"
			cfg.Search.APIKey = "tvly-test"
			tt.mutate(cfg)

			check := func(err error, field string) {
				if field == "" {
					assert.NoError(t, err)
					return
				}
				var verrs validation.ValidationErrors
				require.ErrorAs(t, err, &verrs)
				require.Len(t, verrs, 1)
				assert.Equal(t, field, verrs[0].Field)
			}
			check(cfg.ValidateSupport(), tt.support)
			check(cfg.ValidateReact(), tt.react)
		})
	}
}
