package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph/csagent/internal/support"
)

// runCLI executes the root command with args and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err != nil {
		t.Logf("stderr: %s", stderr.String())
	}
	return stdout.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "csagent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// chatServer answers chat completions. Forced tool calls get a Queries
// call; other requests get reply(system prompt).
func chatServer(t *testing.T, reply func(system string) string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
			ToolChoice interface{} `json:"tool_choice"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")

		if req.ToolChoice != nil {
			_, _ = w.Write([]byte(`{"choices": [{"index": 0, "finish_reason": "stop", "message": {
				"role": "assistant", "content": "",
				"tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "Queries", "arguments": "{\"queries\":[\"iphone 16 refund policy\"]}"}}]
			}}]}`))
			return
		}
		content, _ := json.Marshal(reply(req.Messages[0].Content))
		_, _ = fmt.Fprintf(w, `{"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": %s}}]}`, content)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func searchServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		_, _ = w.Write([]byte(`{"query": "q", "results": [
			{"title": "Returns", "url": "https://apple.test/returns", "content": "14 day returns"},
			{"title": "Refunds", "url": "https://apple.test/refunds", "content": "refund to original payment"}
		]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVersionCommand(t *testing.T) {
	tests := []struct {
		name      string
		version   string
		commit    string
		buildTime string
		want      string
	}{
		{
			name:      "dev defaults",
			version:   "dev",
			commit:    "unknown",
			buildTime: "unknown",
			want:      "csagent dev (commit: unknown, built: unknown)\n",
		},
		{
			name:      "release",
			version:   "v1.0.0",
			commit:    "abc123",
			buildTime: "2024-01-01",
			want:      "csagent v1.0.0 (commit: abc123, built: 2024-01-01)\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			origVersion, origCommit, origBuildTime := Version, Commit, BuildTime
			defer func() { Version, Commit, BuildTime = origVersion, origCommit, origBuildTime }()
			Version, Commit, BuildTime = tt.version, tt.commit, tt.buildTime

			out, err := runCLI(t, "version")
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestGraphCommand(t *testing.T) {
	out, err := runCLI(t, "graph")
	require.NoError(t, err)
	assert.Equal(t, "react\nsupport\n", out)

	out, err = runCLI(t, "graph", "support")
	require.NoError(t, err)
	var g struct {
		ID         string                     `json:"id"`
		EntryPoint string                     `json:"entry_point"`
		Nodes      map[string]json.RawMessage `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &g))
	assert.Equal(t, support.GraphID, g.ID)
	assert.Equal(t, support.NodePlanner, g.EntryPoint)
	assert.Len(t, g.Nodes, 5)

	_, err = runCLI(t, "graph", "nope")
	assert.Error(t, err)
}

func TestSupportCommand(t *testing.T) {
	chat := chatServer(t, func(system string) string {
		switch {
		case system == support.ManagerPrompt:
			return "PLAN"
		case system == support.QualityPrompt:
			return "CRITIQUE"
		default:
			return "DRAFT"
		}
	})
	search := searchServer(t)
	metricsFile := filepath.Join(t.TempDir(), "metrics.prom")
	cfg := writeConfig(t, fmt.Sprintf(`
openai:
  api_key: sk-test
  base_url: %s/v1
search:
  api_key: tvly-test
  base_url: %s
app:
  log_level: error
`, chat.URL, search.URL))

	out, err := runCLI(t, "--config", cfg, "--metrics-out", metricsFile, "support")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 7)
	var nodes []string
	for _, line := range lines[:6] {
		var step map[string]map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &step), line)
		for node := range step {
			nodes = append(nodes, node)
		}
	}
	assert.Equal(t, []string{
		support.NodePlanner, support.NodeResearchPlan, support.NodeGenerate,
		support.NodeReflect, support.NodeResearchCritique, support.NodeGenerate,
	}, nodes)
	assert.Contains(t, lines[1], "14 day returns")
	assert.Equal(t, "Final state: DRAFT", lines[6])

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "csagent_revisions_total")
	assert.Contains(t, string(prom), `csagent_node_executions_total{node="generate"}`)
}

func TestSupportCommand_MaxRevisionsFlag(t *testing.T) {
	chat := chatServer(t, func(string) string { return "x" })
	search := searchServer(t)
	cfg := writeConfig(t, fmt.Sprintf(`
openai: {api_key: sk-test, base_url: %s/v1}
search: {api_key: tvly-test, base_url: %s}
checkpoint: {backend: memory}
app: {log_level: error}
`, chat.URL, search.URL))

	out, err := runCLI(t, "--config", cfg, "support", "--max-revisions", "1", "--task", "where is my order")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, `{"generate"`))
}

func TestSupportCommand_InvalidConfig(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg := writeConfig(t, "search: {api_key: tvly-test}\napp: {log_level: error}\n")

	_, err := runCLI(t, "--config", cfg, "support")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai.api_key")
}

func TestReactCommand(t *testing.T) {
	chat := chatServer(t, func(system string) string {
		assert.Equal(t, "You are a helpful assistant.", system)
		return "Oracle Database is a multi-model database management system."
	})
	search := searchServer(t)
	registry := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/commits/wfh/react-agent-executor/latest", r.URL.Path)
		_, _ = w.Write([]byte(`{"commit_hash": "c0ffee", "manifest": {
			"lc": 1, "type": "constructor", "id": ["langchain", "prompts", "chat", "ChatPromptTemplate"],
			"kwargs": {"input_variables": ["messages"], "messages": [
				{"lc": 1, "type": "constructor", "id": ["langchain", "prompts", "chat", "SystemMessagePromptTemplate"],
				 "kwargs": {"prompt": {"lc": 1, "type": "constructor", "id": ["langchain", "prompts", "prompt", "PromptTemplate"],
					"kwargs": {"input_variables": [], "template": "You are a helpful assistant.", "template_format": "f-string"}}}},
				{"lc": 1, "type": "constructor", "id": ["langchain_core", "prompts", "chat", "MessagesPlaceholder"],
				 "kwargs": {"variable_name": "messages"}}
			]}
		}}`))
	}))
	t.Cleanup(registry.Close)

	cfg := writeConfig(t, fmt.Sprintf(`
react:
  base_url: %s/v1
search:
  api_key: tvly-test
  base_url: %s
hub:
  api_url: %s
checkpoint:
  backend: memory
app:
  log_level: error
`, chat.URL, search.URL, registry.URL))

	out, err := runCLI(t, "--config", cfg, "react")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, strings.Repeat("=", 32)+" System Message "))
	assert.True(t, strings.HasSuffix(out,
		"{messages}\nWhat is Oracle database\nOracle Database is a multi-model database management system.\n"), out)
}
