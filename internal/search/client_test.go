package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	_, err := NewClient(Config{}, nil)
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	c, err := NewClient(Config{APIKey: "k", BaseURL: "http://example.test/"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://example.test", c.baseURL)
}

func TestClient_Search(t *testing.T) {
	var got searchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer tvly-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{
			"query": "iphone 16 refund",
			"results": [
				{"title": "Returns", "url": "https://apple.test/returns", "content": "14 day returns", "score": 0.9},
				{"title": "Refunds", "url": "https://apple.test/refunds", "content": "refund to original payment", "score": 0.8},
				{"title": "Extra", "url": "https://apple.test/extra", "content": "ignored", "score": 0.1}
			]
		}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{APIKey: "tvly-test", BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	resp, err := c.Search(context.Background(), "iphone 16 refund", 2)
	require.NoError(t, err)
	assert.Equal(t, "iphone 16 refund", got.Query)
	assert.Equal(t, 2, got.MaxResults)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "14 day returns", resp.Results[0].Content)
	assert.Equal(t, "refund to original payment", resp.Results[1].Content)
}

func TestClient_SearchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail": {"error": "Unauthorized: missing or invalid API key."}}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{APIKey: "bad", BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	_, err = c.Search(context.Background(), "q", 2)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "invalid API key")

	_, err = c.Search(context.Background(), "  ", 2)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

type fakeSearcher struct {
	queries []string
	limit   int
}

func (f *fakeSearcher) Search(_ context.Context, query string, maxResults int) (*Response, error) {
	f.queries = append(f.queries, query)
	f.limit = maxResults
	return &Response{Results: []Result{{URL: "https://oracle.test", Content: "Oracle Database is an RDBMS", Title: "t"}}}, nil
}

func TestTool_Call(t *testing.T) {
	s := &fakeSearcher{}
	tool := NewTool(s, 1)

	assert.Equal(t, "tavily_search_results_json", tool.Name())
	assert.Equal(t, []string{"query"}, tool.Parameters()["required"])

	out, err := tool.Call(context.Background(), `{"query":"What is Oracle database"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"url":"https://oracle.test","content":"Oracle Database is an RDBMS"}]`, out)
	assert.Equal(t, []string{"What is Oracle database"}, s.queries)
	assert.Equal(t, 1, s.limit)

	_, err = tool.Call(context.Background(), `not json`)
	assert.Error(t, err)
}
