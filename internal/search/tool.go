package search

import (
	"context"
	"encoding/json"
	"fmt"
)

// Tool exposes a Searcher to a tool-calling agent. Its output is the JSON
// list of results, the same shape the agent prompt expects to read.
type Tool struct {
	searcher   Searcher
	maxResults int
}

// NewTool creates the agent search tool
func NewTool(s Searcher, maxResults int) *Tool {
	return &Tool{searcher: s, maxResults: maxResults}
}

func (t *Tool) Name() string { return "tavily_search_results_json" }

func (t *Tool) Description() string {
	return "A search engine optimized for comprehensive, accurate, and trusted results. " +
		"Useful for when you need to answer questions about current events. Input should be a search query."
}

func (t *Tool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "search query to look up",
			},
		},
		"required": []string{"query"},
	}
}

type toolArgs struct {
	Query string `json:"query"`
}

type toolResult struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Call runs the search described by the JSON arguments
func (t *Tool) Call(ctx context.Context, arguments string) (string, error) {
	var args toolArgs
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", fmt.Errorf("invalid search arguments: %w", err)
	}
	resp, err := t.searcher.Search(ctx, args.Query, t.maxResults)
	if err != nil {
		return "", err
	}
	out := make([]toolResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, toolResult{URL: r.URL, Content: r.Content})
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to encode results: %w", err)
	}
	return string(data), nil
}
