package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultAPIURL is the public LangChain hub API
const DefaultAPIURL = "https://api.hub.langchain.com"

var (
	ErrInvalidRef       = errors.New("prompt reference must look like owner/name[:commit]")
	ErrPromptNotFound   = errors.New("prompt not found")
	ErrUnsupportedShape = errors.New("unsupported prompt manifest")
)

// Config configures the registry client
type Config struct {
	APIURL  string
	APIKey  string // optional for public prompts
	Timeout time.Duration
}

// Client pulls prompts over HTTP
type Client struct {
	apiURL string
	apiKey string
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a registry client
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		apiURL: strings.TrimRight(cfg.APIURL, "/"),
		apiKey: cfg.APIKey,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Ref is a parsed prompt reference
type Ref struct {
	Owner  string
	Name   string
	Commit string // empty means latest
}

// ParseRef parses "owner/name" or "owner/name:commit".
func ParseRef(s string) (Ref, error) {
	var r Ref
	path := s
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		path, r.Commit = s[:i], s[i+1:]
		if r.Commit == "" {
			return Ref{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
		}
	}
	owner, name, ok := strings.Cut(path, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
	}
	r.Owner, r.Name = owner, name
	return r, nil
}

func (r Ref) String() string {
	if r.Commit == "" {
		return r.Owner + "/" + r.Name
	}
	return r.Owner + "/" + r.Name + ":" + r.Commit
}

type commitResponse struct {
	Manifest   json.RawMessage `json:"manifest"`
	CommitHash string          `json:"commit_hash"`
}

// Pull fetches and decodes the chat prompt named by ref
func (c *Client) Pull(ctx context.Context, ref string) (*ChatPrompt, error) {
	r, err := ParseRef(ref)
	if err != nil {
		return nil, err
	}
	commit := r.Commit
	if commit == "" {
		commit = "latest"
	}
	url := fmt.Sprintf("%s/commits/%s/%s/%s", c.apiURL, r.Owner, r.Name, commit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pull %s: %w", r, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("pull %s: failed to read response: %w", r, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrPromptNotFound, r)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("pull %s: registry returned status %d: %s", r, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var cr commitResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, fmt.Errorf("pull %s: failed to parse response: %w", r, err)
	}
	prompt, err := DecodeManifest(cr.Manifest)
	if err != nil {
		return nil, fmt.Errorf("pull %s: %w", r, err)
	}
	prompt.Name = r.Owner + "/" + r.Name
	prompt.Commit = cr.CommitHash
	c.logger.Debug("pulled prompt", "ref", r.String(), "commit", cr.CommitHash, "messages", len(prompt.Messages))
	return prompt, nil
}
