package llm

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/flowgraph/csagent/internal/infrastructure/metrics"
)

// OpenAIConfig configures an OpenAI-compatible chat endpoint
type OpenAIConfig struct {
	APIKey         string
	Model          string
	BaseURL        string // empty selects api.openai.com; set for Ollama and friends
	Temperature    float64
	RequestTimeout time.Duration
}

// OpenAI implements Model on the chat completions API
type OpenAI struct {
	client         *openai.Client
	model          string
	temperature    float32
	requestTimeout time.Duration
	logger         *slog.Logger
}

// NewOpenAI creates a chat model client
func NewOpenAI(cfg OpenAIConfig, logger *slog.Logger) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	conf := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		conf.BaseURL = cfg.BaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAI{
		client:         openai.NewClientWithConfig(conf),
		model:          cfg.Model,
		temperature:    temperature(cfg.Temperature),
		requestTimeout: cfg.RequestTimeout,
		logger:         logger,
	}, nil
}

// temperature maps 0 to the smallest positive float32: the request field is
// omitempty and a literal 0 would fall back to the server default of 1.
func temperature(t float64) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

// Generate creates a chat completion and returns the first choice
func (c *OpenAI) Generate(ctx context.Context, req Request) (Message, error) {
	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	creq := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toOpenAIMessages(req.Messages),
		Temperature: c.temperature,
	}
	for _, t := range req.Tools {
		creq.Tools = append(creq.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	if req.ToolChoice != "" {
		creq.ToolChoice = openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: req.ToolChoice},
		}
	}

	start := time.Now()
	metrics.IncLLMCalls()
	resp, err := c.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		metrics.IncLLMErrors()
		return Message{}, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		metrics.IncLLMErrors()
		return Message{}, ErrEmptyResponse
	}

	choice := resp.Choices[0]
	c.logger.Debug("chat completion",
		"model", c.model,
		"messages", len(req.Messages),
		"tools", len(req.Tools),
		"finish_reason", choice.FinishReason,
		"total_tokens", resp.Usage.TotalTokens,
		"duration", time.Since(start),
	)
	return fromOpenAIMessage(choice.Message), nil
}

func toOpenAIMessages(msgs []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		om := openai.ChatCompletionMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		if m.Role == RoleTool {
			om.Name = m.Name
		}
		for _, tc := range m.ToolCalls {
			om.ToolCalls = append(om.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, om)
	}
	return out
}

func fromOpenAIMessage(m openai.ChatCompletionMessage) Message {
	out := Message{Role: RoleAssistant, Content: m.Content}
	for _, tc := range m.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out
}
