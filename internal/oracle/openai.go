package oracle

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/veilhq/veil/internal/config"
	"github.com/veilhq/veil/internal/logger"
)

// OpenAIClient talks to any endpoint implementing the OpenAI
// chat-completions API (Groq, OpenAI, local gateways). Each call is
// bounded by the configured timeout and retried once before the error
// is surfaced.
type OpenAIClient struct {
	client *openai.Client
	config config.OracleConfig
	logger *logger.Logger
}

// NewOpenAIClient creates an oracle client from configuration.
func NewOpenAIClient(cfg config.OracleConfig, log *logger.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("oracle API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	log.Info("Oracle client initialized",
		zap.String("base_url", clientConfig.BaseURL),
		zap.String("model", cfg.Model),
		zap.Duration("timeout", cfg.Timeout))

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
		logger: log,
	}, nil
}

// Complete sends a completion request and returns the raw message
// content. A transient failure is retried once; a second failure or an
// empty completion is reported as ErrUnavailable.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	var lastErr error

	for attempt := 0; attempt < 2; attempt++ {
		content, err := c.complete(ctx, req)
		if err == nil {
			return content, nil
		}
		lastErr = err

		// Context cancellation is not retryable.
		if ctx.Err() != nil {
			break
		}

		c.logger.Warn("Oracle call failed",
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	return "", fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (c *OpenAIClient) complete(ctx context.Context, req Request) (string, error) {
	timeout := c.config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.config.MaxTokens
	}

	apiReq := openai.ChatCompletionRequest{
		Model: c.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   maxTokens,
	}
	if req.JSONMode {
		apiReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, apiReq)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty completion")
	}

	return content, nil
}
