// Package openai implements llm.Client on any OpenAI-compatible chat
// completion endpoint via a configurable base URL.
package openai

import (
	"context"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/Vandarkun/datasets/llm"
)

// Config configures the OpenAI-compatible client.
type Config struct {
	APIKey string

	// BaseURL points at the serving endpoint. Empty means api.openai.com.
	BaseURL string

	// Model is the model identifier, e.g. "deepseek-chat".
	Model string

	MaxTokens int
}

// Client calls an OpenAI-compatible chat completion API.
type Client struct {
	client *goopenai.Client
	cfg    Config
}

// New creates an OpenAI-compatible completion client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("APIKey is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("Model is required")
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 8192
	}
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		client: goopenai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
	}, nil
}

// Complete sends one chat completion request. When the request wants JSON,
// the response format is pinned to a JSON object.
func (c *Client) Complete(ctx context.Context, req *llm.Request) (string, error) {
	messages := make([]goopenai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		role := goopenai.ChatMessageRoleUser
		if m.Role == "assistant" {
			role = goopenai.ChatMessageRoleAssistant
		}
		messages = append(messages, goopenai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	chatReq := goopenai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		MaxTokens:   c.cfg.MaxTokens,
	}
	if req.WantJSON {
		chatReq.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai completion: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}
