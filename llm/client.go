package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ByLCY/inkpost/logx"
)

// Completer sends one system + user message pair and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Options configures a Client.
type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	Timeout     time.Duration

	// Used when APIKey is empty: an OpenAI-compatible server running locally.
	LocalBaseURL string
	LocalModel   string
}

// Client talks to an OpenAI-compatible chat completion endpoint.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
}

var _ Completer = (*Client)(nil)

// NewClient builds a client. Without an API key the local endpoint is used.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	model := opts.Model
	cfg := openai.DefaultConfig(opts.APIKey)
	switch {
	case opts.APIKey == "":
		cfg.BaseURL = opts.LocalBaseURL
		if opts.LocalModel != "" {
			model = opts.LocalModel
		}
		logx.L().Info("no OpenAI API key, using local model", "base_url", cfg.BaseURL, "model", model)
	case opts.BaseURL != "":
		cfg.BaseURL = opts.BaseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &Client{
		api:         openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: opts.Temperature,
	}
}

// Model returns the model name requests are sent with.
func (c *Client) Model() string { return c.model }

// Complete implements Completer.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("chat completion failed with status %d: %w", apiErr.HTTPStatusCode, err)
		}
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
