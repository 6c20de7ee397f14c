// Package llm wraps the external chat-completion service used to generate
// assistant replies.
package llm

import (
	"context"
	"errors"
	"fmt"
	"math"

	openai "github.com/sashabaranov/go-openai"
)

// ErrUnavailable is returned by Generate when the client was constructed
// without credentials. No network call is attempted in that state.
var ErrUnavailable = errors.New("generation service unavailable")

// Client calls the chat-completion API with fixed decoding parameters.
// Temperature and MaxTokens come from configuration, never per request.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// Options configures a Client. An empty APIKey produces a disabled client.
type Options struct {
	APIKey  string
	BaseURL string // optional; used by tests to point at a fake server
	Model   string
	// Temperature of exactly 0 is sent as the smallest representable
	// nonzero value so the API treats it as deterministic decoding rather
	// than an unset field.
	Temperature float32
	MaxTokens   int
}

// New builds a Client. When no API key is available the client is permanently
// disabled rather than erroring on every call.
func New(opts Options) *Client {
	temperature := opts.Temperature
	if temperature == 0 {
		// The SDK's request struct tags Temperature omitempty, so a plain
		// zero would be dropped and the API would fall back to its default
		// of 1. The smallest nonzero float is the SDK's way to say
		// "explicitly zero".
		temperature = math.SmallestNonzeroFloat32
	}
	c := &Client{
		model:       opts.Model,
		temperature: temperature,
		maxTokens:   opts.MaxTokens,
	}
	if opts.APIKey == "" {
		return c
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	c.api = openai.NewClientWithConfig(cfg)
	return c
}

// Disabled returns a Client that always reports ErrUnavailable.
func Disabled() *Client {
	return &Client{}
}

// Enabled reports whether the client holds usable credentials.
func (c *Client) Enabled() bool {
	return c != nil && c.api != nil
}

// Generate sends a system + user message pair and returns the top
// completion's text. Errors are returned as-is; mapping them to user-facing
// sentinel strings is the orchestrator's job. No retry is attempted.
func (c *Client) Generate(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	if !c.Enabled() {
		return "", ErrUnavailable
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: response contained no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
