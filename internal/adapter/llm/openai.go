// Package llm implements the text-generation backend contract over
// OpenAI-compatible chat-completion APIs. Setting a custom base URL points
// the same client at local model servers (llama.cpp, vLLM, Ollama) that
// speak the OpenAI wire format.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = "You are an assistant that writes one-sentence summaries " +
	"of geopolitical events for map tooltips. Be concise and neutral; never " +
	"speculate beyond the fields you are given."

// Backend implements domain.Generator.
type Backend struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewBackend creates a chat-completion backend. baseURL may be empty for the
// OpenAI default endpoint.
func NewBackend(apiKey, baseURL, model string, timeout time.Duration) *Backend {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Backend{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: timeout,
	}
}

// Generate sends one prompt and returns the model's text.
func (b *Backend) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   120,
		N:           1,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("backend returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
