// Package llm provides the transport to the generative-AI provider:
// OpenAI-compatible and Anthropic clients behind one interface, classified
// errors, and tolerant JSON extraction from model replies.
package llm

import "context"

// GenerateResult is a completed generation with usage stats.
type GenerateResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Client is the provider transport interface.
// Use this interface for dependency injection to enable mocking in tests.
type Client interface {
	// GenerateResponse produces a completion for the prompt. Implementations
	// request JSON output where the provider supports constraining it.
	GenerateResponse(ctx context.Context, prompt, systemMessage string, temperature float64) (*GenerateResult, error)

	// Model returns the configured model name.
	Model() string

	// Endpoint returns the configured endpoint.
	Endpoint() string
}
