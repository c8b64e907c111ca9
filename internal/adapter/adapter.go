// Package adapter provides a unified interface for LLM providers.
package adapter

import (
	"context"
	"fmt"
)

// Provider name constants.
const (
	ProviderClaude = "claude"
	ProviderOpenAI = "openai"
)

// ChatMessage is one role-tagged message of the prompt context.
type ChatMessage struct {
	Role    string
	Content string
}

// StreamChunk is a single fragment or error delivered during a completion.
// Replace marks a full-message echo: the text replaces everything received
// so far instead of being appended.
type StreamChunk struct {
	Text    string
	Replace bool
	Error   error
}

// CompletionRequest holds the parameters for a completion call. Messages is
// the ordered conversation window; SystemPrompt is sent through the
// provider's system channel.
type CompletionRequest struct {
	SystemPrompt string
	Messages     []ChatMessage
	Model        string
	MaxTokens    int
	Temperature  float64
	Stream       bool
}

// ModelInfo describes the capabilities of a model.
type ModelInfo struct {
	Name              string
	Provider          string
	MaxContextWindow  int
	SupportsStreaming bool
}

// LLMAdapter is the common interface all provider adapters implement.
type LLMAdapter interface {
	// Complete sends a prompt and delivers the response through the returned
	// channel, as one chunk when Stream is false or incrementally when true.
	// The channel is closed when the generation ends.
	Complete(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error)

	// Info returns metadata about the adapter/model.
	Info() ModelInfo
}

// New constructs the LLMAdapter for the named provider.
//
//   - provider: "claude" or "openai"
//   - model: provider model name (empty = adapter default)
//   - apiKey: provider API key (empty = read from env in the concrete adapter)
func New(provider, model, apiKey string) (LLMAdapter, error) {
	switch provider {
	case ProviderClaude:
		return NewClaude(model, apiKey), nil
	case ProviderOpenAI:
		return NewOpenAI(model, apiKey), nil
	default:
		return nil, fmt.Errorf("adapter: unknown provider %q; valid providers: claude, openai", provider)
	}
}
