// Package llm provides a unified interface for LLM providers
// (OpenAI, Ollama) with model routing and fallback. TrendLens uses
// completions for keyword expansion and page-content extraction.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Provider names for routing and configuration.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Common errors returned by LLM providers.
var (
	ErrNoAPIKey        = errors.New("llm: API key not configured")
	ErrRateLimit       = errors.New("llm: rate limit exceeded")
	ErrContextLength   = errors.New("llm: context length exceeded")
	ErrProviderDown    = errors.New("llm: provider unavailable")
	ErrInvalidModel    = errors.New("llm: invalid model")
	ErrEmptyCompletion = errors.New("llm: empty completion")
	ErrNoProviders     = errors.New("llm: no providers configured")
)

// Request describes a single completion request. System may be empty.
type Request struct {
	System      string  `json:"system,omitempty"`
	Prompt      string  `json:"prompt"`
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// Completion is the provider's answer to a Request.
type Completion struct {
	Content  string        `json:"content"`
	Model    string        `json:"model"`
	Provider string        `json:"provider"`
	Usage    Usage         `json:"usage"`
	Latency  time.Duration `json:"latency"`
}

// Usage tracks token consumption for a request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Provider is the interface all LLM backends must implement.
type Provider interface {
	// Name returns the provider identifier (e.g., "openai", "ollama").
	Name() string

	// Complete sends a prompt and returns the full completion.
	Complete(ctx context.Context, req Request) (*Completion, error)

	// Ping checks if the provider is reachable and the API key is valid.
	Ping(ctx context.Context) error
}

// String returns a human-readable summary of the completion.
func (c *Completion) String() string {
	truncated := c.Content
	if len(truncated) > 100 {
		truncated = truncated[:100] + "..."
	}
	return fmt.Sprintf("[%s/%s] %q, %d tokens, %v",
		c.Provider, c.Model, truncated, c.Usage.TotalTokens, c.Latency.Round(time.Millisecond))
}
