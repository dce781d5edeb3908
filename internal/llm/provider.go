package llm

import (
	"context"
	"fmt"

	"github.com/kayz/inkwright/internal/config"
)

// Request is a provider-agnostic completion request.
type Request struct {
	Prompt      string
	System      string
	Model       string
	MaxTokens   int
	Temperature float32
}

// Chunk is one element of a completion stream: incremental text, a terminal
// Done marker, or a terminal error. After Done or Err the channel is closed.
type Chunk struct {
	Text string
	Done bool
	Err  error
}

// Provider is the completion stream boundary. Implementations deliver an
// ordered sequence of chunks terminated by exactly one Done or Err chunk.
type Provider interface {
	Name() string
	Stream(ctx context.Context, req Request) (<-chan Chunk, error)
}

// New selects a provider from config. "anthropic" uses the Anthropic API;
// every other name is treated as an OpenAI-compatible endpoint.
func New(cfg config.AIConfig) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key configured for provider %q", cfg.Provider)
	}
	switch cfg.Provider {
	case "anthropic":
		return newAnthropicProvider(cfg), nil
	default:
		return newOpenAIProvider(cfg), nil
	}
}
