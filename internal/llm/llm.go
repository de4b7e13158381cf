// Package llm dispatches single-turn completions to a language model provider.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Provider names accepted by New.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
)

// Default models per provider.
const (
	DefaultOpenAIModel    = "gpt-3.5-turbo"
	DefaultAnthropicModel = "claude-3-haiku-20240307"
	DefaultGoogleModel    = "gemini-pro"

	// DefaultMaxTokens bounds completions for providers that require a limit.
	DefaultMaxTokens = 512

	// DefaultTimeout bounds a single completion call.
	DefaultTimeout = 2 * time.Minute
)

// ErrUnsupportedProvider is returned by New for unknown provider names.
var ErrUnsupportedProvider = errors.New("unsupported LLM provider")

// ErrEmptyResponse is returned when a provider answers without text.
var ErrEmptyResponse = errors.New("empty response from model")

// Request is a single-turn completion request.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Completer produces a text completion for a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	Provider() string
	Model() string
}

// Settings configure a provider client. Empty fields fall back to the
// provider SDK defaults, which read API keys from the environment.
type Settings struct {
	Model      string
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New returns a Completer for the named provider. The name is case-insensitive.
func New(ctx context.Context, provider string, s Settings) (Completer, error) {
	name := strings.ToLower(strings.TrimSpace(provider))
	if s.Model == "" {
		s.Model = DefaultModel(name)
	}
	if s.Timeout <= 0 {
		s.Timeout = DefaultTimeout
	}

	switch name {
	case ProviderOpenAI:
		return newOpenAI(s), nil
	case ProviderAnthropic:
		return newAnthropic(s), nil
	case ProviderGoogle:
		return newGoogle(ctx, s)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}
}

// DefaultModel returns the default model for a provider, or "" if unknown.
func DefaultModel(provider string) string {
	switch strings.ToLower(provider) {
	case ProviderOpenAI:
		return DefaultOpenAIModel
	case ProviderAnthropic:
		return DefaultAnthropicModel
	case ProviderGoogle:
		return DefaultGoogleModel
	}
	return ""
}

// Truncate returns at most n characters of text, never splitting a character.
func Truncate(text string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range text {
		if count == n {
			return text[:i]
		}
		count++
	}
	return text
}

// withTimeout applies the completer's call timeout unless ctx already has an earlier deadline.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < d {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
