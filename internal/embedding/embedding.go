// Package embedding turns text into vectors for similarity search.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// Embedding represents a vector embedding of text.
type Embedding struct {
	Vector []float32
}

// Dimensions returns the dimensionality of the embedding.
func (e Embedding) Dimensions() int {
	return len(e.Vector)
}

// Provider generates embeddings from text.
type Provider interface {
	// Embed generates an embedding for the given text.
	Embed(ctx context.Context, text string) (Embedding, error)

	// EmbedBatch generates embeddings for texts, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error)

	// ModelName returns the name of the embedding model.
	ModelName() string

	// Dimensions returns the expected vector dimensions.
	Dimensions() int
}

// knownDimensions lists output sizes of common embedding models.
var knownDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
	"nomic-embed-text":       768,
	"all-minilm":             384,
	"all-minilm:l6-v2":       384,
	"mxbai-embed-large":      1024,
}

// ModelDimensions returns configured when positive, else the known size of
// model, else 0 meaning "take the size of the first response".
func ModelDimensions(model string, configured int) int {
	if configured > 0 {
		return configured
	}
	return knownDimensions[strings.TrimSuffix(model, ":latest")]
}

// dimensions is the expected vector size of a provider. Zero is learned
// from the first vector seen.
type dimensions struct {
	mu sync.Mutex
	n  int
}

func (d *dimensions) get() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.n
}

func (d *dimensions) set(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.n = n
}

// check records got when no size is known yet, else compares against it.
func (d *dimensions) check(got int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.n == 0 {
		d.n = got
		return nil
	}
	if got != d.n {
		return fmt.Errorf("unexpected embedding dimensions: got %d, want %d", got, d.n)
	}
	return nil
}

// ErrUnsupportedProvider is returned by New for unknown provider names.
var ErrUnsupportedProvider = errors.New("unsupported embedding provider")

// Settings selects and configures a provider.
type Settings struct {
	Provider   string // openai (default) or ollama
	Model      string
	BaseURL    string
	APIKey     string
	Dimensions int
	HTTPClient *http.Client
}

// New returns the provider named in s.Provider.
func New(s Settings) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s.Provider)) {
	case "", "openai":
		var opts []OpenAIOption
		if s.Model != "" {
			opts = append(opts, WithOpenAIModel(s.Model, s.Dimensions))
		}
		if s.BaseURL != "" {
			opts = append(opts, WithOpenAIBaseURL(s.BaseURL))
		}
		if s.APIKey != "" {
			opts = append(opts, WithOpenAIKey(s.APIKey))
		}
		if s.HTTPClient != nil {
			opts = append(opts, WithOpenAIHTTPClient(s.HTTPClient))
		}
		return NewOpenAIProvider(opts...), nil
	case "ollama":
		var opts []OllamaOption
		if s.Model != "" {
			opts = append(opts, WithModel(s.Model))
		}
		if s.Dimensions > 0 {
			opts = append(opts, WithDimensions(s.Dimensions))
		}
		if s.BaseURL != "" {
			opts = append(opts, WithBaseURL(s.BaseURL))
		}
		return NewOllamaProvider(opts...), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, s.Provider)
	}
}
