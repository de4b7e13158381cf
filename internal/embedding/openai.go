package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const (
	// DefaultOpenAIModel is the default OpenAI embedding model.
	DefaultOpenAIModel = "text-embedding-3-small"

	// DefaultOpenAIDimensions is the output size of text-embedding-3-small.
	DefaultOpenAIDimensions = 1536

	// MaxOpenAIBatch caps the inputs sent in one embeddings request.
	MaxOpenAIBatch = 100
)

// OpenAIProvider generates embeddings with the OpenAI embeddings API.
// The API key is read from OPENAI_API_KEY unless set explicitly.
type OpenAIProvider struct {
	model   string
	dims    dimensions
	shorten int // requested output size, text-embedding-3 models only
	reqOpts    []option.RequestOption
	client     openai.Client
}

// OpenAIOption configures an OpenAIProvider.
type OpenAIOption func(*OpenAIProvider)

// WithOpenAIModel sets the model and its output dimensions. With dims <= 0
// the size comes from ModelDimensions, or from the first response for
// unknown models.
func WithOpenAIModel(model string, dims int) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.model = model
		p.dims.set(ModelDimensions(model, dims))
		p.shorten = 0
		if dims > 0 && strings.HasPrefix(model, "text-embedding-3") {
			p.shorten = dims
		}
	}
}

// WithOpenAIBaseURL points the client at a compatible endpoint (or a test server).
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.reqOpts = append(p.reqOpts, option.WithBaseURL(url))
	}
}

// WithOpenAIKey sets the API key.
func WithOpenAIKey(key string) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.reqOpts = append(p.reqOpts, option.WithAPIKey(key))
	}
}

// WithOpenAIHTTPClient sets a custom HTTP client.
func WithOpenAIHTTPClient(hc *http.Client) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.reqOpts = append(p.reqOpts, option.WithHTTPClient(hc))
	}
}

// NewOpenAIProvider creates a new OpenAI embedding provider.
func NewOpenAIProvider(opts ...OpenAIOption) *OpenAIProvider {
	p := &OpenAIProvider{model: DefaultOpenAIModel}
	p.dims.set(DefaultOpenAIDimensions)
	for _, opt := range opts {
		opt(p)
	}
	p.client = openai.NewClient(p.reqOpts...)
	return p
}

// Embed generates an embedding for the given text.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	out, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return Embedding{}, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts in requests of at most MaxOpenAIBatch inputs.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	out := make([]Embedding, len(texts))
	for start := 0; start < len(texts); start += MaxOpenAIBatch {
		end := min(start+MaxOpenAIBatch, len(texts))
		if err := p.embedRange(ctx, texts[start:end], out[start:end]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (p *OpenAIProvider) embedRange(ctx context.Context, texts []string, out []Embedding) error {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(p.model),
	}
	if p.shorten > 0 {
		params.Dimensions = openai.Int(int64(p.shorten))
	}
	resp, err := p.client.Embeddings.New(ctx, params)
	if err != nil {
		return fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return fmt.Errorf("openai embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(out) {
			return fmt.Errorf("openai embeddings: index %d out of range", d.Index)
		}
		if err := p.dims.check(len(d.Embedding)); err != nil {
			return err
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		out[d.Index] = Embedding{Vector: vec}
	}
	return nil
}

// ModelName returns the name of the embedding model.
func (p *OpenAIProvider) ModelName() string {
	return p.model
}

// Dimensions returns the expected vector dimensions, 0 while still unknown.
func (p *OpenAIProvider) Dimensions() int {
	return p.dims.get()
}
