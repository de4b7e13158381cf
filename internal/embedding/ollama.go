package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultOllamaURL        = "http://localhost:11434"
	DefaultOllamaModel      = "nomic-embed-text"
	DefaultOllamaDimensions = 768 // nomic-embed-text

	// DefaultTimeout bounds one embedding request, which may carry a whole batch.
	DefaultTimeout = 60 * time.Second

	ollamaTagsPath  = "/api/tags"
	ollamaEmbedPath = "/api/embed"
)

// OllamaProvider embeds text with a local Ollama server, so indexing works
// without an OpenAI key.
type OllamaProvider struct {
	baseURL string
	model   string
	dims    dimensions
	client  *http.Client
}

// OllamaOption configures an OllamaProvider.
type OllamaOption func(*OllamaProvider)

func WithBaseURL(url string) OllamaOption {
	return func(p *OllamaProvider) { p.baseURL = strings.TrimRight(url, "/") }
}

// WithModel sets the model. Its size comes from ModelDimensions, or from the
// first response for unknown models.
func WithModel(model string) OllamaOption {
	return func(p *OllamaProvider) {
		p.model = model
		p.dims.set(ModelDimensions(model, 0))
	}
}

// WithDimensions sets the expected vector size. Zero takes the size of the
// first response.
func WithDimensions(dims int) OllamaOption {
	return func(p *OllamaProvider) { p.dims.set(dims) }
}

func WithTimeout(timeout time.Duration) OllamaOption {
	return func(p *OllamaProvider) { p.client.Timeout = timeout }
}

// NewOllamaProvider returns a provider for DefaultOllamaModel at DefaultOllamaURL
// unless options say otherwise.
func NewOllamaProvider(opts ...OllamaOption) *OllamaProvider {
	p := &OllamaProvider{
		baseURL: DefaultOllamaURL,
		model:   DefaultOllamaModel,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	p.dims.set(DefaultOllamaDimensions)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *OllamaProvider) ModelName() string { return p.model }

func (p *OllamaProvider) Dimensions() int { return p.dims.get() }

// Embed embeds a single text.
func (p *OllamaProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	out, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return Embedding{}, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts in one /api/embed request. Results keep input order.
func (p *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var res ollamaEmbedResponse
	err := p.call(ctx, http.MethodPost, ollamaEmbedPath, ollamaEmbedRequest{Model: p.model, Input: texts}, &res)
	if err != nil {
		return nil, err
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d inputs", len(res.Embeddings), len(texts))
	}

	out := make([]Embedding, len(texts))
	for i, vec := range res.Embeddings {
		if len(vec) == 0 {
			return nil, fmt.Errorf("input %d: empty embedding from model %s", i, p.model)
		}
		if err := p.dims.check(len(vec)); err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		out[i] = Embedding{Vector: vec}
	}
	return out, nil
}

// IsAvailable reports an error unless the Ollama server answers.
func (p *OllamaProvider) IsAvailable(ctx context.Context) error {
	if err := p.call(ctx, http.MethodGet, ollamaTagsPath, nil, nil); err != nil {
		return fmt.Errorf("ollama is not running: %w", err)
	}
	return nil
}

// HasModel reports whether the configured model has been pulled.
func (p *OllamaProvider) HasModel(ctx context.Context) (bool, error) {
	var tags ollamaTagsResponse
	if err := p.call(ctx, http.MethodGet, ollamaTagsPath, nil, &tags); err != nil {
		return false, fmt.Errorf("checking models: %w", err)
	}
	for _, m := range tags.Models {
		// untagged names are listed with an implicit ":latest"
		if m.Name == p.model || m.Name == p.model+":latest" {
			return true, nil
		}
	}
	return false, nil
}

// call sends in as JSON (when non-nil) and decodes the reply into out (when non-nil).
func (p *OllamaProvider) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, errorBody(resp.Body))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// errorBody returns the trimmed response text for error messages.
func errorBody(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return fmt.Sprintf("(failed to read response body: %v)", err)
	}
	return strings.TrimSpace(string(data))
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}
