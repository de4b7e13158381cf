package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

func TestEmbedding_Dimensions(t *testing.T) {
	tests := []struct {
		name     string
		vector   []float32
		expected int
	}{
		{"1536 dimensions", make([]float32, 1536), 1536},
		{"empty vector", []float32{}, 0},
		{"small vector", []float32{1.0, 2.0, 3.0}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emb := Embedding{Vector: tt.vector}
			if got := emb.Dimensions(); got != tt.expected {
				t.Errorf("Dimensions() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		settings  Settings
		wantModel string
		wantDims  int
		wantErr   bool
	}{
		{"default is openai", Settings{}, DefaultOpenAIModel, DefaultOpenAIDimensions, false},
		{"openai custom model", Settings{Provider: "OpenAI", Model: "text-embedding-3-large", Dimensions: 3072}, "text-embedding-3-large", 3072, false},
		{"ollama", Settings{Provider: "ollama"}, DefaultOllamaModel, DefaultOllamaDimensions, false},
		{"ollama custom", Settings{Provider: " ollama ", Model: "all-minilm", Dimensions: 384}, "all-minilm", 384, false},
		{"openai known model without dimensions", Settings{Model: "text-embedding-3-large"}, "text-embedding-3-large", 3072, false},
		{"openai unknown model without dimensions", Settings{Model: "my-embedder"}, "my-embedder", 0, false},
		{"ollama known model without dimensions", Settings{Provider: "ollama", Model: "mxbai-embed-large:latest"}, "mxbai-embed-large:latest", 1024, false},
		{"ollama unknown model without dimensions", Settings{Provider: "ollama", Model: "bge-m3"}, "bge-m3", 0, false},
		{"unknown", Settings{Provider: "cohere"}, "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.settings)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedProvider) {
					t.Fatalf("New() error = %v, want ErrUnsupportedProvider", err)
				}
				if err.Error() != "unsupported embedding provider: cohere" {
					t.Errorf("New() error message = %q", err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if p.ModelName() != tt.wantModel || p.Dimensions() != tt.wantDims {
				t.Errorf("New() = %s/%d, want %s/%d", p.ModelName(), p.Dimensions(), tt.wantModel, tt.wantDims)
			}
		})
	}
}

// openAIEmbeddingServer answers /embeddings with vectors whose first element
// is the input's position, returned in reverse order to exercise index mapping.
func openAIEmbeddingServer(t *testing.T, dims int, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			http.NotFound(w, r)
			return
		}
		calls.Add(1)

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		type item struct {
			Object    string    `json:"object"`
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		}
		data := make([]item, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			vec := make([]float64, dims)
			vec[0] = float64(len(req.Input[i]))
			data = append(data, item{Object: "embedding", Index: i, Embedding: vec})
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIProvider_EmbedBatch(t *testing.T) {
	var calls atomic.Int32
	srv := openAIEmbeddingServer(t, 4, &calls)
	p := NewOpenAIProvider(WithOpenAIBaseURL(srv.URL), WithOpenAIKey("test"), WithOpenAIModel("test-model", 4))

	texts := make([]string, MaxOpenAIBatch+5)
	for i := range texts {
		texts[i] = strings.Repeat("a", i%7+1)
	}

	out, err := p.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if len(out) != len(texts) {
		t.Fatalf("EmbedBatch() returned %d embeddings, want %d", len(out), len(texts))
	}
	for i, emb := range out {
		if want := float32(len(texts[i])); emb.Vector[0] != want {
			t.Errorf("out[%d][0] = %v, want %v", i, emb.Vector[0], want)
		}
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("requests = %d, want 2 batches", got)
	}
}

func TestOpenAIProvider_Embed(t *testing.T) {
	var calls atomic.Int32
	srv := openAIEmbeddingServer(t, 4, &calls)

	p := NewOpenAIProvider(WithOpenAIBaseURL(srv.URL), WithOpenAIKey("test"), WithOpenAIModel("test-model", 4))
	emb, err := p.Embed(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if emb.Dimensions() != 4 || emb.Vector[0] != 3 {
		t.Errorf("Embed() = %v", emb.Vector)
	}

	wrongDims := NewOpenAIProvider(WithOpenAIBaseURL(srv.URL), WithOpenAIKey("test"), WithOpenAIModel("test-model", 8))
	if _, err := wrongDims.Embed(context.Background(), "abc"); err == nil {
		t.Error("Embed() expected dimension mismatch error")
	}
}

func TestNew_CustomModelWithoutDimensions(t *testing.T) {
	var calls atomic.Int32
	srv := openAIEmbeddingServer(t, 3072, &calls)

	p, err := New(Settings{Model: "text-embedding-3-large", BaseURL: srv.URL, APIKey: "test"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	emb, err := p.Embed(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if emb.Dimensions() != 3072 || p.Dimensions() != 3072 {
		t.Errorf("dimensions = %d/%d, want 3072", emb.Dimensions(), p.Dimensions())
	}
}

func TestOpenAIProvider_LearnsDimensions(t *testing.T) {
	var calls atomic.Int32
	small := openAIEmbeddingServer(t, 5, &calls)
	large := openAIEmbeddingServer(t, 7, &calls)

	p := NewOpenAIProvider(WithOpenAIBaseURL(small.URL), WithOpenAIKey("test"), WithOpenAIModel("my-embedder", 0))
	if p.Dimensions() != 0 {
		t.Fatalf("Dimensions() before first call = %d, want 0", p.Dimensions())
	}
	if _, err := p.EmbedBatch(context.Background(), []string{"a", "b"}); err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if p.Dimensions() != 5 {
		t.Errorf("Dimensions() = %d, want 5 learned from the response", p.Dimensions())
	}

	// Once learned, the size is enforced.
	p.client = openai.NewClient(option.WithBaseURL(large.URL), option.WithAPIKey("test"))
	if _, err := p.Embed(context.Background(), "a"); err == nil ||
		!strings.Contains(err.Error(), "got 7, want 5") {
		t.Errorf("Embed() error = %v, want dimension mismatch", err)
	}
}

func TestModelDimensions(t *testing.T) {
	tests := []struct {
		model      string
		configured int
		want       int
	}{
		{"text-embedding-3-small", 0, 1536},
		{"text-embedding-3-large", 0, 3072},
		{"text-embedding-3-large", 256, 256},
		{"nomic-embed-text:latest", 0, 768},
		{"unknown", 0, 0},
	}
	for _, tt := range tests {
		if got := ModelDimensions(tt.model, tt.configured); got != tt.want {
			t.Errorf("ModelDimensions(%q, %d) = %d, want %d", tt.model, tt.configured, got, tt.want)
		}
	}
}

func TestOpenAIProvider_RequestsShortenedVectors(t *testing.T) {
	var sent map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&sent)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   []map[string]any{{"object": "embedding", "index": 0, "embedding": make([]float64, 256)}},
			"model":  "text-embedding-3-large",
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)

	p := NewOpenAIProvider(WithOpenAIBaseURL(srv.URL), WithOpenAIKey("test"), WithOpenAIModel("text-embedding-3-large", 256))
	if _, err := p.Embed(context.Background(), "abc"); err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if sent["dimensions"] != float64(256) {
		t.Errorf("request dimensions = %v, want 256", sent["dimensions"])
	}
}
