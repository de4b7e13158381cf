package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewOllamaProvider_Defaults(t *testing.T) {
	provider := NewOllamaProvider()

	if provider.baseURL != DefaultOllamaURL {
		t.Errorf("baseURL = %s, want %s", provider.baseURL, DefaultOllamaURL)
	}
	if provider.ModelName() != DefaultOllamaModel {
		t.Errorf("ModelName() = %s, want %s", provider.ModelName(), DefaultOllamaModel)
	}
	if provider.Dimensions() != DefaultOllamaDimensions {
		t.Errorf("Dimensions() = %d, want %d", provider.Dimensions(), DefaultOllamaDimensions)
	}
	if provider.client.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", provider.client.Timeout, DefaultTimeout)
	}
}

func TestNewOllamaProvider_WithOptions(t *testing.T) {
	provider := NewOllamaProvider(
		WithBaseURL("http://custom:8080"),
		WithModel("all-minilm:l6-v2"),
		WithDimensions(384),
		WithTimeout(5*time.Second),
	)

	if provider.baseURL != "http://custom:8080" {
		t.Errorf("baseURL = %s", provider.baseURL)
	}
	if provider.model != "all-minilm:l6-v2" {
		t.Errorf("model = %s", provider.model)
	}
	if provider.Dimensions() != 384 {
		t.Errorf("dimensions = %d", provider.Dimensions())
	}
	if provider.client.Timeout != 5*time.Second {
		t.Errorf("timeout = %v", provider.client.Timeout)
	}
}

func newOllamaServer(t *testing.T, dims int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.Write([]byte(`{"models":[{"name":"nomic-embed-text:latest"},{"name":"llama3:8b"}]}`))
		case "/api/embed":
			var req ollamaEmbedRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "bad request", http.StatusBadRequest)
				return
			}
			var res ollamaEmbedResponse
			for _, in := range req.Input {
				if in == "fail" {
					http.Error(w, "model exploded", http.StatusInternalServerError)
					return
				}
				vec := make([]float32, dims)
				vec[0] = float32(len(in))
				res.Embeddings = append(res.Embeddings, vec)
			}
			json.NewEncoder(w).Encode(res)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaProvider_Embed(t *testing.T) {
	srv := newOllamaServer(t, 8)
	p := NewOllamaProvider(WithBaseURL(srv.URL), WithDimensions(8))

	emb, err := p.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if emb.Dimensions() != 8 || emb.Vector[0] != 5 {
		t.Errorf("Embed() = %v", emb.Vector)
	}

	_, err = p.Embed(context.Background(), "fail")
	if err == nil || !strings.Contains(err.Error(), "model exploded") {
		t.Errorf("Embed(fail) error = %v, want server body in message", err)
	}
}

func TestOllamaProvider_DimensionMismatch(t *testing.T) {
	srv := newOllamaServer(t, 4)

	strict := NewOllamaProvider(WithBaseURL(srv.URL), WithDimensions(8))
	if _, err := strict.Embed(context.Background(), "x"); err == nil {
		t.Error("Embed() expected dimension error")
	}

	loose := NewOllamaProvider(WithBaseURL(srv.URL), WithDimensions(0))
	emb, err := loose.Embed(context.Background(), "x")
	if err != nil {
		t.Fatalf("Embed() with any dimensions error = %v", err)
	}
	if emb.Dimensions() != 4 {
		t.Errorf("Dimensions() = %d, want 4", emb.Dimensions())
	}
}

func TestOllamaProvider_EmbedBatch(t *testing.T) {
	srv := newOllamaServer(t, 3)
	p := NewOllamaProvider(WithBaseURL(srv.URL), WithDimensions(3))

	out, err := p.EmbedBatch(context.Background(), []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	for i, want := range []float32{1, 2, 3} {
		if out[i].Vector[0] != want {
			t.Errorf("out[%d][0] = %v, want %v", i, out[i].Vector[0], want)
		}
	}

	if _, err := p.EmbedBatch(context.Background(), []string{"ok", "fail"}); err == nil ||
		!strings.Contains(err.Error(), "model exploded") {
		t.Errorf("EmbedBatch() error = %v, want server body in message", err)
	}

	empty, err := p.EmbedBatch(context.Background(), nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("EmbedBatch(nil) = %v, %v", empty, err)
	}
}

func TestOllamaProvider_Availability(t *testing.T) {
	srv := newOllamaServer(t, 3)
	ctx := context.Background()

	p := NewOllamaProvider(WithBaseURL(srv.URL))
	if err := p.IsAvailable(ctx); err != nil {
		t.Errorf("IsAvailable() error = %v", err)
	}
	has, err := p.HasModel(ctx)
	if err != nil || !has {
		t.Errorf("HasModel() = %v, %v; want true (implicit :latest)", has, err)
	}

	missing := NewOllamaProvider(WithBaseURL(srv.URL), WithModel("mxbai-embed-large"))
	if has, _ := missing.HasModel(ctx); has {
		t.Error("HasModel() = true for absent model")
	}

	down := NewOllamaProvider(WithBaseURL("http://127.0.0.1:1"), WithTimeout(time.Second))
	if err := down.IsAvailable(ctx); err == nil {
		t.Error("IsAvailable() expected error for unreachable server")
	}
}

func TestErrorBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"simple", "model not found\n", "model not found"},
		{"json", `{"error": "bad"}`, `{"error": "bad"}`},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorBody(strings.NewReader(tt.body)); got != tt.want {
				t.Errorf("errorBody() = %q, want %q", got, tt.want)
			}
		})
	}
}
