package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// recordingServer answers every request with body and records the last request body.
func recordingServer(t *testing.T, body string, got *map[string]any, path *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		if got != nil {
			*got = map[string]any{}
			_ = json.Unmarshal(data, got)
		}
		if path != nil {
			*path = r.URL.Path
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_UnsupportedProvider(t *testing.T) {
	_, err := New(context.Background(), "Mystery", Settings{})
	if err == nil {
		t.Fatal("New() expected error for unknown provider")
	}
	if !errors.Is(err, ErrUnsupportedProvider) {
		t.Errorf("error = %v, want ErrUnsupportedProvider", err)
	}
	if err.Error() != "unsupported LLM provider: Mystery" {
		t.Errorf("error text = %q", err.Error())
	}
}

func TestNew_DefaultModels(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{"openai", DefaultOpenAIModel},
		{" OpenAI ", DefaultOpenAIModel},
		{"anthropic", DefaultAnthropicModel},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			c, err := New(context.Background(), tt.provider, Settings{APIKey: "test"})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if c.Model() != tt.want {
				t.Errorf("Model() = %q, want %q", c.Model(), tt.want)
			}
		})
	}
}

func TestOpenAIComplete(t *testing.T) {
	var req map[string]any
	var path string
	srv := recordingServer(t, `{
		"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-3.5-turbo",
		"choices": [{"index": 0, "finish_reason": "stop",
			"message": {"role": "assistant", "content": "  A short summary.  "}}]
	}`, &req, &path)

	c, err := New(context.Background(), "openai", Settings{APIKey: "test", BaseURL: srv.URL + "/v1/"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.Complete(context.Background(), Request{System: "Summarize this academic paper:", Prompt: "paper text"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "A short summary." {
		t.Errorf("Complete() = %q, want trimmed text", got)
	}
	if !strings.HasSuffix(path, "/chat/completions") {
		t.Errorf("path = %q", path)
	}

	msgs, _ := req["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("sent %d messages, want 2", len(msgs))
	}
	first := msgs[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "Summarize this academic paper:" {
		t.Errorf("system message = %v", first)
	}
	if req["model"] != DefaultOpenAIModel {
		t.Errorf("model = %v", req["model"])
	}
}

func TestAnthropicComplete(t *testing.T) {
	var req map[string]any
	srv := recordingServer(t, `{
		"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-3-haiku-20240307",
		"content": [{"type": "text", "text": "\n Summary text \n"}],
		"stop_reason": "end_turn", "usage": {"input_tokens": 3, "output_tokens": 2}
	}`, &req, nil)

	c, err := New(context.Background(), "ANTHROPIC", Settings{APIKey: "test", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.Complete(context.Background(), Request{Prompt: "Summarize this paper:\ntext"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "Summary text" {
		t.Errorf("Complete() = %q", got)
	}
	if req["max_tokens"] != float64(DefaultMaxTokens) {
		t.Errorf("max_tokens = %v, want %d", req["max_tokens"], DefaultMaxTokens)
	}
	if _, ok := req["system"]; ok {
		t.Error("system should be omitted when empty")
	}
}

func TestGoogleComplete(t *testing.T) {
	var path string
	srv := recordingServer(t, `{
		"candidates": [{"content": {"role": "model", "parts": [{"text": " Gemini summary "}]}}]
	}`, nil, &path)

	c, err := New(context.Background(), "google", Settings{APIKey: "test", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	got, err := c.Complete(context.Background(), Request{Prompt: "Summarize this academic paper:\n\ntext"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "Gemini summary" {
		t.Errorf("Complete() = %q", got)
	}
	if !strings.Contains(path, "gemini-pro:generateContent") {
		t.Errorf("path = %q", path)
	}
}

func TestCompleteHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error": {"message": "bad request", "type": "invalid_request_error"}}`)
	}))
	defer srv.Close()

	c, err := New(context.Background(), "openai", Settings{APIKey: "test", BaseURL: srv.URL + "/v1/"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Complete(context.Background(), Request{Prompt: "x"}); err == nil {
		t.Error("Complete() expected error on 400")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		text string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"héllo", 2, "hé"},
		{"日本語テキスト", 3, "日本語"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		if got := Truncate(tt.text, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.text, tt.n, got, tt.want)
		}
	}
}
