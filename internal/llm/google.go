package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GoogleCompleter completes prompts with the Gemini API.
type GoogleCompleter struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func newGoogle(ctx context.Context, s Settings) (*GoogleCompleter, error) {
	cfg := &genai.ClientConfig{
		APIKey:     s.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: s.HTTPClient,
	}
	if s.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: s.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating google client: %w", err)
	}
	return &GoogleCompleter{client: client, model: s.Model, timeout: s.Timeout}, nil
}

// Provider returns "google".
func (c *GoogleCompleter) Provider() string { return ProviderGoogle }

// Model returns the model name.
func (c *GoogleCompleter) Model() string { return c.model }

// Complete sends the prompt with the system text as a system instruction.
func (c *GoogleCompleter) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	var config *genai.GenerateContentConfig
	if req.System != "" || req.MaxTokens > 0 {
		config = &genai.GenerateContentConfig{}
		if req.System != "" {
			config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
		}
		if req.MaxTokens > 0 {
			config.MaxOutputTokens = int32(req.MaxTokens)
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), config)
	if err != nil {
		return "", fmt.Errorf("google completion: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
