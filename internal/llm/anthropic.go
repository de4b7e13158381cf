package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicCompleter completes prompts with the Anthropic messages API.
type AnthropicCompleter struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
}

func newAnthropic(s Settings) *AnthropicCompleter {
	return &AnthropicCompleter{
		client:  anthropic.NewClient(AnthropicOptions(s)...),
		model:   s.Model,
		timeout: s.Timeout,
	}
}

// AnthropicOptions converts settings into anthropic-sdk-go request options.
func AnthropicOptions(s Settings) []option.RequestOption {
	var opts []option.RequestOption
	if s.APIKey != "" {
		opts = append(opts, option.WithAPIKey(s.APIKey))
	}
	if s.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(s.BaseURL))
	}
	if s.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(s.HTTPClient))
	}
	return opts
}

// Provider returns "anthropic".
func (c *AnthropicCompleter) Provider() string { return ProviderAnthropic }

// Model returns the model name.
func (c *AnthropicCompleter) Model() string { return c.model }

// Complete sends a single user message and joins the text blocks of the reply.
func (c *AnthropicCompleter) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic completion: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(sb.String()), nil
}
