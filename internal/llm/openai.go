package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
)

// OpenAICompleter completes prompts with the OpenAI chat completions API.
type OpenAICompleter struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

func newOpenAI(s Settings) *OpenAICompleter {
	return &OpenAICompleter{
		client:  openai.NewClient(ClientOptions(s)...),
		model:   s.Model,
		timeout: s.Timeout,
	}
}

// ClientOptions converts settings into openai-go request options.
func ClientOptions(s Settings) []option.RequestOption {
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

// Provider returns "openai".
func (c *OpenAICompleter) Provider() string { return ProviderOpenAI }

// Model returns the chat model name.
func (c *OpenAICompleter) Model() string { return c.model }

// Complete sends the system prompt (if any) and the user prompt.
func (c *OpenAICompleter) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
