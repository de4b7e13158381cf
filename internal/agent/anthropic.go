package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/matsen/scout/internal/tools"
)

// DefaultAnthropicMaxTokens bounds each agent turn.
const DefaultAnthropicMaxTokens = 1024

// AnthropicModel drives the agent with Claude tool_use blocks.
type AnthropicModel struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicModel returns a chat model for the named Claude model. The API
// key comes from opts or ANTHROPIC_API_KEY.
func NewAnthropicModel(model string, opts ...option.RequestOption) *AnthropicModel {
	return &AnthropicModel{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: DefaultAnthropicMaxTokens,
	}
}

// Generate implements ChatModel.
func (m *AnthropicModel) Generate(ctx context.Context, msgs []Message, defs []tools.Definition) (Message, error) {
	system, conv := anthropicMessages(msgs)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.model),
		MaxTokens: m.maxTokens,
		Messages:  conv,
	}
	if len(system) > 0 {
		params.System = system
	}
	if len(defs) > 0 {
		toolParams, err := anthropicTools(defs)
		if err != nil {
			return Message{}, err
		}
		params.Tools = toolParams
	}

	resp, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return Message{}, fmt.Errorf("anthropic chat: %w", err)
	}

	out := Message{Role: RoleAssistant}
	var text strings.Builder
	for _, block := range resp.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(v.Text)
		case anthropic.ToolUseBlock:
			out.ToolCalls = append(out.ToolCalls, NewToolCall(v.ID, v.Name, v.Input))
		}
	}
	out.Content = text.String()
	return out, nil
}

// anthropicMessages splits out system prompts and groups consecutive tool
// results into the single user turn that must follow a tool_use turn.
func anthropicMessages(msgs []Message) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var system []anthropic.TextBlockParam
	var conv []anthropic.MessageParam
	var pendingResults []anthropic.ContentBlockParamUnion

	flush := func() {
		if len(pendingResults) > 0 {
			conv = append(conv, anthropic.NewUserMessage(pendingResults...))
			pendingResults = nil
		}
	}

	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
		case RoleTool:
			pendingResults = append(pendingResults, anthropic.NewToolResultBlock(m.ToolCallID, m.Content, m.IsError))
		case RoleUser:
			flush()
			conv = append(conv, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case RoleAssistant:
			flush()
			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, c := range m.ToolCalls {
				blocks = append(blocks, anthropic.ContentBlockParamUnion{OfToolUse: &anthropic.ToolUseBlockParam{
					ID:    c.ID,
					Name:  c.Name,
					Input: c.arguments(),
				}})
			}
			if len(blocks) > 0 {
				conv = append(conv, anthropic.NewAssistantMessage(blocks...))
			}
		}
	}
	flush()
	return system, conv
}

func anthropicTools(defs []tools.Definition) ([]anthropic.ToolUnionParam, error) {
	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, d := range defs {
		schema, err := d.SchemaMap()
		if err != nil {
			return nil, err
		}
		input := anthropic.ToolInputSchemaParam{Properties: schema["properties"]}
		if req, ok := schema["required"].([]any); ok {
			for _, r := range req {
				if s, ok := r.(string); ok {
					input.Required = append(input.Required, s)
				}
			}
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        d.Name,
			Description: anthropic.String(d.Description),
			InputSchema: input,
		}})
	}
	return out, nil
}
