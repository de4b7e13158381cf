package agent

import (
	"context"
	"fmt"

	"github.com/matsen/scout/internal/tools"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
)

// OpenAIModel drives the agent with OpenAI function calling.
type OpenAIModel struct {
	client openai.Client
	model  string
}

// NewOpenAIModel returns a chat model for the named OpenAI model. API key and
// base URL come from opts or the OPENAI_API_KEY / OPENAI_BASE_URL environment.
func NewOpenAIModel(model string, opts ...option.RequestOption) *OpenAIModel {
	return &OpenAIModel{client: openai.NewClient(opts...), model: model}
}

// Generate implements ChatModel.
func (m *OpenAIModel) Generate(ctx context.Context, msgs []Message, defs []tools.Definition) (Message, error) {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(m.model),
		Messages: openAIMessages(msgs),
	}
	if len(defs) > 0 {
		toolParams, err := openAITools(defs)
		if err != nil {
			return Message{}, err
		}
		params.Tools = toolParams
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Message{}, fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Message{}, fmt.Errorf("openai chat: no choices returned")
	}

	choice := resp.Choices[0].Message
	out := AssistantMessage(choice.Content)
	for _, tc := range choice.ToolCalls {
		if tc.Function.Name == "" {
			continue
		}
		out.ToolCalls = append(out.ToolCalls, NewToolCall(tc.ID, tc.Function.Name, []byte(tc.Function.Arguments)))
	}
	return out, nil
}

func openAIMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case RoleTool:
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		case RoleAssistant:
			asst := openai.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				asst.Content.OfString = openai.String(m.Content)
			}
			for _, c := range m.ToolCalls {
				asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: c.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      c.Name,
							Arguments: string(c.arguments()),
						},
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &asst})
		}
	}
	return out
}

func openAITools(defs []tools.Definition) ([]openai.ChatCompletionToolUnionParam, error) {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(defs))
	for _, d := range defs {
		schema, err := d.SchemaMap()
		if err != nil {
			return nil, err
		}
		out = append(out, openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        d.Name,
			Description: openai.String(d.Description),
			Parameters:  shared.FunctionParameters(schema),
		}))
	}
	return out, nil
}
