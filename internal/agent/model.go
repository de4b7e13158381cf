package agent

import (
	"context"

	"github.com/matsen/scout/internal/tools"
)

// ChatModel produces the next assistant message for a conversation, optionally
// requesting tool calls from defs.
type ChatModel interface {
	Generate(ctx context.Context, msgs []Message, defs []tools.Definition) (Message, error)
}

// ChatModelFunc adapts a function to ChatModel.
type ChatModelFunc func(ctx context.Context, msgs []Message, defs []tools.Definition) (Message, error)

// Generate calls f.
func (f ChatModelFunc) Generate(ctx context.Context, msgs []Message, defs []tools.Definition) (Message, error) {
	return f(ctx, msgs, defs)
}
