package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/matsen/scout/internal/logging"
	"github.com/matsen/scout/internal/tools"
	"go.uber.org/zap"
)

// Node names. End terminates a run.
const (
	NodeAgent = "agent"
	NodeTools = "tools"
	End       = "__end__"
)

// DefaultMaxSteps is the number of node executions allowed per invocation.
const DefaultMaxSteps = 25

// ToolNotFound is the result text for calls to unregistered tools.
const ToolNotFound = "tool not found"

// ErrStepLimit is returned when a run needs more than MaxSteps node executions.
var ErrStepLimit = errors.New("agent step limit reached")

// Checkpointer persists the message list of a thread between invocations.
type Checkpointer interface {
	Load(ctx context.Context, threadID string) ([]Message, error)
	Save(ctx context.Context, threadID string, msgs []Message) error
}

// StepFunc observes each node execution and the messages it appended.
type StepFunc func(node string, added []Message)

// Graph wires the agent and tools nodes: START → agent, agent → (tools | END)
// by Route, tools → agent.
type Graph struct {
	model        ChatModel
	registry     *tools.Registry
	checkpointer Checkpointer
	maxSteps     int
	onStep       StepFunc
	log          *zap.Logger
}

// Option configures a Graph.
type Option func(*Graph)

// WithCheckpointer persists thread state between invocations.
func WithCheckpointer(c Checkpointer) Option {
	return func(g *Graph) { g.checkpointer = c }
}

// WithMaxSteps sets the node execution limit. Non-positive values keep the default.
func WithMaxSteps(n int) Option {
	return func(g *Graph) {
		if n > 0 {
			g.maxSteps = n
		}
	}
}

// WithStepFunc registers an observer called after every node.
func WithStepFunc(f StepFunc) Option {
	return func(g *Graph) { g.onStep = f }
}

// WithLogger sets the logger. Defaults to logging.Named("agent").
func WithLogger(l *zap.Logger) Option {
	return func(g *Graph) { g.log = l }
}

// NewGraph builds a graph around model with the tools in registry.
func NewGraph(model ChatModel, registry *tools.Registry, opts ...Option) *Graph {
	g := &Graph{
		model:    model,
		registry: registry,
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.log == nil {
		g.log = logging.Named("agent")
	}
	return g
}

// MaxSteps returns the configured step limit.
func (g *Graph) MaxSteps() int { return g.maxSteps }

// Checkpointer returns the configured checkpointer, or nil.
func (g *Graph) Checkpointer() Checkpointer { return g.checkpointer }

// Route picks the node after agent: tools when the last message requests tool calls, else End.
func Route(msgs []Message) string {
	if len(msgs) == 0 {
		return End
	}
	if msgs[len(msgs)-1].HasToolCalls() {
		return NodeTools
	}
	return End
}

// Invoke appends input to the thread's stored messages, runs the graph and
// saves the resulting message list. Without a checkpointer every call starts
// from an empty history. The returned slice is the full thread.
func (g *Graph) Invoke(ctx context.Context, threadID string, input ...Message) ([]Message, error) {
	var msgs []Message
	if g.checkpointer != nil {
		stored, err := g.checkpointer.Load(ctx, threadID)
		if err != nil {
			return nil, fmt.Errorf("loading thread %s: %w", threadID, err)
		}
		msgs = stored
	}
	msgs = append(msgs, input...)

	msgs, runErr := g.Run(ctx, msgs)
	if runErr != nil {
		msgs = closePendingCalls(msgs, runErr)
	}

	if g.checkpointer != nil {
		if err := g.checkpointer.Save(ctx, threadID, msgs); err != nil {
			if runErr != nil {
				return msgs, runErr
			}
			return msgs, fmt.Errorf("saving thread %s: %w", threadID, err)
		}
	}
	return msgs, runErr
}

// Run executes the graph from START on msgs until End or the step limit.
// The returned slice contains msgs plus everything the nodes appended, even on error.
func (g *Graph) Run(ctx context.Context, msgs []Message) ([]Message, error) {
	node := NodeAgent
	for step := 0; node != End; step++ {
		if step >= g.maxSteps {
			g.log.Warn("step limit reached", zap.Int("max_steps", g.maxSteps))
			return msgs, fmt.Errorf("%w (%d)", ErrStepLimit, g.maxSteps)
		}
		if err := ctx.Err(); err != nil {
			return msgs, err
		}

		before := len(msgs)
		switch node {
		case NodeAgent:
			reply, err := g.callModel(ctx, msgs)
			if err != nil {
				return msgs, err
			}
			msgs = append(msgs, reply)
			g.notify(node, msgs[before:])
			node = Route(msgs)
		case NodeTools:
			msgs = append(msgs, g.runTools(ctx, msgs[len(msgs)-1].ToolCalls)...)
			g.notify(node, msgs[before:])
			node = NodeAgent
		default:
			return msgs, fmt.Errorf("unknown node %q", node)
		}
	}
	return msgs, nil
}

func (g *Graph) callModel(ctx context.Context, msgs []Message) (Message, error) {
	start := time.Now()
	reply, err := g.model.Generate(ctx, msgs, g.registry.Definitions())
	if err != nil {
		g.log.Error("model call failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return Message{}, err
	}
	reply.Role = RoleAssistant
	for i, c := range reply.ToolCalls {
		if c.Invalid == "" && len(c.Arguments) > 0 && !json.Valid(c.Arguments) {
			reply.ToolCalls[i] = NewToolCall(c.ID, c.Name, c.Arguments)
		}
	}
	g.log.Info("model replied",
		zap.Int("tool_calls", len(reply.ToolCalls)),
		zap.Int("content_size", len(reply.Content)),
		zap.Duration("duration", time.Since(start)))
	return reply, nil
}

// runTools executes every call in order and returns one tool message per call.
func (g *Graph) runTools(ctx context.Context, calls []ToolCall) []Message {
	results := make([]Message, 0, len(calls))
	for _, call := range calls {
		results = append(results, g.execTool(ctx, call))
	}
	return results
}

func (g *Graph) execTool(ctx context.Context, call ToolCall) Message {
	start := time.Now()
	input := call.arguments()
	fields := []zap.Field{
		zap.String("tool_name", call.Name),
		zap.String("call_id", call.ID),
		zap.Int("input_size", len(input)),
	}

	def, ok := g.registry.Lookup(call.Name)
	if !ok {
		g.log.Warn("tool exec", append(fields, zap.String("error", ToolNotFound))...)
		return ToolMessage(call.ID, call.Name, ToolNotFound, true)
	}
	if err := call.argumentsError(); err != nil {
		g.log.Warn("tool exec", append(fields, zap.Error(err))...)
		return ToolMessage(call.ID, call.Name, err.Error(), true)
	}

	out, err := def.Function(ctx, input)
	fields = append(fields, zap.Duration("duration", time.Since(start)))
	if err != nil {
		g.log.Warn("tool exec", append(fields, zap.Error(err))...)
		return ToolMessage(call.ID, call.Name, err.Error(), true)
	}
	g.log.Info("tool exec", append(fields, zap.Int("output_size", len(out)))...)
	return ToolMessage(call.ID, call.Name, out, false)
}

// closePendingCalls answers tool calls left without results when a run stops
// early, so the saved thread is still a valid provider conversation.
func closePendingCalls(msgs []Message, cause error) []Message {
	if len(msgs) == 0 || !msgs[len(msgs)-1].HasToolCalls() {
		return msgs
	}
	text := "tool call not run: " + cause.Error()
	for _, c := range msgs[len(msgs)-1].ToolCalls {
		msgs = append(msgs, ToolMessage(c.ID, c.Name, text, true))
	}
	return msgs
}

func (g *Graph) notify(node string, added []Message) {
	if g.onStep != nil {
		g.onStep(node, CloneMessages(added))
	}
}
