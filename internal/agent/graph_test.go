package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/matsen/scout/internal/tools"
)

// scriptedModel returns replies in order and records what it was sent.
type scriptedModel struct {
	replies []Message
	calls   [][]Message
	err     error
}

func (m *scriptedModel) Generate(_ context.Context, msgs []Message, _ []tools.Definition) (Message, error) {
	m.calls = append(m.calls, CloneMessages(msgs))
	if m.err != nil {
		return Message{}, m.err
	}
	if len(m.calls) > len(m.replies) {
		return AssistantMessage("done"), nil
	}
	return m.replies[len(m.calls)-1], nil
}

// mapCheckpointer is a minimal in-test Checkpointer.
type mapCheckpointer struct {
	mu      sync.Mutex
	threads map[string][]Message
}

func (c *mapCheckpointer) Load(_ context.Context, id string) ([]Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CloneMessages(c.threads[id]), nil
}

func (c *mapCheckpointer) Save(_ context.Context, id string, msgs []Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.threads == nil {
		c.threads = map[string][]Message{}
	}
	c.threads[id] = CloneMessages(msgs)
	return nil
}

func testRegistry() *tools.Registry {
	return tools.NewRegistry(
		tools.Definition{
			Name: "echo",
			Function: func(_ context.Context, in json.RawMessage) (string, error) {
				var v struct {
					Text string `json:"text"`
				}
				if err := json.Unmarshal(in, &v); err != nil {
					return "", err
				}
				return "echo: " + v.Text, nil
			},
		},
		tools.Definition{
			Name: "fail",
			Function: func(context.Context, json.RawMessage) (string, error) {
				return "", errors.New("boom")
			},
		},
	)
}

func toolCallReply(calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, ToolCalls: calls}
}

func TestRoute(t *testing.T) {
	tests := []struct {
		name string
		msgs []Message
		want string
	}{
		{"empty", nil, End},
		{"plain answer", []Message{UserMessage("hi"), AssistantMessage("hello")}, End},
		{"tool call", []Message{toolCallReply(ToolCall{ID: "1", Name: "echo"})}, NodeTools},
		{"tool result last", []Message{ToolMessage("1", "echo", "x", false)}, End},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Route(tt.msgs); got != tt.want {
				t.Errorf("Route() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRun_ToolLoop(t *testing.T) {
	model := &scriptedModel{replies: []Message{
		toolCallReply(
			ToolCall{ID: "a", Name: "echo", Arguments: json.RawMessage(`{"text":"hi"}`)},
			ToolCall{ID: "b", Name: "missing"},
			ToolCall{ID: "c", Name: "fail"},
		),
		AssistantMessage("final answer"),
	}}

	var nodes []string
	g := NewGraph(model, testRegistry(), WithStepFunc(func(node string, _ []Message) {
		nodes = append(nodes, node)
	}))

	msgs, err := g.Run(context.Background(), []Message{UserMessage("question")})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// user, assistant(tool calls), 3 tool results, final assistant
	if len(msgs) != 6 {
		t.Fatalf("Run() returned %d messages, want 6: %+v", len(msgs), msgs)
	}
	want := []struct {
		id      string
		content string
		isErr   bool
	}{
		{"a", "echo: hi", false},
		{"b", ToolNotFound, true},
		{"c", "boom", true},
	}
	for i, w := range want {
		m := msgs[2+i]
		if m.Role != RoleTool || m.ToolCallID != w.id || m.Content != w.content || m.IsError != w.isErr {
			t.Errorf("tool result %d = %+v, want %+v", i, m, w)
		}
	}
	if msgs[5].Content != "final answer" {
		t.Errorf("last message = %+v", msgs[5])
	}
	if strings.Join(nodes, ",") != "agent,tools,agent" {
		t.Errorf("nodes = %v", nodes)
	}
	if len(model.calls[1]) != 5 {
		t.Errorf("second model call saw %d messages, want 5", len(model.calls[1]))
	}
}

func TestRun_StepLimit(t *testing.T) {
	loop := toolCallReply(ToolCall{ID: "x", Name: "echo", Arguments: json.RawMessage(`{"text":"again"}`)})
	model := &scriptedModel{replies: []Message{loop, loop, loop, loop, loop}}

	g := NewGraph(model, testRegistry(), WithMaxSteps(3))
	msgs, err := g.Run(context.Background(), []Message{UserMessage("loop forever")})
	if !errors.Is(err, ErrStepLimit) {
		t.Fatalf("Run() error = %v, want ErrStepLimit", err)
	}
	// agent, tools, agent executed before the limit
	if len(msgs) != 4 {
		t.Errorf("Run() kept %d messages, want 4", len(msgs))
	}
}

func TestRun_ModelError(t *testing.T) {
	model := &scriptedModel{err: errors.New("rate limited")}
	g := NewGraph(model, testRegistry())

	msgs, err := g.Run(context.Background(), []Message{UserMessage("q")})
	if err == nil || err.Error() != "rate limited" {
		t.Fatalf("Run() error = %v", err)
	}
	if len(msgs) != 1 {
		t.Errorf("Run() returned %d messages, want the input only", len(msgs))
	}
}

func TestInvoke_Checkpointer(t *testing.T) {
	cp := &mapCheckpointer{}
	model := &scriptedModel{replies: []Message{AssistantMessage("first"), AssistantMessage("second")}}
	g := NewGraph(model, testRegistry(), WithCheckpointer(cp))
	ctx := context.Background()

	if _, err := g.Invoke(ctx, "t1", UserMessage("one")); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	msgs, err := g.Invoke(ctx, "t1", UserMessage("two"))
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if len(msgs) != 4 || msgs[3].Content != "second" {
		t.Fatalf("thread = %+v", msgs)
	}
	if len(model.calls[1]) != 3 {
		t.Errorf("second call saw %d messages, want prior history plus new input", len(model.calls[1]))
	}

	other, err := g.Invoke(ctx, "t2", UserMessage("fresh"))
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 2 {
		t.Errorf("new thread has %d messages, want 2", len(other))
	}
	if len(cp.threads["t1"]) != 4 {
		t.Errorf("saved t1 has %d messages", len(cp.threads["t1"]))
	}
}

func TestInvoke_NoCheckpointer(t *testing.T) {
	model := &scriptedModel{replies: []Message{AssistantMessage("a"), AssistantMessage("b")}}
	g := NewGraph(model, nil)
	ctx := context.Background()

	g.Invoke(ctx, "t", UserMessage("one"))
	msgs, err := g.Invoke(ctx, "t", UserMessage("two"))
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Errorf("without checkpointer history should be empty, got %d messages", len(msgs))
	}
}

func TestCloneMessages(t *testing.T) {
	orig := []Message{toolCallReply(ToolCall{ID: "1", Name: "echo", Arguments: json.RawMessage(`{}`)})}
	cp := CloneMessages(orig)
	cp[0].ToolCalls[0].Name = "changed"
	cp[0].ToolCalls[0].Arguments[0] = '['
	if orig[0].ToolCalls[0].Name != "echo" || string(orig[0].ToolCalls[0].Arguments) != "{}" {
		t.Error("CloneMessages() shares memory with the original")
	}
}

func TestNewToolCall(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantArgs    string
		wantInvalid string
	}{
		{"empty", "", "", ""},
		{"object", `{"text":"hi"}`, `{"text":"hi"}`, ""},
		{"truncated", `{"text": "h`, "", `{"text": "h`},
		{"garbage", "not json", "", "not json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewToolCall("id", "echo", []byte(tt.raw))
			if string(c.Arguments) != tt.wantArgs || c.Invalid != tt.wantInvalid {
				t.Errorf("NewToolCall() = %+v", c)
			}
		})
	}
}

func TestRun_InvalidArguments(t *testing.T) {
	model := &scriptedModel{replies: []Message{
		toolCallReply(ToolCall{ID: "a", Name: "echo", Arguments: json.RawMessage(`{"text": "tru`)}),
		AssistantMessage("final answer"),
	}}
	g := NewGraph(model, testRegistry())

	msgs, err := g.Run(context.Background(), []Message{UserMessage("q")})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(msgs) != 4 {
		t.Fatalf("Run() returned %d messages, want 4", len(msgs))
	}
	call := msgs[1].ToolCalls[0]
	if call.Arguments != nil || call.Invalid != `{"text": "tru` {
		t.Errorf("stored call = %+v", call)
	}
	result := msgs[2]
	if !result.IsError || !strings.Contains(result.Content, `{"text": "tru`) {
		t.Errorf("tool result = %+v, want error naming the raw arguments", result)
	}
	if _, err := json.Marshal(msgs); err != nil {
		t.Errorf("thread is not encodable: %v", err)
	}
}

func TestInvoke_StepLimitAnswersPendingCalls(t *testing.T) {
	cp := &mapCheckpointer{}
	loop := toolCallReply(ToolCall{ID: "x", Name: "echo", Arguments: json.RawMessage(`{"text":"again"}`)})
	model := &scriptedModel{replies: []Message{loop, loop, loop}}
	g := NewGraph(model, testRegistry(), WithMaxSteps(3), WithCheckpointer(cp))

	msgs, err := g.Invoke(context.Background(), "t", UserMessage("loop"))
	if !errors.Is(err, ErrStepLimit) {
		t.Fatalf("Invoke() error = %v, want ErrStepLimit", err)
	}
	// user, agent, tool, agent, plus the answer to the pending call
	if len(msgs) != 5 {
		t.Fatalf("Invoke() returned %d messages, want 5", len(msgs))
	}
	last := msgs[4]
	if last.Role != RoleTool || last.ToolCallID != "x" || !last.IsError ||
		!strings.Contains(last.Content, "step limit") {
		t.Errorf("last message = %+v", last)
	}
	if saved := cp.threads["t"]; len(saved) != 5 || saved[4].Role != RoleTool {
		t.Errorf("saved thread = %+v", saved)
	}
}
