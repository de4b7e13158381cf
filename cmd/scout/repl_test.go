package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/matsen/scout/internal/agent"
	"github.com/matsen/scout/internal/config"
	"github.com/matsen/scout/internal/tools"
)

func TestReplLoop(t *testing.T) {
	in := strings.NewReader("hello\n\n  \nsecond line\nEXIT\nnever\n")
	var out bytes.Buffer
	var got []string

	err := replLoop(in, &out, "> ", func(line string) {
		got = append(got, line)
	})
	if err != nil {
		t.Fatalf("replLoop() error = %v", err)
	}
	if strings.Join(got, "|") != "hello|second line" {
		t.Errorf("handled lines = %q", got)
	}
	if !strings.HasSuffix(out.String(), exitMessage+"\n") {
		t.Errorf("output = %q, want exit message last", out.String())
	}
	if n := strings.Count(out.String(), "> "); n != 5 {
		t.Errorf("prompt printed %d times, want 5", n)
	}
}

func TestReplLoop_EOF(t *testing.T) {
	var out bytes.Buffer
	calls := 0
	err := replLoop(strings.NewReader("only"), &out, "? ", func(string) { calls++ })
	if err != nil {
		t.Fatalf("replLoop() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("handle called %d times, want 1", calls)
	}
	if strings.Contains(out.String(), exitMessage) {
		t.Error("EOF should not print the exit message")
	}
}

func TestIsExit(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"exit", true},
		{"  Exit ", true},
		{"EXIT", true},
		{"exit now", false},
		{"quit", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isExit(tt.line); got != tt.want {
			t.Errorf("isExit(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestRunQuery(t *testing.T) {
	model := agent.ChatModelFunc(func(_ context.Context, msgs []agent.Message, _ []tools.Definition) (agent.Message, error) {
		return agent.AssistantMessage("answer to " + msgs[len(msgs)-1].Content), nil
	})
	g := agent.NewGraph(model, tools.NewRegistry())

	got, err := runQuery(context.Background(), g, "what is new")
	if err != nil {
		t.Fatalf("runQuery() error = %v", err)
	}
	if got != "answer to what is new" {
		t.Errorf("runQuery() = %q", got)
	}

	failing := agent.NewGraph(agent.ChatModelFunc(func(context.Context, []agent.Message, []tools.Definition) (agent.Message, error) {
		return agent.Message{}, errors.New("quota exceeded")
	}), tools.NewRegistry())
	if _, err := runQuery(context.Background(), failing, "q"); err == nil || err.Error() != "quota exceeded" {
		t.Errorf("runQuery() error = %v", err)
	}
}

func TestChatModelName(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		model    string
		want     string
	}{
		{"openai default", "openai", config.DefaultChatModel, config.DefaultChatModel},
		{"openai explicit", "openai", "gpt-4o", "gpt-4o"},
		{"anthropic explicit", "anthropic", "claude-x", "claude-x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Chat: config.ChatConfig{Provider: tt.provider, Model: tt.model}}
			if got := chatModelName(cfg); got != tt.want {
				t.Errorf("chatModelName() = %q, want %q", got, tt.want)
			}
		})
	}
}
