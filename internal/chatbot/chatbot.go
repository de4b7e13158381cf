// Package chatbot wraps the agent graph in the conversational API used by the
// CLI and the web UI: one call per user message, keyed by thread.
package chatbot

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"go.uber.org/zap"

	"github.com/matsen/scout/internal/agent"
	"github.com/matsen/scout/internal/logging"
	"github.com/matsen/scout/internal/memory"
	"github.com/matsen/scout/internal/prompts"
	"github.com/matsen/scout/internal/tools"
)

// Defaults for Chat and the profile store.
const (
	DefaultThread = "default"
	DefaultUserID = "main_user"
	NoResponse    = "I couldn't generate a response. Please try again."
)

// Profiles persists per-user context. *storage.DB satisfies it.
type Profiles interface {
	SaveProfile(ctx context.Context, userID string, profile map[string]string) error
	GetProfile(ctx context.Context, userID string) (map[string]string, error)
}

// HistoryEntry is one visible turn of a conversation.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options configures a ChatBot.
type Options struct {
	Model    agent.ChatModel
	Tools    *tools.Registry
	Memory   memory.Store // nil disables conversation memory
	Profiles Profiles     // nil keeps profiles in process
	UserID   string
	MaxSteps int
	Log      *zap.Logger
}

// ChatBot answers user messages with the agent graph.
type ChatBot struct {
	graph    *agent.Graph
	memory   memory.Store
	profiles Profiles
	userID   string
	log      *zap.Logger

	mu    sync.Mutex
	local map[string]map[string]string
}

// New builds a ChatBot. Model is required.
func New(opts Options) (*ChatBot, error) {
	if opts.Model == nil {
		return nil, fmt.Errorf("chat model is required")
	}
	log := opts.Log
	if log == nil {
		log = logging.Named("chatbot")
	}
	userID := opts.UserID
	if userID == "" {
		userID = DefaultUserID
	}

	graphOpts := []agent.Option{agent.WithMaxSteps(opts.MaxSteps), agent.WithLogger(log.Named("graph"))}
	if opts.Memory != nil {
		graphOpts = append(graphOpts, agent.WithCheckpointer(opts.Memory))
	}

	return &ChatBot{
		graph:    agent.NewGraph(opts.Model, opts.Tools, graphOpts...),
		memory:   opts.Memory,
		profiles: opts.Profiles,
		userID:   userID,
		log:      log,
		local:    make(map[string]map[string]string),
	}, nil
}

// MemoryEnabled reports whether threads persist between calls.
func (b *ChatBot) MemoryEnabled() bool { return b.memory != nil }

// Chat sends message on threadID (DefaultThread when empty) and returns the
// final answer. Failures are returned as "Error: ..." text.
func (b *ChatBot) Chat(ctx context.Context, message, threadID string) string {
	if threadID == "" {
		threadID = DefaultThread
	}
	log := b.log.With(zap.String("thread", threadID))

	input, err := b.input(ctx, message, threadID)
	if err != nil {
		log.Error("preparing chat input", zap.Error(err))
		return fmt.Sprintf("Error: %v", err)
	}

	msgs, err := b.graph.Invoke(ctx, threadID, input...)
	if err != nil {
		log.Error("chat failed", zap.Error(err))
		return fmt.Sprintf("Error: %v", err)
	}

	if len(msgs) == 0 || msgs[len(msgs)-1].Content == "" {
		return NoResponse
	}
	return msgs[len(msgs)-1].Content
}

// input returns the messages to append for a new user turn. New threads are
// prefixed with the user's profile when one is set.
func (b *ChatBot) input(ctx context.Context, message, threadID string) ([]agent.Message, error) {
	user := agent.UserMessage(message)

	if b.memory != nil {
		stored, err := b.memory.Load(ctx, threadID)
		if err != nil {
			return nil, fmt.Errorf("loading thread %s: %w", threadID, err)
		}
		if len(stored) > 0 {
			return []agent.Message{user}, nil
		}
	}

	profile, err := b.GetUserContext(ctx, b.userID)
	if err != nil {
		return nil, err
	}
	if text := prompts.UserContext(profile); text != "" {
		return []agent.Message{agent.SystemMessage(text), user}, nil
	}
	return []agent.Message{user}, nil
}

// History returns the user and assistant messages of a thread that carry
// text. It is empty when memory is disabled.
func (b *ChatBot) History(ctx context.Context, threadID string) ([]HistoryEntry, error) {
	if b.memory == nil {
		return []HistoryEntry{}, nil
	}
	if threadID == "" {
		threadID = DefaultThread
	}
	msgs, err := b.memory.Load(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("loading thread %s: %w", threadID, err)
	}

	history := []HistoryEntry{}
	for _, m := range msgs {
		if m.Content == "" {
			continue
		}
		if m.Role == agent.RoleUser || m.Role == agent.RoleAssistant {
			history = append(history, HistoryEntry{Role: string(m.Role), Content: m.Content})
		}
	}
	return history, nil
}

// ClearMemory forgets a thread. It is a no-op when memory is disabled.
func (b *ChatBot) ClearMemory(ctx context.Context, threadID string) error {
	if b.memory == nil {
		return nil
	}
	if threadID == "" {
		threadID = DefaultThread
	}
	if err := b.memory.Clear(ctx, threadID); err != nil {
		return fmt.Errorf("clearing thread %s: %w", threadID, err)
	}
	b.log.Info("memory cleared", zap.String("thread", threadID))
	return nil
}

// SetUserContext replaces the stored profile of userID.
func (b *ChatBot) SetUserContext(ctx context.Context, userID string, profile map[string]string) error {
	if b.profiles != nil {
		return b.profiles.SaveProfile(ctx, userID, profile)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.local[userID] = maps.Clone(profile)
	return nil
}

// GetUserContext returns the profile of userID, or an empty map when unset.
func (b *ChatBot) GetUserContext(ctx context.Context, userID string) (map[string]string, error) {
	if b.profiles != nil {
		return b.profiles.GetProfile(ctx, userID)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.local[userID]; ok {
		return maps.Clone(p), nil
	}
	return map[string]string{}, nil
}
