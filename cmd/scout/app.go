package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/matsen/scout/internal/agent"
	"github.com/matsen/scout/internal/arxiv"
	"github.com/matsen/scout/internal/chatbot"
	"github.com/matsen/scout/internal/config"
	"github.com/matsen/scout/internal/embedding"
	"github.com/matsen/scout/internal/llm"
	"github.com/matsen/scout/internal/logging"
	"github.com/matsen/scout/internal/memory"
	"github.com/matsen/scout/internal/research"
	"github.com/matsen/scout/internal/storage"
	"github.com/matsen/scout/internal/textsplit"
	"github.com/matsen/scout/internal/vectorstore"
)

// app holds the components shared by the chat, serve and tool commands.
type app struct {
	cfg      *config.Config
	db       *storage.DB
	research *research.Service
	memory   memory.Store
	closers  []io.Closer
}

// mustBuildApp wires storage, retrieval and the research tools, exits on error.
func mustBuildApp(ctx context.Context, cfg *config.Config) *app {
	a, err := buildApp(ctx, cfg)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return a
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := storage.OpenDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	a := &app{cfg: cfg, db: db}

	embedder, err := embedding.New(embedding.Settings{
		Provider:   cfg.Embedding.Provider,
		Model:      cfg.Embedding.Model,
		BaseURL:    cfg.Embedding.BaseURL,
		Dimensions: cfg.Embedding.Dimensions,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	store, err := vectorstore.Open(ctx, vectorstore.Settings{
		Provider:   cfg.Vector.Provider,
		Dir:        cfg.IndexDir,
		ModelName:  embedder.ModelName(),
		Dimensions: embedder.Dimensions(),
		Milvus: vectorstore.MilvusConfig{
			Address:    cfg.Vector.Address,
			Username:   cfg.Vector.Username,
			Password:   cfg.Vector.Password,
			Database:   cfg.Vector.Database,
			Collection: cfg.Vector.Collection,
		},
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("opening vector store: %w", err)
	}
	if c, ok := store.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	splitter, err := textsplit.NewFromMode(cfg.Splitter.ChunkSize, cfg.Splitter.ChunkOverlap, cfg.Splitter.Length)
	if err != nil {
		a.Close()
		return nil, err
	}

	completer, err := llm.New(ctx, cfg.Chat.Provider, llm.Settings{Model: chatModelName(cfg)})
	if err != nil {
		a.Close()
		return nil, err
	}

	a.research = &research.Service{
		PapersDir:  cfg.PapersDir,
		MaxResults: cfg.Search.MaxResults,
		TopK:       cfg.Search.TopK,
		Searcher:   arxiv.NewClient(),
		Indexer:    &vectorstore.Indexer{Splitter: splitter, Embedder: embedder, Store: store},
		LLM:        completer,
		Catalog:    db,
		Log:        logging.Named("research"),
	}

	if cfg.Memory.Enabled {
		mem, err := memory.Open(cfg.Memory, db)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.memory = mem
		a.closers = append(a.closers, mem)
	}
	return a, nil
}

// Close releases every open resource.
func (a *app) Close() error {
	for _, c := range a.closers {
		c.Close()
	}
	return a.db.Close()
}

// chatBot builds the agent-backed chatbot over the research tools.
func (a *app) chatBot() (*chatbot.ChatBot, error) {
	model, err := newChatModel(a.cfg.Chat.Provider, chatModelName(a.cfg))
	if err != nil {
		return nil, err
	}
	return chatbot.New(chatbot.Options{
		Model:    model,
		Tools:    a.research.Registry(),
		Memory:   a.memory,
		Profiles: a.db,
		MaxSteps: a.cfg.Chat.MaxSteps,
		Log:      logging.Named("chatbot"),
	})
}

// chatModelName returns the configured chat model, substituting the
// provider default when the OpenAI default is left in place for another provider.
func chatModelName(cfg *config.Config) string {
	provider := strings.ToLower(cfg.Chat.Provider)
	if provider != llm.ProviderOpenAI && cfg.Chat.Model == config.DefaultChatModel {
		return llm.DefaultModel(provider)
	}
	return cfg.Chat.Model
}

// newChatModel returns a tool-calling model for provider.
func newChatModel(provider, model string) (agent.ChatModel, error) {
	switch strings.ToLower(provider) {
	case llm.ProviderOpenAI:
		return agent.NewOpenAIModel(model, llm.ClientOptions(llm.Settings{})...), nil
	case llm.ProviderAnthropic:
		return agent.NewAnthropicModel(model, llm.AnthropicOptions(llm.Settings{})...), nil
	default:
		return nil, fmt.Errorf("%w for chat: %s", llm.ErrUnsupportedProvider, provider)
	}
}
