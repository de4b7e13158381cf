// Package config handles scout configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config represents configuration stored in ~/.config/scout/config.yml.
// Every field has a default, so an absent file yields a working setup.
type Config struct {
	PapersDir string `yaml:"papers_dir"` // Downloaded PDFs, cleared on every search
	IndexDir  string `yaml:"index_dir"`  // Vector index directory, replaced on every search
	DBPath    string `yaml:"db_path"`    // SQLite catalog (papers, threads, profiles)
	LogFile   string `yaml:"log_file"`   // Shared flat log file
	LogLevel  string `yaml:"log_level"`

	Chat      ChatConfig      `yaml:"chat"`
	Summary   SummaryConfig   `yaml:"summary"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Splitter  SplitterConfig  `yaml:"splitter"`
	Search    SearchConfig    `yaml:"search"`
	Vector    VectorConfig    `yaml:"vector_store"`
	Memory    MemoryConfig    `yaml:"memory"`
	Web       WebConfig       `yaml:"web"`
}

// ChatConfig selects the tool-calling model that drives the agent.
type ChatConfig struct {
	Provider string `yaml:"provider"` // openai or anthropic
	Model    string `yaml:"model"`
	MaxSteps int    `yaml:"max_steps"`
}

// SummaryConfig selects the model used by summarize_pdf.
type SummaryConfig struct {
	Provider  string `yaml:"provider"` // openai, anthropic or google
	MaxChars  int    `yaml:"max_chars"`
	MaxTokens int    `yaml:"max_tokens"`
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // openai or ollama
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url,omitempty"`
	Dimensions int    `yaml:"dimensions"`
}

// SplitterConfig controls chunking of paper text.
type SplitterConfig struct {
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	Length       string `yaml:"length"` // chars or tokens
}

// SearchConfig holds retrieval constants.
type SearchConfig struct {
	MaxResults int `yaml:"max_results"` // Papers downloaded per arxiv_search call
	TopK       int `yaml:"top_k"`       // Chunks retrieved per llm_summarizer call
}

// VectorConfig selects the vector store backend.
type VectorConfig struct {
	Provider   string `yaml:"provider"` // local or milvus
	Address    string `yaml:"address,omitempty"`
	Username   string `yaml:"username,omitempty"`
	Password   string `yaml:"password,omitempty"`
	Database   string `yaml:"database,omitempty"`
	Collection string `yaml:"collection,omitempty"`
}

// MemoryConfig selects the conversation memory backend.
type MemoryConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Backend    string `yaml:"backend"` // sqlite, memory or redis
	Address    string `yaml:"address,omitempty"`
	Password   string `yaml:"password,omitempty"`
	DB         int    `yaml:"db,omitempty"`
	TTLSeconds int    `yaml:"ttl_seconds,omitempty"`
}

// WebConfig controls the chat UI server.
type WebConfig struct {
	Addr string `yaml:"addr"`
}

// Defaults for every configurable value.
const (
	DefaultPapersDir     = "papers"
	DefaultIndexDir      = "vector_index"
	DefaultDBFile        = "scout.db"
	DefaultLogFile       = "mcp_log"
	DefaultChatProvider  = "openai"
	DefaultChatModel     = "gpt-4o-mini"
	DefaultMaxSteps      = 25
	DefaultSummaryChars  = 10000
	DefaultSummaryTokens = 512
	DefaultChunkSize     = 500
	DefaultChunkOverlap  = 50
	DefaultMaxResults    = 3
	DefaultTopK          = 3
	DefaultWebAddr       = ":8501"

	LengthChars  = "chars"
	LengthTokens = "tokens"
)

// Default returns a configuration with every field set to its default.
func Default() *Config {
	cfg := newConfig()
	cfg.applyDefaults()
	return cfg
}

// newConfig returns the pre-defaults state a config file is decoded into.
// Overlap starts negative so an explicit chunk_overlap: 0 survives defaults.
func newConfig() *Config {
	return &Config{
		Memory:   MemoryConfig{Enabled: true},
		Splitter: SplitterConfig{ChunkOverlap: -1},
	}
}

// applyDefaults fills zero values with defaults.
func (c *Config) applyDefaults() {
	if c.PapersDir == "" {
		c.PapersDir = DefaultPapersDir
	}
	if c.IndexDir == "" {
		c.IndexDir = DefaultIndexDir
	}
	if c.DBPath == "" {
		c.DBPath = DefaultDBFile
	}
	if c.LogFile == "" {
		c.LogFile = DefaultLogFile
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Chat.Provider == "" {
		c.Chat.Provider = DefaultChatProvider
	}
	if c.Chat.Model == "" {
		c.Chat.Model = DefaultChatModel
	}
	if c.Chat.MaxSteps <= 0 {
		c.Chat.MaxSteps = DefaultMaxSteps
	}
	if c.Summary.Provider == "" {
		c.Summary.Provider = "openai"
	}
	if c.Summary.MaxChars <= 0 {
		c.Summary.MaxChars = DefaultSummaryChars
	}
	if c.Summary.MaxTokens <= 0 {
		c.Summary.MaxTokens = DefaultSummaryTokens
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Splitter.ChunkSize <= 0 {
		c.Splitter.ChunkSize = DefaultChunkSize
	}
	if c.Splitter.ChunkOverlap < 0 {
		c.Splitter.ChunkOverlap = DefaultChunkOverlap
	}
	if c.Splitter.Length == "" {
		c.Splitter.Length = LengthChars
	}
	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = DefaultMaxResults
	}
	if c.Search.TopK <= 0 {
		c.Search.TopK = DefaultTopK
	}
	if c.Vector.Provider == "" {
		c.Vector.Provider = "local"
	}
	if c.Vector.Collection == "" {
		c.Vector.Collection = "scout_chunks"
	}
	if c.Memory.Backend == "" {
		c.Memory.Backend = "sqlite"
	}
	if c.Web.Addr == "" {
		c.Web.Addr = DefaultWebAddr
	}

	c.PapersDir = ExpandPath(c.PapersDir)
	c.IndexDir = ExpandPath(c.IndexDir)
	c.DBPath = ExpandPath(c.DBPath)
	c.LogFile = ExpandPath(c.LogFile)
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	if c.Splitter.ChunkOverlap >= c.Splitter.ChunkSize {
		return fmt.Errorf("splitter chunk_overlap (%d) must be smaller than chunk_size (%d)",
			c.Splitter.ChunkOverlap, c.Splitter.ChunkSize)
	}
	switch c.Splitter.Length {
	case LengthChars, LengthTokens:
	default:
		return fmt.Errorf("invalid splitter length: %s (valid: %s, %s)", c.Splitter.Length, LengthChars, LengthTokens)
	}
	switch strings.ToLower(c.Vector.Provider) {
	case "local":
	case "milvus":
		if c.Vector.Address == "" {
			return fmt.Errorf("vector_store address is required for milvus")
		}
	default:
		return fmt.Errorf("invalid vector_store provider: %s (valid: local, milvus)", c.Vector.Provider)
	}
	switch strings.ToLower(c.Memory.Backend) {
	case "sqlite", "memory":
	case "redis":
		if c.Memory.Address == "" {
			return fmt.Errorf("memory address is required for redis")
		}
	default:
		return fmt.Errorf("invalid memory backend: %s (valid: sqlite, memory, redis)", c.Memory.Backend)
	}
	return nil
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}
