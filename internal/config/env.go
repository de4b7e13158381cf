package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by scout. Provider SDKs read their API keys
// directly; the model variables select per-provider summary models.
const (
	EnvLLMProvider     = "LLM_PROVIDER"
	EnvOpenAIKey       = "OPENAI_API_KEY"
	EnvOpenAIModel     = "OPENAI_MODEL"
	EnvAnthropicKey    = "ANTHROPIC_API_KEY"
	EnvAnthropicModel  = "ANTHROPIC_MODEL"
	EnvGoogleKey       = "GOOGLE_API_KEY"
	EnvGoogleModel     = "GOOGLE_MODEL"
	EnvEmbeddingModel  = "SCOUT_EMBEDDING_MODEL"
	EnvChatModel       = "SCOUT_CHAT_MODEL"
	EnvMemoryRedisAddr = "SCOUT_REDIS_ADDR"
)

// LoadDotEnv loads variables from .env files into the process environment.
// Missing files are ignored; variables already set are never overwritten.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// applyEnv copies environment overrides onto cfg.
func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvLLMProvider)); v != "" {
		cfg.Summary.Provider = strings.ToLower(v)
	}
	if v := os.Getenv(EnvChatModel); v != "" {
		cfg.Chat.Model = v
	}
	if v := os.Getenv(EnvEmbeddingModel); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv(EnvMemoryRedisAddr); v != "" {
		cfg.Memory.Backend = "redis"
		cfg.Memory.Address = v
	}
}

// SummaryModel returns the model for a summary provider, honouring the
// provider-specific environment variable before falling back to def.
func SummaryModel(provider, def string) string {
	var key string
	switch strings.ToLower(provider) {
	case "openai":
		key = EnvOpenAIModel
	case "anthropic":
		key = EnvAnthropicModel
	case "google":
		key = EnvGoogleModel
	}
	if key != "" {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return def
}
