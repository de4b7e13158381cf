// Package memory stores agent conversation threads. Every backend satisfies
// agent.Checkpointer so a Graph can resume a thread by id.
package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/matsen/scout/internal/agent"
	"github.com/matsen/scout/internal/config"
	"github.com/matsen/scout/internal/storage"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Store is a thread-keyed conversation checkpointer.
type Store interface {
	agent.Checkpointer
	Clear(ctx context.Context, threadID string) error
	Threads(ctx context.Context) ([]string, error)
	Close() error
}

// Open returns the store selected by cfg.Backend. The sqlite backend shares db.
func Open(cfg config.MemoryConfig, db *storage.DB) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case BackendMemory:
		return NewInMemoryStore(), nil
	case BackendSQLite, "":
		if db == nil {
			return nil, fmt.Errorf("sqlite memory backend requires a database")
		}
		return NewSQLiteStore(db), nil
	case BackendRedis:
		return NewRedisStore(RedisConfig{
			Address:  cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
			TTL:      time.Duration(cfg.TTLSeconds) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unsupported memory backend: %s", cfg.Backend)
	}
}
