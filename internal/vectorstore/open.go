package vectorstore

import (
	"context"
	"fmt"
	"strings"
)

// Settings selects a backend.
type Settings struct {
	Provider   string // local (default) or milvus
	Dir        string // local index directory
	ModelName  string
	Dimensions int
	Milvus     MilvusConfig
}

// Open returns the store named by s.Provider.
func Open(ctx context.Context, s Settings) (Store, error) {
	switch strings.ToLower(s.Provider) {
	case "", "local":
		if s.Dir == "" {
			return nil, fmt.Errorf("local vector store needs an index directory")
		}
		return NewLocalStore(s.Dir, s.ModelName), nil
	case "milvus":
		cfg := s.Milvus
		if cfg.Dimensions == 0 {
			cfg.Dimensions = s.Dimensions
		}
		if cfg.Collection == "" {
			cfg.Collection = "scout_chunks"
		}
		return NewMilvusStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", s.Provider)
	}
}
