package vectorstore

import (
	"context"
	"fmt"
	"time"

	"github.com/matsen/scout/internal/embedding"
	"github.com/matsen/scout/internal/textsplit"
)

// BuildStats contains statistics from index building.
type BuildStats struct {
	Pages    int           `json:"pages"`
	Chunks   int           `json:"chunks"`
	Duration time.Duration `json:"duration"`
}

// Indexer chunks documents, embeds the chunks and replaces the store contents.
type Indexer struct {
	Splitter *textsplit.Recursive
	Embedder embedding.Provider
	Store    Store
}

// Build splits docs, embeds every chunk and replaces the index.
// An empty chunk list still replaces the index with an empty one.
func (ix *Indexer) Build(ctx context.Context, docs []textsplit.Document) (*BuildStats, error) {
	start := time.Now()

	chunks, err := ix.Splitter.SplitDocuments(docs)
	if err != nil {
		return nil, fmt.Errorf("splitting documents: %w", err)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	var vectors [][]float32
	if len(texts) > 0 {
		embs, err := ix.Embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding chunks: %w", err)
		}
		vectors = make([][]float32, len(embs))
		for i, e := range embs {
			vectors[i] = e.Vector
		}
	}

	stored := make([]Document, len(chunks))
	for i, c := range chunks {
		stored[i] = Document{
			ID:      fmt.Sprintf("%d", i),
			Content: c.Content,
			Source:  c.Source,
			Page:    c.Page,
			Chunk:   c.Chunk,
		}
	}

	if err := ix.Store.Replace(ctx, stored, vectors); err != nil {
		return nil, fmt.Errorf("replacing index: %w", err)
	}

	return &BuildStats{
		Pages:    len(docs),
		Chunks:   len(chunks),
		Duration: time.Since(start),
	}, nil
}

// Query embeds text and returns the k most similar chunks.
func (ix *Indexer) Query(ctx context.Context, text string, k int) ([]Result, error) {
	emb, err := ix.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return ix.Store.Search(ctx, emb.Vector, k)
}
