// Package vectorstore holds embedded text chunks and answers similarity queries.
package vectorstore

import (
	"context"
	"errors"
	"time"
)

// Errors returned by vector store operations.
var (
	ErrIndexNotFound      = errors.New("vector index not found")
	ErrUnsupportedVersion = errors.New("unsupported index version")
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
)

// Document is one indexed chunk of paper text.
type Document struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Source  string `json:"source"` // PDF path the chunk came from
	Page    int    `json:"page"`
	Chunk   int    `json:"chunk"`
}

// Result is a document returned by a similarity search.
type Result struct {
	Document
	Score float32 `json:"score"`
}

// Store is a replace-only similarity index. Every Replace discards the
// previous contents entirely.
type Store interface {
	// Replace drops the existing index and stores docs with their vectors.
	Replace(ctx context.Context, docs []Document, vectors [][]float32) error

	// Search returns the k documents most similar to vector, best first.
	// It returns ErrIndexNotFound when nothing has been indexed yet.
	Search(ctx context.Context, vector []float32, k int) ([]Result, error)

	// Exists reports whether an index has been built.
	Exists(ctx context.Context) (bool, error)

	// Count returns the number of indexed documents.
	Count(ctx context.Context) (int, error)
}

// Info describes a built index.
type Info struct {
	Backend    string    `json:"backend"`
	ModelName  string    `json:"model_name,omitempty"`
	Dimensions int       `json:"dimensions"`
	Documents  int       `json:"documents"`
	CreatedAt  time.Time `json:"created_at,omitzero"`
}
