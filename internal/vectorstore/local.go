package vectorstore

import (
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const (
	// IndexFileName is the index file inside the index directory.
	IndexFileName = "index.gob"

	// CurrentIndexVersion is the format version for compatibility checking.
	// Increment this when making breaking changes to the index format.
	CurrentIndexVersion = 1
)

// localIndex is the on-disk form of a LocalStore.
type localIndex struct {
	Version    int
	ModelName  string
	Dimensions int
	CreatedAt  time.Time
	Documents  []Document
	Vectors    [][]float32
}

// LocalStore keeps the index as a single gob file in a directory.
type LocalStore struct {
	dir       string
	modelName string
}

// NewLocalStore returns a store rooted at dir. modelName is recorded in the
// index for reference.
func NewLocalStore(dir, modelName string) *LocalStore {
	return &LocalStore{dir: dir, modelName: modelName}
}

// Dir returns the index directory.
func (s *LocalStore) Dir() string { return s.dir }

func (s *LocalStore) path() string {
	return filepath.Join(s.dir, IndexFileName)
}

// Replace removes the index directory, recreates it and writes the new index.
func (s *LocalStore) Replace(ctx context.Context, docs []Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("%d documents but %d vectors", len(docs), len(vectors))
	}
	dims := 0
	if len(vectors) > 0 {
		dims = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != dims {
			return fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(v), dims)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("removing old index: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	idx := localIndex{
		Version:    CurrentIndexVersion,
		ModelName:  s.modelName,
		Dimensions: dims,
		CreatedAt:  time.Now(),
		Documents:  docs,
		Vectors:    vectors,
	}

	// Write to a temp file first, then rename for atomicity
	indexPath := s.path()
	tempPath := indexPath + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	if err := gob.NewEncoder(f).Encode(&idx); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("encoding index: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("closing file: %w", err)
	}
	if err := os.Rename(tempPath, indexPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// load reads the index from disk.
func (s *LocalStore) load() (*localIndex, error) {
	f, err := os.Open(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrIndexNotFound
		}
		return nil, fmt.Errorf("opening index file: %w", err)
	}
	defer f.Close()

	var idx localIndex
	if err := gob.NewDecoder(f).Decode(&idx); err != nil {
		return nil, fmt.Errorf("decoding index: %w", err)
	}
	if idx.Version != CurrentIndexVersion {
		return nil, fmt.Errorf("%w: got %d, want %d (run a new search to rebuild)",
			ErrUnsupportedVersion, idx.Version, CurrentIndexVersion)
	}
	return &idx, nil
}

// Search ranks every document by cosine similarity to vector.
func (s *LocalStore) Search(ctx context.Context, vector []float32, k int) ([]Result, error) {
	idx, err := s.load()
	if err != nil {
		return nil, err
	}
	if len(idx.Documents) > 0 && len(vector) != idx.Dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", ErrDimensionMismatch, len(vector), idx.Dimensions)
	}

	results := make([]Result, 0, len(idx.Documents))
	for i, doc := range idx.Documents {
		results = append(results, Result{
			Document: doc,
			Score:    CosineSimilarity(vector, idx.Vectors[i]),
		})
	}

	// Stable so equal scores keep index order.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Exists reports whether the index file is present.
func (s *LocalStore) Exists(ctx context.Context) (bool, error) {
	_, err := os.Stat(s.path())
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Count returns the number of indexed documents.
func (s *LocalStore) Count(ctx context.Context) (int, error) {
	idx, err := s.load()
	if err != nil {
		return 0, err
	}
	return len(idx.Documents), nil
}

// Info describes the index on disk.
func (s *LocalStore) Info(ctx context.Context) (*Info, error) {
	idx, err := s.load()
	if err != nil {
		return nil, err
	}
	return &Info{
		Backend:    "local",
		ModelName:  idx.ModelName,
		Dimensions: idx.Dimensions,
		Documents:  len(idx.Documents),
		CreatedAt:  idx.CreatedAt,
	}, nil
}
