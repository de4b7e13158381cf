package vectorstore

import (
	"context"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// Milvus field names.
const (
	milvusFieldID      = "id"
	milvusFieldContent = "content"
	milvusFieldSource  = "source"
	milvusFieldPage    = "page"
	milvusFieldChunk   = "chunk"
	milvusFieldVector  = "vector"

	milvusMaxContent = 8192
	milvusMaxSource  = 1024
	milvusHNSWM      = 8
	milvusHNSWEf     = 64

	// Scores match the local store's cosine similarity.
	milvusMetric = entity.COSINE
)

// MilvusConfig holds connection settings for a Milvus server.
type MilvusConfig struct {
	Address    string
	Username   string
	Password   string
	Database   string
	Collection string
	Dimensions int
}

// MilvusStore keeps the index in a Milvus collection. Replace drops and
// recreates the collection.
type MilvusStore struct {
	client     client.Client
	collection string
	dims       int
}

// NewMilvusStore connects to Milvus.
func NewMilvusStore(ctx context.Context, cfg MilvusConfig) (*MilvusStore, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("milvus address is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("milvus store needs positive dimensions, got %d", cfg.Dimensions)
	}

	c, err := client.NewClient(ctx, client.Config{
		Address:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		DBName:   cfg.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to milvus at %s: %w", cfg.Address, err)
	}
	return &MilvusStore{client: c, collection: cfg.Collection, dims: cfg.Dimensions}, nil
}

// Close releases the client connection.
func (s *MilvusStore) Close() error {
	return s.client.Close()
}

// milvusSchema describes the chunk collection.
func milvusSchema(collection string, dims int) *entity.Schema {
	return entity.NewSchema().
		WithName(collection).
		WithDescription("scout paper chunks").
		WithAutoID(false).
		WithField(entity.NewField().WithName(milvusFieldID).WithDataType(entity.FieldTypeVarChar).
			WithIsPrimaryKey(true).WithMaxLength(64)).
		WithField(entity.NewField().WithName(milvusFieldContent).WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(milvusMaxContent)).
		WithField(entity.NewField().WithName(milvusFieldSource).WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(milvusMaxSource)).
		WithField(entity.NewField().WithName(milvusFieldPage).WithDataType(entity.FieldTypeInt64)).
		WithField(entity.NewField().WithName(milvusFieldChunk).WithDataType(entity.FieldTypeInt64)).
		WithField(entity.NewField().WithName(milvusFieldVector).WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(dims)))
}

// milvusColumns converts documents to insert columns. Documents without an
// ID are numbered by position; content longer than the VarChar limit is cut.
func milvusColumns(docs []Document, vectors [][]float32, dims int) []entity.Column {
	ids := make([]string, len(docs))
	contents := make([]string, len(docs))
	sources := make([]string, len(docs))
	pages := make([]int64, len(docs))
	chunks := make([]int64, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
		if ids[i] == "" {
			ids[i] = strconv.Itoa(i)
		}
		contents[i] = truncateBytes(d.Content, milvusMaxContent)
		sources[i] = truncateBytes(d.Source, milvusMaxSource)
		pages[i] = int64(d.Page)
		chunks[i] = int64(d.Chunk)
	}

	return []entity.Column{
		entity.NewColumnVarChar(milvusFieldID, ids),
		entity.NewColumnVarChar(milvusFieldContent, contents),
		entity.NewColumnVarChar(milvusFieldSource, sources),
		entity.NewColumnInt64(milvusFieldPage, pages),
		entity.NewColumnInt64(milvusFieldChunk, chunks),
		entity.NewColumnFloatVector(milvusFieldVector, dims, vectors),
	}
}

// Replace drops the collection, recreates it and inserts docs.
func (s *MilvusStore) Replace(ctx context.Context, docs []Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("%d documents but %d vectors", len(docs), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != s.dims {
			return fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(v), s.dims)
		}
	}

	has, err := s.client.HasCollection(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("checking collection: %w", err)
	}
	if has {
		if err := s.client.DropCollection(ctx, s.collection); err != nil {
			return fmt.Errorf("dropping collection: %w", err)
		}
	}

	if err := s.client.CreateCollection(ctx, milvusSchema(s.collection, s.dims), entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	idx, err := milvusIndex()
	if err != nil {
		return fmt.Errorf("building index params: %w", err)
	}
	if err := s.client.CreateIndex(ctx, s.collection, milvusFieldVector, idx, false); err != nil {
		return fmt.Errorf("creating index: %w", err)
	}

	if len(docs) > 0 {
		if _, err := s.client.Insert(ctx, s.collection, "", milvusColumns(docs, vectors, s.dims)...); err != nil {
			return fmt.Errorf("inserting documents: %w", err)
		}
		if err := s.client.Flush(ctx, s.collection, false); err != nil {
			return fmt.Errorf("flushing collection: %w", err)
		}
	}

	if err := s.client.LoadCollection(ctx, s.collection, false); err != nil {
		return fmt.Errorf("loading collection: %w", err)
	}
	return nil
}

func milvusIndex() (entity.Index, error) {
	return entity.NewIndexHNSW(milvusMetric, milvusHNSWM, milvusHNSWEf)
}

// Search returns the top k chunks by cosine similarity.
func (s *MilvusStore) Search(ctx context.Context, vector []float32, k int) ([]Result, error) {
	ok, err := s.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrIndexNotFound
	}
	if len(vector) != s.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", ErrDimensionMismatch, len(vector), s.dims)
	}

	sp, err := entity.NewIndexHNSWSearchParam(milvusHNSWEf)
	if err != nil {
		return nil, fmt.Errorf("building search params: %w", err)
	}

	res, err := s.client.Search(ctx, s.collection, nil, "",
		[]string{milvusFieldID, milvusFieldContent, milvusFieldSource, milvusFieldPage, milvusFieldChunk},
		[]entity.Vector{entity.FloatVector(vector)},
		milvusFieldVector, milvusMetric, k, sp)
	if err != nil {
		return nil, fmt.Errorf("milvus search: %w", err)
	}
	if len(res) == 0 {
		return nil, nil
	}

	hits := res[0]
	out := make([]Result, 0, hits.ResultCount)
	for i := 0; i < hits.ResultCount; i++ {
		var doc Document
		if doc.ID, err = columnString(hits.Fields.GetColumn(milvusFieldID), i); err != nil {
			return nil, err
		}
		if doc.Content, err = columnString(hits.Fields.GetColumn(milvusFieldContent), i); err != nil {
			return nil, err
		}
		if doc.Source, err = columnString(hits.Fields.GetColumn(milvusFieldSource), i); err != nil {
			return nil, err
		}
		page, err := columnInt(hits.Fields.GetColumn(milvusFieldPage), i)
		if err != nil {
			return nil, err
		}
		chunk, err := columnInt(hits.Fields.GetColumn(milvusFieldChunk), i)
		if err != nil {
			return nil, err
		}
		doc.Page, doc.Chunk = int(page), int(chunk)

		var score float32
		if i < len(hits.Scores) {
			score = hits.Scores[i]
		}
		out = append(out, Result{Document: doc, Score: score})
	}
	return out, nil
}

// Exists reports whether the collection has been created.
func (s *MilvusStore) Exists(ctx context.Context) (bool, error) {
	has, err := s.client.HasCollection(ctx, s.collection)
	if err != nil {
		return false, fmt.Errorf("checking collection: %w", err)
	}
	return has, nil
}

// Count returns the collection's row count.
func (s *MilvusStore) Count(ctx context.Context) (int, error) {
	ok, err := s.Exists(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrIndexNotFound
	}
	stats, err := s.client.GetCollectionStatistics(ctx, s.collection)
	if err != nil {
		return 0, fmt.Errorf("collection statistics: %w", err)
	}
	n, err := strconv.Atoi(stats["row_count"])
	if err != nil {
		return 0, fmt.Errorf("parsing row_count %q: %w", stats["row_count"], err)
	}
	return n, nil
}

func columnString(col entity.Column, i int) (string, error) {
	if col == nil {
		return "", nil
	}
	return col.GetAsString(i)
}

func columnInt(col entity.Column, i int) (int64, error) {
	if col == nil {
		return 0, nil
	}
	return col.GetAsInt64(i)
}

// truncateBytes shortens s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
