// Package research implements the two tools the chatbot uses: arxiv_search
// downloads recent papers and rebuilds the vector index, llm_summarizer answers
// a question from the chunks most similar to it.
//
// Both follow the same error policy: every failure becomes a readable string
// returned to the model and a log line, never a Go error.
package research

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/matsen/scout/internal/arxiv"
	"github.com/matsen/scout/internal/llm"
	"github.com/matsen/scout/internal/logging"
	"github.com/matsen/scout/internal/pdf"
	"github.com/matsen/scout/internal/prompts"
	"github.com/matsen/scout/internal/storage"
	"github.com/matsen/scout/internal/textsplit"
	"github.com/matsen/scout/internal/vectorstore"
)

// Tool names as seen by the model.
const (
	ArxivSearchName   = "arxiv_search"
	LLMSummarizerName = "llm_summarizer"
)

// Messages returned by the tools.
const (
	MsgNoPapers    = "No papers found for the given search query."
	MsgNoDocuments = "No documents could be loaded from the downloaded papers."
	MsgNoIndex     = "No vector index found. Please search for papers first using arxiv_search."
	MsgNoRelevant  = "No relevant documents found for your query."
)

// Defaults for tool parameters.
const (
	DefaultMaxResults = 3
	DefaultTopK       = 3
)

// Searcher finds and downloads papers. *arxiv.Client satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]arxiv.Paper, error)
	DownloadPDF(ctx context.Context, paper arxiv.Paper, dir, filename string) (string, error)
}

// Catalog records the papers of the latest search. *storage.DB satisfies it.
type Catalog interface {
	ReplacePapers(ctx context.Context, papers []storage.Paper) error
}

// Service holds the dependencies of the research tools.
type Service struct {
	PapersDir  string
	MaxResults int
	TopK       int

	Searcher Searcher
	Indexer  *vectorstore.Indexer
	LLM      llm.Completer
	Catalog  Catalog // optional

	Log *zap.Logger
}

func (s *Service) logger() *zap.Logger {
	if s.Log != nil {
		return s.Log
	}
	return logging.Named("research")
}

// ArxivSearch clears the papers directory, downloads up to maxResult recent
// papers matching query, and rebuilds the vector index from their pages.
func (s *Service) ArxivSearch(ctx context.Context, query string, maxResult int) string {
	log := s.logger().With(zap.String("tool", ArxivSearchName), zap.String("query", query))
	log.Info("received search query", zap.Int("max_result", maxResult))

	result, err := s.arxivSearch(ctx, query, maxResult, log)
	if err != nil {
		log.Error("search failed", zap.Error(err))
		return fmt.Sprintf("Error in arxiv_search: %v", err)
	}
	log.Info("returning", zap.String("result", result))
	return result
}

func (s *Service) arxivSearch(ctx context.Context, query string, maxResult int, log *zap.Logger) (string, error) {
	if maxResult <= 0 {
		maxResult = s.MaxResults
	}
	if maxResult <= 0 {
		maxResult = DefaultMaxResults
	}

	if err := ClearPapers(s.PapersDir); err != nil {
		return "", err
	}

	papers, err := s.Searcher.Search(ctx, query, maxResult)
	if err != nil {
		return "", err
	}
	if len(papers) == 0 {
		return MsgNoPapers, nil
	}

	downloaded := make([]string, len(papers))
	for i, p := range papers {
		path, err := s.Searcher.DownloadPDF(ctx, p, s.PapersDir, PaperFilename(i))
		if err != nil {
			log.Warn("error downloading paper", zap.Int("paper", i+1), zap.String("id", p.ID), zap.Error(err))
			continue
		}
		downloaded[i] = path
	}

	pages, err := pdf.LoadDir(s.PapersDir, func(path string, err error) {
		log.Warn("error loading pdf", zap.String("path", path), zap.Error(err))
	})
	if err != nil {
		return "", err
	}
	if len(pages) == 0 {
		return MsgNoDocuments, nil
	}

	docs := make([]textsplit.Document, len(pages))
	for i, p := range pages {
		docs[i] = textsplit.Document{Content: p.Text, Source: p.Source, Page: p.Number}
	}
	stats, err := s.Indexer.Build(ctx, docs)
	if err != nil {
		return "", err
	}
	log.Info("index rebuilt", zap.Int("pages", stats.Pages), zap.Int("chunks", stats.Chunks), zap.Duration("duration", stats.Duration))

	if s.Catalog != nil {
		if err := s.Catalog.ReplacePapers(ctx, catalogEntries(papers, downloaded)); err != nil {
			log.Warn("recording papers", zap.Error(err))
		}
	}

	return fmt.Sprintf("Successfully downloaded %d papers and created vector index with %d chunks.", len(papers), stats.Chunks), nil
}

// LLMSummarizer answers query from the TopK indexed chunks most similar to it.
func (s *Service) LLMSummarizer(ctx context.Context, query string) string {
	log := s.logger().With(zap.String("tool", LLMSummarizerName), zap.String("query", query))
	log.Info("received summarization query")

	result, err := s.llmSummarizer(ctx, query)
	if err != nil {
		log.Error("summarization failed", zap.Error(err))
		return fmt.Sprintf("Error in llm_summarizer: %v", err)
	}
	log.Info("returning", zap.Int("size", len(result)))
	return result
}

func (s *Service) llmSummarizer(ctx context.Context, query string) (string, error) {
	exists, err := s.Indexer.Store.Exists(ctx)
	if err != nil {
		return "", err
	}
	if !exists {
		return MsgNoIndex, nil
	}

	k := s.TopK
	if k <= 0 {
		k = DefaultTopK
	}
	results, err := s.Indexer.Query(ctx, query, k)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return MsgNoRelevant, nil
	}

	chunks := make([]string, len(results))
	for i, r := range results {
		chunks[i] = r.Content
	}
	return s.LLM.Complete(ctx, llm.Request{Prompt: prompts.Excerpts(chunks, query)})
}

// PaperFilename names the i-th (0-based) downloaded paper.
func PaperFilename(i int) string {
	return fmt.Sprintf("paper_%d.pdf", i+1)
}

// ClearPapers creates dir if needed and deletes every *.pdf file in it.
// Other files are left alone.
func ClearPapers(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating papers directory: %w", err)
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.pdf"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			return fmt.Errorf("removing %s: %w", m, err)
		}
	}
	return nil
}

func catalogEntries(papers []arxiv.Paper, paths []string) []storage.Paper {
	out := make([]storage.Paper, len(papers))
	for i, p := range papers {
		out[i] = storage.Paper{
			ID:        p.ID,
			Title:     p.Title,
			URL:       p.EntryURL,
			PDFPath:   paths[i],
			Published: FormatPublished(p.Published),
			Authors:   p.Authors,
			Summary:   p.Summary,
			Position:  i + 1,
		}
	}
	return out
}

// FormatPublished renders a timestamp as a naive local date-time.
func FormatPublished(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02T15:04:05")
}
