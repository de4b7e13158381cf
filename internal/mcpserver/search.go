// Package mcpserver exposes arXiv search and PDF summarization as MCP tool
// servers spoken over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/matsen/scout/internal/arxiv"
	"github.com/matsen/scout/internal/logging"
	"github.com/matsen/scout/internal/research"
	"github.com/matsen/scout/internal/tools"
)

// Version is reported to clients during initialization.
const Version = "1.0.0"

// Server names.
const (
	SearchServerName  = "ArxivSearchServer"
	SummaryServerName = "ArxivSummarizerServer"
)

// PaperSearcher queries arXiv. *arxiv.Client satisfies it.
type PaperSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]arxiv.Paper, error)
}

// SearchResult is one entry of the arxiv_search tool result.
type SearchResult struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Published string `json:"Published"`
}

// NewSearchServer returns a server exposing arxiv_search.
func NewSearchServer(searcher PaperSearcher, log *zap.Logger) *server.MCPServer {
	s := server.NewMCPServer(SearchServerName, Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	s.AddTool(
		mcp.NewToolWithRawSchema(research.ArxivSearchName,
			"Search arXiv for the most recent papers matching a query and return their titles, URLs and publication dates.",
			tools.GenerateSchema[research.SearchInput]()),
		HandleArxivSearch(searcher, log),
	)
	return s
}

// HandleArxivSearch returns the arxiv_search handler.
func HandleArxivSearch(searcher PaperSearcher, log *zap.Logger) server.ToolHandlerFunc {
	if log == nil {
		log = logging.Named("mcp.search")
	}
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("search_query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		maxResult := req.GetInt("max_result", research.DefaultMaxResults)
		log.Info("received search query", zap.String("query", query), zap.Int("max_result", maxResult))

		papers, err := searcher.Search(ctx, query, maxResult)
		if err != nil {
			log.Error("search failed", zap.String("query", query), zap.Error(err))
			return mcp.NewToolResultError(fmt.Sprintf("Error searching arXiv: %v", err)), nil
		}

		results := make([]SearchResult, len(papers))
		for i, p := range papers {
			results[i] = SearchResult{Title: p.Title, URL: p.EntryURL, Published: research.FormatPublished(p.Published)}
		}
		data, err := json.Marshal(results)
		if err != nil {
			return nil, fmt.Errorf("encoding results: %w", err)
		}
		log.Info("returning results", zap.Int("count", len(results)), zap.ByteString("results", data))
		return mcp.NewToolResultText(string(data)), nil
	}
}

// ServeStdio serves s on stdin/stdout until EOF or a termination signal.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
