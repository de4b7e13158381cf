package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/matsen/scout/internal/arxiv"
	"github.com/matsen/scout/internal/llm"
	"github.com/matsen/scout/internal/logging"
	"github.com/matsen/scout/internal/pdf"
	"github.com/matsen/scout/internal/prompts"
	"github.com/matsen/scout/internal/tools"
)

// SummarizeToolName is the tool exposed by the summary server.
const SummarizeToolName = "summarize_pdf"

// DefaultMaxChars is how much extracted text is sent to the model.
const DefaultMaxChars = 10000

// ErrNotPDF is returned when a URL serves something other than a PDF.
var ErrNotPDF = errors.New("Provided URL did not return a valid PDF.")

// SummarizeInput is the argument object of summarize_pdf.
type SummarizeInput struct {
	PDFURL string `json:"pdf_url" jsonschema_description:"URL of an arXiv abstract page or PDF"`
}

// Summarizer downloads a PDF and asks a language model to summarize it.
type Summarizer struct {
	LLM        llm.Completer
	HTTPClient *http.Client
	MaxChars   int
	MaxTokens  int
	Log        *zap.Logger
}

func (s *Summarizer) logger() *zap.Logger {
	if s.Log != nil {
		return s.Log
	}
	return logging.Named("mcp.summary")
}

// Summarize returns a summary of the PDF at pdfURL. Abstract page URLs are
// rewritten to their PDF URL.
func (s *Summarizer) Summarize(ctx context.Context, pdfURL string) (string, error) {
	u := arxiv.PDFURLFromAbs(pdfURL)
	s.logger().Info("fetching pdf", zap.String("url", u))

	path, err := s.download(ctx, u)
	if err != nil {
		return "", err
	}
	defer os.Remove(path)

	text, err := pdf.ExtractText(path, 0)
	if err != nil {
		return "", err
	}
	maxChars := s.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	return s.LLM.Complete(ctx, paperRequest(s.LLM.Provider(), llm.Truncate(text, maxChars), s.MaxTokens))
}

func (s *Summarizer) download(ctx context.Context, u string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	hc := s.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetching %s: HTTP %d", u, resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Content-Type"), "application/pdf") {
		return "", ErrNotPDF
	}

	f, err := os.CreateTemp("", "scout-*.pdf")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing pdf: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// paperRequest builds the provider-specific summarization request.
func paperRequest(provider, text string, maxTokens int) llm.Request {
	switch provider {
	case llm.ProviderAnthropic:
		if maxTokens <= 0 {
			maxTokens = llm.DefaultMaxTokens
		}
		return llm.Request{Prompt: prompts.PaperAnthropicPrefix + text, MaxTokens: maxTokens}
	case llm.ProviderGoogle:
		return llm.Request{Prompt: prompts.PaperGooglePrefix + text, MaxTokens: maxTokens}
	default:
		return llm.Request{System: prompts.PaperSystem, Prompt: text, MaxTokens: maxTokens}
	}
}

// NewSummaryServer returns a server exposing summarize_pdf.
func NewSummaryServer(s *Summarizer) *server.MCPServer {
	srv := server.NewMCPServer(SummaryServerName, Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	srv.AddTool(
		mcp.NewToolWithRawSchema(SummarizeToolName,
			"Download a research paper PDF and return a short summary of it.",
			tools.GenerateSchema[SummarizeInput]()),
		HandleSummarize(s),
	)
	return srv
}

// HandleSummarize returns the summarize_pdf handler. The result is
// {"summary": "..."}.
func HandleSummarize(s *Summarizer) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pdfURL, err := req.RequireString("pdf_url")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		s.logger().Info("received summarize request", zap.String("pdf_url", pdfURL), zap.String("provider", s.LLM.Provider()))

		summary, err := s.Summarize(ctx, pdfURL)
		if err != nil {
			s.logger().Error("summarize failed", zap.String("pdf_url", pdfURL), zap.Error(err))
			return mcp.NewToolResultError(err.Error()), nil
		}

		data, err := json.Marshal(map[string]string{"summary": summary})
		if err != nil {
			return nil, fmt.Errorf("encoding summary: %w", err)
		}
		s.logger().Info("returning summary", zap.Int("size", len(summary)))
		return mcp.NewToolResultText(string(data)), nil
	}
}
