// Package arxiv is a small client for the arXiv search API.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/matsen/scout/internal/logging"
)

const (
	// BaseURL is the arXiv query endpoint.
	BaseURL = "https://export.arxiv.org/api/query"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 60 * time.Second

	// RequestInterval is the delay arXiv asks clients to keep between requests.
	RequestInterval = 3 * time.Second

	// DefaultMaxResults is used when a search asks for zero results.
	DefaultMaxResults = 3

	userAgent = "scout/1.0 (arXiv research assistant)"
)

// Client is a rate-limited HTTP client for the arXiv API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	log        *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithRateLimit replaces the request limiter. rate.Inf disables limiting.
func WithRateLimit(limit rate.Limit) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(limit, 1)
	}
}

// NewClient creates a new arXiv client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Every(RequestInterval), 1),
		baseURL:    BaseURL,
		log:        logging.Named("arxiv"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search returns up to maxResults papers matching query, newest submissions first.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]Paper, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	params := url.Values{}
	params.Set("search_query", query)
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(maxResults))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")

	body, err := c.get(ctx, c.baseURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var feed atomFeed
	if err := xml.NewDecoder(body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("%w: parse feed: %v", ErrInvalidResponse, err)
	}

	papers := make([]Paper, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		p := parseAtomEntry(entry)
		// The API reports query errors as a single entry without an abs URL.
		if p.ID == "" {
			continue
		}
		papers = append(papers, p)
		if len(papers) == maxResults {
			break
		}
	}

	c.log.Info("arxiv search", zap.String("query", query), zap.Int("results", len(papers)))
	return papers, nil
}

// DownloadPDF writes the paper's PDF to dir/filename and returns the path.
// The file is written to a temporary name first and renamed into place.
func (c *Client) DownloadPDF(ctx context.Context, paper Paper, dir, filename string) (string, error) {
	pdfURL := paper.PDFURL
	if pdfURL == "" {
		pdfURL = PDFURLFromAbs(paper.EntryURL)
	}
	if pdfURL == "" {
		return "", fmt.Errorf("%w: paper %q has no PDF link", ErrNotFound, paper.ID)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating directory: %w", err)
	}

	body, err := c.get(ctx, pdfURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	path := filepath.Join(dir, filename)
	tmp, err := os.CreateTemp(dir, filename+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("renaming temp file: %w", err)
	}

	c.log.Info("downloaded pdf", zap.String("id", paper.ID), zap.String("path", path))
	return path, nil
}

// get performs a rate-limited GET and returns the body of a successful response.
func (c *Client) get(ctx context.Context, u string) (io.ReadCloser, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	if err := checkHTTPErrors(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}
