// Package pdf extracts text from PDF files.
package pdf

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Page is the text of one PDF page, the unit fed to the splitter.
type Page struct {
	Source string // Path of the PDF the page came from
	Number int    // 1-based page number
	Text   string
}

// ExtractText extracts all text from the first N pages of a PDF.
// maxPages <= 0 means every page.
func ExtractText(filePath string, maxPages int) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", filePath, err)
	}
	defer f.Close()

	return joinPages(r, maxPages), nil
}

// ExtractTextReader extracts text from a PDF held in r.
func ExtractTextReader(r io.ReaderAt, size int64, maxPages int) (string, error) {
	pdfReader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("reading pdf: %w", err)
	}
	return joinPages(pdfReader, maxPages), nil
}

func joinPages(r *pdf.Reader, maxPages int) string {
	if maxPages <= 0 || maxPages > r.NumPage() {
		maxPages = r.NumPage()
	}

	var builder strings.Builder
	for i := 1; i <= maxPages; i++ {
		text, ok := pageText(r, i)
		if !ok {
			continue
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}
	return builder.String()
}

// pageText returns the plain text of page i. Pages that fail to decode are
// reported as absent rather than failing the whole document.
func pageText(r *pdf.Reader, i int) (string, bool) {
	page := r.Page(i)
	if page.V.IsNull() {
		return "", false
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", false
	}
	return text, true
}

// LoadPages returns one Page per non-empty page of the PDF at path.
func LoadPages(path string) ([]Page, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var pages []Page
	for i := 1; i <= r.NumPage(); i++ {
		text, ok := pageText(r, i)
		if !ok || strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, Page{Source: path, Number: i, Text: text})
	}
	return pages, nil
}

// LoadDir loads every *.pdf file in dir, in name order. Files that cannot be
// parsed are skipped and reported through skipped (which may be nil).
func LoadDir(dir string, skipped func(path string, err error)) ([]Page, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.pdf"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var pages []Page
	for _, p := range paths {
		loaded, err := LoadPages(p)
		if err != nil {
			if skipped != nil {
				skipped(p, err)
			}
			continue
		}
		pages = append(pages, loaded...)
	}
	return pages, nil
}

// ExtractTitle attempts to extract the title from a PDF.
// It returns the first substantial line of page 1 that does not look like
// a running header.
func ExtractTitle(filePath string) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if r.NumPage() < 1 {
		return "", nil
	}
	text, ok := pageText(r, 1)
	if !ok {
		return "", nil
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) > 20 && !isHeaderLine(line) {
			return line, nil
		}
	}
	return "", nil
}

// IsPDF reports whether the file at path starts with the PDF magic bytes.
func IsPDF(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, 5)
	if _, err := io.ReadFull(f, buf); err != nil {
		return false
	}
	return string(buf) == "%PDF-"
}

// isHeaderLine checks if a line is likely a header/footer.
func isHeaderLine(line string) bool {
	lower := strings.ToLower(line)
	switch {
	case strings.HasPrefix(lower, "arxiv:"):
		return true
	case strings.Contains(lower, "preprint"):
		return true
	case strings.Contains(lower, "copyright"):
		return true
	case strings.Contains(lower, "journal"):
		return true
	case strings.Contains(lower, "conference on"):
		return true
	}
	return false
}
