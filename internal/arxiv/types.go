package arxiv

import (
	"strings"
	"time"
)

// Paper is one arXiv search result.
type Paper struct {
	// ID is the arXiv identifier without version (e.g. "2401.00001").
	ID string `json:"id"`

	Title      string    `json:"title"`
	Summary    string    `json:"summary"`
	Authors    []string  `json:"authors"`
	Categories []string  `json:"categories,omitempty"`
	Published  time.Time `json:"published"`
	Updated    time.Time `json:"updated"`

	// EntryURL is the versioned abstract page, e.g. http://arxiv.org/abs/2401.00001v2.
	EntryURL string `json:"entry_url"`

	// PDFURL is the PDF link advertised by the feed.
	PDFURL string `json:"pdf_url"`

	DOI string `json:"doi,omitempty"`
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID         string         `xml:"id"`
	Title      string         `xml:"title"`
	Summary    string         `xml:"summary"`
	Authors    []atomAuthor   `xml:"author"`
	Categories []atomCategory `xml:"category"`
	Links      []atomLink     `xml:"link"`
	Published  string         `xml:"published"`
	Updated    string         `xml:"updated"`
	DOI        string         `xml:"doi"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

type atomLink struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

// parseAtomEntry converts an atom entry to a Paper.
func parseAtomEntry(entry atomEntry) Paper {
	entryURL := strings.TrimSpace(entry.ID)

	var authors []string
	for _, a := range entry.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			authors = append(authors, name)
		}
	}

	var categories []string
	for _, c := range entry.Categories {
		categories = append(categories, c.Term)
	}

	p := Paper{
		ID:         IDFromURL(entryURL),
		Title:      normalizeSpace(entry.Title),
		Summary:    normalizeSpace(entry.Summary),
		Authors:    authors,
		Categories: categories,
		EntryURL:   entryURL,
		DOI:        strings.TrimSpace(entry.DOI),
	}
	p.Published, _ = time.Parse(time.RFC3339, strings.TrimSpace(entry.Published))
	p.Updated, _ = time.Parse(time.RFC3339, strings.TrimSpace(entry.Updated))

	for _, l := range entry.Links {
		if l.Title == "pdf" || l.Type == "application/pdf" {
			p.PDFURL = l.Href
			break
		}
	}
	if p.PDFURL == "" {
		p.PDFURL = PDFURLFromAbs(entryURL)
	}

	return p
}

// IDFromURL extracts the unversioned identifier from an abstract URL
// (http://arxiv.org/abs/2301.00001v1 -> 2301.00001).
func IDFromURL(u string) string {
	idx := strings.LastIndex(u, "/abs/")
	if idx < 0 {
		return ""
	}
	id := u[idx+5:]
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 && isDigits(id[vIdx+1:]) {
		id = id[:vIdx]
	}
	return id
}

// PDFURLFromAbs rewrites an abstract page URL to its PDF URL
// (https://arxiv.org/abs/2401.00001 -> https://arxiv.org/pdf/2401.00001.pdf).
// URLs that are not arXiv abstract pages are returned unchanged.
func PDFURLFromAbs(u string) string {
	if !strings.Contains(u, "arxiv.org/abs/") {
		return u
	}
	u = strings.Replace(u, "/abs/", "/pdf/", 1)
	if !strings.HasSuffix(u, ".pdf") {
		u += ".pdf"
	}
	return u
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
