// Package textsplit breaks document text into overlapping chunks for embedding.
package textsplit

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Defaults used for paper text.
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// DefaultSeparators are tried in order: paragraphs, lines, words, characters.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// LengthFunc measures a piece of text. RuneCount is the default.
type LengthFunc func(string) int

// RuneCount measures text in characters.
func RuneCount(s string) int { return utf8.RuneCountInString(s) }

// Recursive splits text on the first separator that occurs in it, recursing
// into pieces that are still too long with the remaining separators, then
// merges neighbouring pieces back into chunks of at most ChunkSize.
// Consecutive chunks share up to ChunkOverlap of context.
type Recursive struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
	Length       LengthFunc
}

// Document is a piece of text with the location it came from.
type Document struct {
	Content string
	Source  string
	Page    int
	Chunk   int // Index of the chunk within its source page
}

// ErrInvalidConfig is returned by Validate for impossible size settings.
var ErrInvalidConfig = errors.New("invalid splitter configuration")

// New returns a splitter with the given sizes and the default separators.
func New(chunkSize, chunkOverlap int) *Recursive {
	return &Recursive{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		Separators:   DefaultSeparators,
		Length:       RuneCount,
	}
}

// Validate checks that ChunkSize > 0 and 0 <= ChunkOverlap < ChunkSize.
func (s *Recursive) Validate() error {
	if s.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size %d must be positive", ErrInvalidConfig, s.ChunkSize)
	}
	if s.ChunkOverlap < 0 || s.ChunkOverlap >= s.ChunkSize {
		return fmt.Errorf("%w: chunk overlap %d must be in [0, %d)", ErrInvalidConfig, s.ChunkOverlap, s.ChunkSize)
	}
	return nil
}

// Split returns the chunks of text. Whitespace-only chunks are dropped.
func (s *Recursive) Split(text string) ([]string, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	seps := s.Separators
	if len(seps) == 0 {
		seps = DefaultSeparators
	}
	return s.split(text, seps), nil
}

// SplitDocuments splits every document, numbering chunks per source document
// and carrying the source metadata onto each chunk.
func (s *Recursive) SplitDocuments(docs []Document) ([]Document, error) {
	var out []Document
	for _, d := range docs {
		chunks, err := s.Split(d.Content)
		if err != nil {
			return nil, err
		}
		for i, c := range chunks {
			out = append(out, Document{Content: c, Source: d.Source, Page: d.Page, Chunk: i})
		}
	}
	return out, nil
}

func (s *Recursive) length(text string) int {
	if s.Length == nil {
		return RuneCount(text)
	}
	return s.Length(text)
}

func (s *Recursive) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var rest []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var chunks, good []string
	for _, piece := range splitKeepSeparator(text, separator) {
		if s.length(piece) < s.ChunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			chunks = append(chunks, s.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, s.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		chunks = append(chunks, s.merge(good)...)
	}
	return chunks
}

// splitKeepSeparator splits text on sep, attaching each separator to the
// start of the piece that follows it. An empty sep splits into runes.
func splitKeepSeparator(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}

	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	if parts[0] != "" {
		out = append(out, parts[0])
	}
	for _, p := range parts[1:] {
		out = append(out, sep+p)
	}
	return out
}

// merge combines small pieces into chunks no longer than ChunkSize, starting
// each new chunk with as much of the previous one's tail as fits in
// ChunkOverlap.
func (s *Recursive) merge(pieces []string) []string {
	var (
		chunks  []string
		current []string
		total   int
	)

	for _, p := range pieces {
		n := s.length(p)
		if total+n > s.ChunkSize && len(current) > 0 {
			if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for total > s.ChunkOverlap || (total+n > s.ChunkSize && total > 0) {
				total -= s.length(current[0])
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
	}

	if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}
