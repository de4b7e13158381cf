package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// Paper is one catalog row describing a downloaded paper.
type Paper struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	URL       string   `json:"url"`
	PDFPath   string   `json:"pdf_path,omitempty"`
	Published string   `json:"published,omitempty"`
	Authors   []string `json:"authors"`
	Summary   string   `json:"summary,omitempty"`
	Position  int      `json:"position"`
}

const selectPaperFields = `id, title, url, pdf_path, published, authors_json, summary, position`

// ReplacePapers clears the catalog and inserts papers in one transaction.
func (d *DB) ReplacePapers(ctx context.Context, papers []Paper) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM papers"); err != nil {
		return fmt.Errorf("clearing papers table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM papers_fts"); err != nil {
		return fmt.Errorf("clearing papers_fts table: %w", err)
	}

	paperStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO papers (`+selectPaperFields+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing papers insert: %w", err)
	}
	defer paperStmt.Close()

	ftsStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO papers_fts (id, title, summary, authors_text)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing fts insert: %w", err)
	}
	defer ftsStmt.Close()

	for _, p := range papers {
		authors := p.Authors
		if authors == nil {
			authors = []string{}
		}
		authorsJSON, err := json.Marshal(authors)
		if err != nil {
			return fmt.Errorf("encoding authors for %s: %w", p.ID, err)
		}

		if _, err := paperStmt.ExecContext(ctx,
			p.ID, p.Title, p.URL,
			nullableStringValue(p.PDFPath), nullableStringValue(p.Published),
			string(authorsJSON), nullableStringValue(p.Summary), p.Position,
		); err != nil {
			return fmt.Errorf("inserting paper %s: %w", p.ID, err)
		}
		if _, err := ftsStmt.ExecContext(ctx, p.ID, p.Title, p.Summary, strings.Join(p.Authors, " ")); err != nil {
			return fmt.Errorf("indexing paper %s: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

// ListPapers returns the catalog ordered by position.
func (d *DB) ListPapers(ctx context.Context) ([]Paper, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT "+selectPaperFields+" FROM papers ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("querying papers: %w", err)
	}
	defer rows.Close()
	return scanPapers(rows)
}

// GetPaper returns the paper at the given 1-based position, or nil if absent.
func (d *DB) GetPaper(ctx context.Context, position int) (*Paper, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT "+selectPaperFields+" FROM papers WHERE position = ?", position)
	if err != nil {
		return nil, fmt.Errorf("querying paper: %w", err)
	}
	defer rows.Close()

	papers, err := scanPapers(rows)
	if err != nil || len(papers) == 0 {
		return nil, err
	}
	return &papers[0], nil
}

// SearchPapers performs a full-text search over titles, summaries and authors.
func (d *DB) SearchPapers(ctx context.Context, query string, limit int) ([]Paper, error) {
	query = prepareFTSQuery(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT p.id, p.title, p.url, p.pdf_path, p.published, p.authors_json, p.summary, p.position
		FROM papers p
		JOIN papers_fts f ON p.id = f.id
		WHERE papers_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching papers: %w", err)
	}
	defer rows.Close()
	return scanPapers(rows)
}

// CountPapers returns the number of papers in the catalog.
func (d *DB) CountPapers(ctx context.Context) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM papers").Scan(&count)
	return count, err
}

func scanPapers(rows *sql.Rows) ([]Paper, error) {
	var papers []Paper
	for rows.Next() {
		var p Paper
		var pdfPath, published, summary sql.NullString
		var authorsJSON string
		if err := rows.Scan(&p.ID, &p.Title, &p.URL, &pdfPath, &published, &authorsJSON, &summary, &p.Position); err != nil {
			return nil, fmt.Errorf("scanning paper: %w", err)
		}
		p.PDFPath = pdfPath.String
		p.Published = published.String
		p.Summary = summary.String
		if err := json.Unmarshal([]byte(authorsJSON), &p.Authors); err != nil {
			return nil, fmt.Errorf("parsing authors for %s: %w", p.ID, err)
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}
