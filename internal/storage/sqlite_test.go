package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// setupTestDB creates a database in a temp dir with two papers loaded.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := OpenDB(filepath.Join(t.TempDir(), "nested", "scout.db"))
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	papers := []Paper{
		{
			ID:        "2401.00001",
			Title:     "Retrieval Augmented Generation for Science",
			URL:       "http://arxiv.org/abs/2401.00001v1",
			PDFPath:   "papers/paper_1.pdf",
			Published: "2024-01-02T10:00:00",
			Authors:   []string{"Ada Lovelace", "Alan Turing"},
			Summary:   "We study retrieval for scientific question answering.",
			Position:  1,
		},
		{
			ID:       "2401.00002",
			Title:    "Protein Folding with Transformers",
			URL:      "http://arxiv.org/abs/2401.00002v2",
			Authors:  []string{"Rosalind Franklin"},
			Position: 2,
		},
	}
	if err := db.ReplacePapers(context.Background(), papers); err != nil {
		t.Fatalf("ReplacePapers() error = %v", err)
	}
	return db
}

func TestReplaceAndListPapers(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	papers, err := db.ListPapers(ctx)
	if err != nil {
		t.Fatalf("ListPapers() error = %v", err)
	}
	if len(papers) != 2 {
		t.Fatalf("ListPapers() returned %d papers, want 2", len(papers))
	}
	if papers[0].ID != "2401.00001" || papers[1].ID != "2401.00002" {
		t.Errorf("papers out of order: %s, %s", papers[0].ID, papers[1].ID)
	}
	if len(papers[0].Authors) != 2 || papers[0].Authors[1] != "Alan Turing" {
		t.Errorf("Authors = %v", papers[0].Authors)
	}
	if papers[1].PDFPath != "" || papers[1].Summary != "" {
		t.Errorf("empty fields should round-trip as empty, got %+v", papers[1])
	}

	// A second replace removes everything from the first.
	if err := db.ReplacePapers(ctx, []Paper{{ID: "x", Title: "Only", URL: "u", Position: 1}}); err != nil {
		t.Fatalf("ReplacePapers() error = %v", err)
	}
	count, err := db.CountPapers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("CountPapers() = %d, want 1", count)
	}
	results, err := db.SearchPapers(ctx, "protein", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("stale FTS rows survived replace: %v", results)
	}
}

func TestGetPaper(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	p, err := db.GetPaper(ctx, 2)
	if err != nil {
		t.Fatalf("GetPaper() error = %v", err)
	}
	if p == nil || p.Title != "Protein Folding with Transformers" {
		t.Errorf("GetPaper(2) = %+v", p)
	}

	p, err = db.GetPaper(ctx, 9)
	if err != nil {
		t.Fatalf("GetPaper() error = %v", err)
	}
	if p != nil {
		t.Errorf("GetPaper(9) = %+v, want nil", p)
	}
}

func TestSearchPapers(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		query   string
		wantIDs []string
	}{
		{"title word", "protein", []string{"2401.00002"}},
		{"summary word", "scientific", []string{"2401.00001"}},
		{"author", "turing", []string{"2401.00001"}},
		{"quoted id", "2401.00001", []string{"2401.00001"}},
		{"empty", "   ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.SearchPapers(ctx, tt.query, 10)
			if err != nil {
				t.Fatalf("SearchPapers(%q) error = %v", tt.query, err)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("SearchPapers(%q) returned %d results, want %d", tt.query, len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("result[%d] = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestThreads(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	msgs := []json.RawMessage{
		json.RawMessage(`{"role":"user","content":"hi"}`),
		json.RawMessage(`{"role":"assistant","content":"hello"}`),
	}
	if err := db.SaveThread(ctx, "t1", msgs); err != nil {
		t.Fatalf("SaveThread() error = %v", err)
	}
	if err := db.SaveThread(ctx, "t2", msgs[:1]); err != nil {
		t.Fatalf("SaveThread() error = %v", err)
	}

	got, err := db.LoadThread(ctx, "t1")
	if err != nil {
		t.Fatalf("LoadThread() error = %v", err)
	}
	if len(got) != 2 || string(got[1]) != string(msgs[1]) {
		t.Errorf("LoadThread() = %s", got)
	}

	// Saving again replaces rather than appends.
	if err := db.SaveThread(ctx, "t1", msgs[:1]); err != nil {
		t.Fatal(err)
	}
	got, _ = db.LoadThread(ctx, "t1")
	if len(got) != 1 {
		t.Errorf("after resave LoadThread() returned %d messages, want 1", len(got))
	}

	threads, err := db.ListThreads(ctx)
	if err != nil {
		t.Fatalf("ListThreads() error = %v", err)
	}
	if len(threads) != 2 {
		t.Fatalf("ListThreads() returned %d threads, want 2", len(threads))
	}

	if err := db.ClearThread(ctx, "t1"); err != nil {
		t.Fatalf("ClearThread() error = %v", err)
	}
	got, err = db.LoadThread(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("cleared thread still has %d messages", len(got))
	}

	unknown, err := db.LoadThread(ctx, "nope")
	if err != nil || len(unknown) != 0 {
		t.Errorf("LoadThread(unknown) = %v, %v", unknown, err)
	}
}

func TestProfiles(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	empty, err := db.GetProfile(ctx, "main_user")
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("GetProfile(unset) = %v, want empty map", empty)
	}

	profile := map[string]string{"name": "Ada", "company": "Engines Ltd"}
	if err := db.SaveProfile(ctx, "main_user", profile); err != nil {
		t.Fatalf("SaveProfile() error = %v", err)
	}
	if err := db.SaveProfile(ctx, "main_user", map[string]string{"name": "Grace"}); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetProfile(ctx, "main_user")
	if err != nil {
		t.Fatal(err)
	}
	if got["name"] != "Grace" || len(got) != 1 {
		t.Errorf("GetProfile() = %v, want replaced profile", got)
	}
}

func TestJSONLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thread.jsonl")
	records := []json.RawMessage{
		json.RawMessage("{\n  \"role\": \"user\"\n}"),
		json.RawMessage(`{"role":"assistant","content":"ok"}`),
	}

	if err := WriteJSONL(path, records); err != nil {
		t.Fatalf("WriteJSONL() error = %v", err)
	}
	got, err := ReadJSONL(path)
	if err != nil {
		t.Fatalf("ReadJSONL() error = %v", err)
	}
	if len(got) != 2 || string(got[0]) != `{"role":"user"}` {
		t.Errorf("ReadJSONL() = %s", got)
	}

	missing, err := ReadJSONL(filepath.Join(t.TempDir(), "missing.jsonl"))
	if err != nil || missing != nil {
		t.Errorf("ReadJSONL(missing) = %v, %v", missing, err)
	}

	bad := filepath.Join(t.TempDir(), "bad.jsonl")
	if err := os.WriteFile(bad, []byte("{\"ok\":1}\nnot json\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadJSONL(bad); err == nil {
		t.Error("ReadJSONL() expected error for invalid line")
	}
}
