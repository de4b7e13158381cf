package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLBeforeInitIsNop(t *testing.T) {
	if err := Sync(); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	// Must not panic.
	L().Info("dropped")
	Named("test").Warn("dropped")
}

func TestInitAppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "mcp_log")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("existing line\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Init(Config{Level: "info", OutputPaths: []string{path}}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	Named("arxiv").Info("search complete")
	L().Debug("hidden at info level")
	if err := Sync(); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	if !strings.HasPrefix(got, "existing line\n") {
		t.Errorf("log file was truncated: %q", got)
	}
	if !strings.Contains(got, "search complete") || !strings.Contains(got, "arxiv") {
		t.Errorf("log file missing entry: %q", got)
	}
	if strings.Contains(got, "hidden at info level") {
		t.Errorf("debug entry written at info level: %q", got)
	}
}

func TestInitJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scout.log")
	if err := Init(Config{Level: "debug", Format: "json", OutputPaths: []string{path}}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	L().Debug("json entry")
	if err := Sync(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"msg":"json entry"`) {
		t.Errorf("expected JSON entry, got %q", data)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"debug", "debug"},
		{"WARNING", "warn"},
		{"error", "error"},
		{"", "info"},
		{"bogus", "info"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseLevel(tt.in).String(); got != tt.want {
				t.Errorf("parseLevel(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
