package prompts

import (
	"strings"
	"testing"
)

func TestSummary(t *testing.T) {
	got := Summary("Transformers are neat.")
	if !strings.Contains(got, "Document:\nTransformers are neat.\n\nSummary in simple words:") {
		t.Errorf("Summary() = %q", got)
	}
	if strings.Contains(got, "{document}") {
		t.Error("placeholder not replaced")
	}
}

func TestExcerpts(t *testing.T) {
	got := Excerpts([]string{"chunk one", "chunk two"}, "What is RAG?")

	if !strings.Contains(got, "Research Paper Excerpts:\nchunk one\n\nchunk two\n\nUser Question: What is RAG?") {
		t.Errorf("Excerpts() = %q", got)
	}
	if !strings.HasSuffix(got, "based on the research papers:") {
		t.Errorf("Excerpts() should end with the answer instruction, got %q", got)
	}
}

func TestExcerpts_PlaceholderInQuery(t *testing.T) {
	got := Excerpts([]string{"c"}, "what does {context} mean")
	if !strings.Contains(got, "User Question: what does {context} mean") {
		t.Errorf("query placeholders must not be expanded: %q", got)
	}
}

func TestUserContext(t *testing.T) {
	tests := []struct {
		name    string
		profile map[string]string
		want    string
	}{
		{"empty", nil, ""},
		{"blank values", map[string]string{"name": " "}, ""},
		{
			"ordered",
			map[string]string{"team": "ml", "email": "ada@example.com", "name": "Ada"},
			"You are assisting a user with this profile. name: Ada; email: ada@example.com; team: ml.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserContext(tt.profile); got != tt.want {
				t.Errorf("UserContext() = %q, want %q", got, tt.want)
			}
		})
	}
}
