// Package prompts holds the prompt templates sent to language models.
package prompts

import (
	"fmt"
	"sort"
	"strings"
)

// SummaryTemplate asks for a plain-language summary of one document.
const SummaryTemplate = `
You are a helpful assistant. Your task is to read the following document and generate a summary in simple and easy-to-understand language.
Avoid technical jargon. Focus on the main ideas, key points, and overall message.
Make the summary short and clear enough to understand.

Document:
{document}

Summary in simple words:
`

// ExcerptsTemplate asks for an answer grounded in retrieved chunks.
const ExcerptsTemplate = `Based on the following research paper excerpts, please provide a comprehensive answer to the user's question.

Research Paper Excerpts:
{context}

User Question: {query}

Please provide a detailed and accurate answer based on the research papers:`

// Remote summarizer instructions, per provider.
const (
	PaperSystem          = "Summarize this academic paper:"
	PaperAnthropicPrefix = "Summarize this paper:\n"
	PaperGooglePrefix    = "Summarize this academic paper:\n\n"
)

// ExcerptSeparator joins retrieved chunks in ExcerptsTemplate.
const ExcerptSeparator = "\n\n"

// Summary fills SummaryTemplate.
func Summary(document string) string {
	return strings.Replace(SummaryTemplate, "{document}", document, 1)
}

// Excerpts fills ExcerptsTemplate with chunks joined by blank lines.
func Excerpts(chunks []string, query string) string {
	r := strings.NewReplacer(
		"{context}", strings.Join(chunks, ExcerptSeparator),
		"{query}", query,
	)
	return r.Replace(ExcerptsTemplate)
}

// UserContext describes a user profile for the agent. Known keys come first
// in a fixed order; the rest follow sorted. An empty profile yields "".
func UserContext(profile map[string]string) string {
	if len(profile) == 0 {
		return ""
	}

	known := []string{"name", "company", "email"}
	seen := map[string]bool{}
	var parts []string
	for _, k := range known {
		if v := strings.TrimSpace(profile[k]); v != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", k, v))
		}
		seen[k] = true
	}

	var rest []string
	for k := range profile {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		if v := strings.TrimSpace(profile[k]); v != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", k, v))
		}
	}

	if len(parts) == 0 {
		return ""
	}
	return "You are assisting a user with this profile. " + strings.Join(parts, "; ") + "."
}
