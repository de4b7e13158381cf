// Package export renders the paper catalog in citation formats.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/matsen/scout/internal/storage"
)

// publishedLayout is how the catalog stores publication timestamps.
const publishedLayout = "2006-01-02T15:04:05"

// ToBibTeX converts a catalog paper to an arXiv-style BibTeX entry.
func ToBibTeX(p storage.Paper) string {
	var b strings.Builder

	fmt.Fprintf(&b, "@misc{%s,\n", citeKey(p))

	if len(p.Authors) > 0 {
		fmt.Fprintf(&b, "  author = {%s},\n", formatAuthors(p.Authors))
	}
	fmt.Fprintf(&b, "  title = {%s},\n", escapeLatex(p.Title))

	if t, err := time.Parse(publishedLayout, p.Published); err == nil {
		fmt.Fprintf(&b, "  year = {%d},\n", t.Year())
		fmt.Fprintf(&b, "  month = {%d},\n", int(t.Month()))
	}

	if p.ID != "" {
		fmt.Fprintf(&b, "  eprint = {%s},\n", p.ID)
		b.WriteString("  archivePrefix = {arXiv},\n")
	}
	if p.URL != "" {
		fmt.Fprintf(&b, "  url = {%s},\n", p.URL)
	}
	if p.Summary != "" {
		fmt.Fprintf(&b, "  abstract = {%s},\n", escapeLatex(p.Summary))
	}

	b.WriteString("}\n")
	return b.String()
}

// ToBibTeXList converts papers to BibTeX entries separated by blank lines.
func ToBibTeXList(papers []storage.Paper) string {
	entries := make([]string, 0, len(papers))
	for _, p := range papers {
		entries = append(entries, ToBibTeX(p))
	}
	return strings.Join(entries, "\n")
}

// citeKey is "<last name of first author><year>_<arxiv id>", falling back
// to the id alone.
func citeKey(p storage.Paper) string {
	id := p.ID
	if id == "" {
		id = fmt.Sprintf("paper%d", p.Position)
	}
	if len(p.Authors) == 0 {
		return "arXiv:" + id
	}
	last, _ := splitName(p.Authors[0])
	last = strings.Map(func(r rune) rune {
		if r == ' ' || r == '{' || r == '}' || r == ',' {
			return -1
		}
		return r
	}, last)
	year := ""
	if t, err := time.Parse(publishedLayout, p.Published); err == nil {
		year = fmt.Sprint(t.Year())
	}
	return fmt.Sprintf("%s%s_%s", last, year, id)
}

// formatAuthors formats authors in BibTeX style: "Last, First and Last, First"
func formatAuthors(authors []string) string {
	formatted := make([]string, 0, len(authors))
	for _, a := range authors {
		last, first := splitName(a)
		if first != "" {
			formatted = append(formatted, fmt.Sprintf("%s, %s", last, first))
		} else {
			formatted = append(formatted, last)
		}
	}
	return strings.Join(formatted, " and ")
}

// splitName splits "First Middle Last" at the final space.
func splitName(name string) (last, first string) {
	name = strings.Join(strings.Fields(name), " ")
	i := strings.LastIndex(name, " ")
	if i < 0 {
		return name, ""
	}
	return name[i+1:], name[:i]
}

// escapeLatex escapes special LaTeX characters.
func escapeLatex(s string) string {
	// & first, so later replacements are not escaped again
	replacer := strings.NewReplacer(
		"&", `\&`,
		"%", `\%`,
		"$", `\$`,
		"#", `\#`,
		"_", `\_`,
		"{", `\{`,
		"}", `\}`,
		"~", `\textasciitilde{}`,
		"^", `\textasciicircum{}`,
	)
	return replacer.Replace(s)
}
