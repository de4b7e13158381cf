package research

import (
	"context"
	"encoding/json"

	"github.com/matsen/scout/internal/tools"
)

// SearchInput is the argument object of arxiv_search.
type SearchInput struct {
	SearchQuery string `json:"search_query" jsonschema_description:"It is the query search by the user"`
	MaxResult   int    `json:"max_result,omitempty" jsonschema_description:"Maximum number of papers to download (default: 3)"`
}

// SummarizerInput is the argument object of llm_summarizer.
type SummarizerInput struct {
	UserQuery string `json:"user_query" jsonschema_description:"The user's question or query"`
}

// Definitions returns the tool definitions bound to s, in the order the
// model sees them.
func (s *Service) Definitions() []tools.Definition {
	return []tools.Definition{
		{
			Name:        ArxivSearchName,
			Description: "This tool is used to download top max_result research papers and build a searchable index of their text.",
			InputSchema: tools.GenerateSchema[SearchInput](),
			Function: func(ctx context.Context, input json.RawMessage) (string, error) {
				in, err := tools.Decode[SearchInput](input)
				if err != nil {
					return "", err
				}
				return s.ArxivSearch(ctx, in.SearchQuery, in.MaxResult), nil
			},
		},
		{
			Name:        LLMSummarizerName,
			Description: "This tool summarizes the downloaded PDFs based on the user query.",
			InputSchema: tools.GenerateSchema[SummarizerInput](),
			Function: func(ctx context.Context, input json.RawMessage) (string, error) {
				in, err := tools.Decode[SummarizerInput](input)
				if err != nil {
					return "", err
				}
				return s.LLMSummarizer(ctx, in.UserQuery), nil
			},
		},
	}
}

// Registry returns a tool registry holding s's definitions.
func (s *Service) Registry() *tools.Registry {
	return tools.NewRegistry(s.Definitions()...)
}
