package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/scout/internal/arxiv"
	"github.com/matsen/scout/internal/config"
	"github.com/matsen/scout/internal/llm"
	"github.com/matsen/scout/internal/logging"
	"github.com/matsen/scout/internal/mcpserver"
)

func init() {
	mcpCmd.AddCommand(mcpSearchCmd)
	mcpCmd.AddCommand(mcpSummaryCmd)
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run MCP tool servers over stdio",
	Long: `Run an MCP tool server on stdin/stdout. Diagnostics go to the
log file, never to stdout.`,
}

var mcpSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Serve arxiv_search",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv := mcpserver.NewSearchServer(arxiv.NewClient(), logging.Named("mcp.search"))
		return mcpserver.ServeStdio(srv)
	},
}

var mcpSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Serve summarize_pdf",
	Long: `Serve summarize_pdf. The model provider comes from LLM_PROVIDER
(openai, anthropic or google; default openai) and the model from
OPENAI_MODEL, ANTHROPIC_MODEL or GOOGLE_MODEL.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := mustLoadConfig()
		provider := cfg.Summary.Provider
		completer, err := llm.New(cmd.Context(), provider, llm.Settings{
			Model: config.SummaryModel(provider, llm.DefaultModel(provider)),
		})
		if err != nil {
			logging.Named("mcp.summary").Error("creating model", zap.String("provider", provider), zap.Error(err))
			return err
		}

		srv := mcpserver.NewSummaryServer(&mcpserver.Summarizer{
			LLM:       completer,
			MaxChars:  cfg.Summary.MaxChars,
			MaxTokens: cfg.Summary.MaxTokens,
			Log:       logging.Named("mcp.summary"),
		})
		return mcpserver.ServeStdio(srv)
	},
}
