package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/scout/internal/clipboard"
	"github.com/matsen/scout/internal/llm"
	"github.com/matsen/scout/internal/logging"
	"github.com/matsen/scout/internal/pdf"
	"github.com/matsen/scout/internal/prompts"
)

var (
	searchMaxResults int
	summarizeChars   int
	copyResult       bool
)

func init() {
	searchCmd.Flags().IntVarP(&searchMaxResults, "max-results", "n", 0, "Papers to download (default from config, 3)")
	summarizeCmd.Flags().IntVar(&summarizeChars, "max-chars", 0, "Characters of extracted text to send (default from config, 10000)")
	askCmd.Flags().BoolVar(&copyResult, "copy", false, "Also copy the answer to the clipboard")
	summarizeCmd.Flags().BoolVar(&copyResult, "copy", false, "Also copy the summary to the clipboard")
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(summarizeCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Download recent arXiv papers and rebuild the index",
	Long: `Search arXiv for the most recent papers matching query, download their
PDFs into the papers directory (clearing earlier ones) and rebuild the vector
index from their text.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := mustLoadConfig()
	a := mustBuildApp(ctx, cfg)
	defer a.Close()

	result := a.research.ArxivSearch(ctx, args[0], searchMaxResults)
	printResult(result)
	return nil
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the indexed papers",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := mustLoadConfig()
	a := mustBuildApp(ctx, cfg)
	defer a.Close()

	answer := a.research.LLMSummarizer(ctx, args[0])
	copyIfRequested(cmd, answer)
	printResult(answer)
	return nil
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize <pdf>",
	Short: "Summarize a local PDF in plain language",
	Args:  cobra.ExactArgs(1),
	RunE:  runSummarize,
}

func runSummarize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := mustLoadConfig()

	path := args[0]
	if _, err := os.Stat(path); err != nil {
		exitWithError(ExitDataError, "PDF file does not exist: %s", path)
	}
	text, err := pdf.ExtractText(path, 0)
	if err != nil {
		exitWithError(ExitDataError, "extracting text: %v", err)
	}

	maxChars := summarizeChars
	if maxChars <= 0 {
		maxChars = cfg.Summary.MaxChars
	}
	completer, err := llm.New(ctx, cfg.Chat.Provider, llm.Settings{Model: chatModelName(cfg)})
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	summary, err := completer.Complete(ctx, llm.Request{Prompt: prompts.Summary(llm.Truncate(text, maxChars))})
	if err != nil {
		exitWithError(ExitProvider, "summarizing: %v", err)
	}
	copyIfRequested(cmd, summary)

	if humanOutput {
		fmt.Println(wrapText(summary, TextWrapWidth, ""))
		return nil
	}
	return outputJSON(map[string]string{"path": path, "summary": summary})
}

func printResult(result string) {
	if humanOutput {
		fmt.Println(result)
		return
	}
	outputJSON(ResultResponse{Result: result})
}

// copyIfRequested copies text when --copy is set. Failures only warn.
func copyIfRequested(cmd *cobra.Command, text string) {
	if !copyResult {
		return
	}
	if err := clipboard.Copy(cmd.Context(), text); err != nil {
		logging.Named("clipboard").Warn("copy failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "warning: could not copy to clipboard: %v\n", err)
	}
}
