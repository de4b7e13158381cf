package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matsen/scout/internal/export"
	"github.com/matsen/scout/internal/pdf"
	"github.com/matsen/scout/internal/storage"
)

var (
	papersSearchLimit int
	openReader        string
	papersBibTeX      bool
)

func init() {
	papersSearchCmd.Flags().IntVar(&papersSearchLimit, "limit", 50, "Maximum results")
	papersCmd.PersistentFlags().BoolVar(&papersBibTeX, "bibtex", false, "Print papers as BibTeX entries")
	papersOpenCmd.Flags().StringVar(&openReader, "reader", "system", "PDF reader program")
	papersCmd.AddCommand(papersSearchCmd)
	papersCmd.AddCommand(papersOpenCmd)
	rootCmd.AddCommand(papersCmd)
}

var papersCmd = &cobra.Command{
	Use:   "papers",
	Short: "List the papers downloaded by the last search",
	Args:  cobra.NoArgs,
	RunE:  runPapersList,
}

func runPapersList(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db := mustOpenDatabase(cfg)
	defer db.Close()

	papers, err := db.ListPapers(cmd.Context())
	if err != nil {
		exitWithError(ExitError, "listing papers: %v", err)
	}
	printPapers(papers)
	return nil
}

var papersSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over titles, abstracts and authors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := mustLoadConfig()
		db := mustOpenDatabase(cfg)
		defer db.Close()

		papers, err := db.SearchPapers(cmd.Context(), args[0], papersSearchLimit)
		if err != nil {
			exitWithError(ExitError, "searching papers: %v", err)
		}
		printPapers(papers)
		return nil
	},
}

var papersOpenCmd = &cobra.Command{
	Use:   "open <position>",
	Short: "Open a downloaded paper in a PDF reader",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pos, err := strconv.Atoi(args[0])
		if err != nil {
			exitWithError(ExitError, "invalid position: %s", args[0])
		}

		cfg := mustLoadConfig()
		db := mustOpenDatabase(cfg)
		defer db.Close()

		paper, err := db.GetPaper(cmd.Context(), pos)
		if err != nil {
			exitWithError(ExitError, "loading paper: %v", err)
		}
		if paper == nil {
			exitWithError(ExitDataError, "no paper at position %d", pos)
		}
		if paper.PDFPath == "" {
			exitWithError(ExitDataError, "paper %s was not downloaded", paper.ID)
		}

		if err := (pdf.Viewer{Program: openReader}).Open(paper.PDFPath); err != nil {
			exitWithError(ExitError, "%v", err)
		}
		if humanOutput {
			outputHuman("Opened %s\n", paper.PDFPath)
			return nil
		}
		return outputJSON(StatusResponse{Status: "opened", Path: paper.PDFPath})
	},
}

func printPapers(papers []storage.Paper) {
	if papersBibTeX {
		fmt.Print(export.ToBibTeXList(papers))
		return
	}
	if !humanOutput {
		if papers == nil {
			papers = []storage.Paper{}
		}
		outputJSON(papers)
		return
	}
	if len(papers) == 0 {
		fmt.Println("No papers.")
		return
	}
	for _, p := range papers {
		fmt.Printf("%d. %s  %s\n", p.Position, p.ID, truncateString(p.Title, ListTitleMaxLen))
		if len(p.Authors) > 0 {
			fmt.Printf("   %s\n", formatAuthorsShort(p.Authors, 3))
		}
		if p.Published != "" {
			fmt.Printf("   %s  %s\n", p.Published, p.URL)
		}
	}
}
