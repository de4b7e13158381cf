// Package main provides the scout CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matsen/scout/internal/config"
	"github.com/matsen/scout/internal/logging"
	"github.com/matsen/scout/internal/storage"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

// configPath overrides the config file location.
var configPath string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()
	if err != nil {
		// SilenceErrors is set, so print here.
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "scout",
	Short: "Research chatbot over recent arXiv papers",
	Long: `scout fetches recent arXiv papers, indexes their text and answers
questions about them with a language model.

Core features:
  - Agent chat that searches arXiv and summarizes the downloaded papers
  - Web chat UI with per-user profile and conversation memory
  - MCP tool servers for arXiv search and PDF summarization, plus a client

Settings come from ~/.config/scout/config.yml, .env and the environment.
All commands output JSON by default; use --human for readable output.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&configPath, "config-file", "", "Config file (default ~/.config/scout/config.yml)")
	rootCmd.Version = Version
}

// setup loads .env and starts file logging before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(); err != nil {
		return fmt.Errorf("loading .env: %w", err)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return logging.Init(logging.Config{
		Level:       cfg.LogLevel,
		Format:      "console",
		OutputPaths: []string{cfg.LogFile},
	})
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(config.ExpandPath(configPath))
	}
	return config.Load()
}

// mustLoadConfig loads configuration, exits on error.
func mustLoadConfig() *config.Config {
	cfg, err := loadConfig()
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}

// mustOpenDatabase opens the SQLite catalog, exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenDatabase(cfg *config.Config) *storage.DB {
	db, err := storage.OpenDB(cfg.DBPath)
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	return db
}
