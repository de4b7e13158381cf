package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/scout/internal/agent"
	"github.com/matsen/scout/internal/chatbot"
	"github.com/matsen/scout/internal/config"
	"github.com/matsen/scout/internal/memory"
	"github.com/matsen/scout/internal/storage"
	"github.com/matsen/scout/internal/tools"
)

var (
	historyThread string
	historyExport string
	memoryThread  string
)

func init() {
	historyCmd.Flags().StringVar(&historyThread, "thread", chatbot.DefaultThread, "Conversation thread id")
	historyCmd.Flags().StringVar(&historyExport, "export", "", "Write the full thread to a JSONL file")
	memoryClearCmd.Flags().StringVar(&memoryThread, "thread", chatbot.DefaultThread, "Conversation thread id")
	memoryImportCmd.Flags().StringVar(&memoryThread, "thread", chatbot.DefaultThread, "Conversation thread id")

	memoryCmd.AddCommand(memoryClearCmd)
	memoryCmd.AddCommand(memoryImportCmd)
	memoryCmd.AddCommand(memoryThreadsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(memoryCmd)
}

// mustOpenMemory opens the configured conversation store, exits on error.
func mustOpenMemory(cfg *config.Config, db *storage.DB) memory.Store {
	if !cfg.Memory.Enabled {
		exitWithError(ExitConfigError, "conversation memory is disabled")
	}
	store, err := memory.Open(cfg.Memory, db)
	if err != nil {
		exitWithError(ExitConfigError, "opening memory: %v", err)
	}
	return store
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the user and assistant messages of a thread",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := mustLoadConfig()
		db := mustOpenDatabase(cfg)
		defer db.Close()
		store := mustOpenMemory(cfg, db)
		defer store.Close()

		if historyExport != "" {
			msgs, err := store.Load(ctx, historyThread)
			if err != nil {
				exitWithError(ExitError, "loading thread: %v", err)
			}
			rows, err := memory.EncodeMessages(msgs)
			if err != nil {
				exitWithError(ExitError, "%v", err)
			}
			if err := storage.WriteJSONL(historyExport, rows); err != nil {
				exitWithError(ExitError, "%v", err)
			}
		}

		bot, err := chatbot.New(chatbot.Options{Model: noModel, Memory: store})
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		history, err := bot.History(ctx, historyThread)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}

		if !humanOutput {
			return outputJSON(history)
		}
		if len(history) == 0 {
			fmt.Println("No history yet.")
			return nil
		}
		for _, h := range history {
			fmt.Printf("%s: %s\n\n", h.Role, wrapText(h.Content, TextWrapWidth, "  "))
		}
		return nil
	},
}

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Manage conversation memory",
}

var memoryClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget a conversation thread",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := mustLoadConfig()
		db := mustOpenDatabase(cfg)
		defer db.Close()
		store := mustOpenMemory(cfg, db)
		defer store.Close()

		if err := store.Clear(cmd.Context(), memoryThread); err != nil {
			exitWithError(ExitError, "clearing thread: %v", err)
		}
		if humanOutput {
			outputHuman("Chat memory cleared for thread %s\n", memoryThread)
			return nil
		}
		return outputJSON(StatusResponse{Status: "cleared", Thread: memoryThread})
	},
}

var memoryImportCmd = &cobra.Command{
	Use:   "import <file.jsonl>",
	Short: "Replace a thread with messages from a JSONL export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := storage.ReadJSONL(args[0])
		if err != nil {
			exitWithError(ExitDataError, "%v", err)
		}
		msgs, err := memory.DecodeMessages(rows)
		if err != nil {
			exitWithError(ExitDataError, "%v", err)
		}

		cfg := mustLoadConfig()
		db := mustOpenDatabase(cfg)
		defer db.Close()
		store := mustOpenMemory(cfg, db)
		defer store.Close()

		if err := store.Save(cmd.Context(), memoryThread, msgs); err != nil {
			exitWithError(ExitError, "saving thread: %v", err)
		}
		if humanOutput {
			outputHuman("Imported %d messages into thread %s\n", len(msgs), memoryThread)
			return nil
		}
		return outputJSON(StatusResponse{Status: "imported", Thread: memoryThread, Count: len(msgs)})
	},
}

var memoryThreadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "List stored conversation threads",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := mustLoadConfig()
		db := mustOpenDatabase(cfg)
		defer db.Close()
		store := mustOpenMemory(cfg, db)
		defer store.Close()

		threads, err := store.Threads(cmd.Context())
		if err != nil {
			exitWithError(ExitError, "listing threads: %v", err)
		}
		if threads == nil {
			threads = []string{}
		}
		if !humanOutput {
			return outputJSON(threads)
		}
		for _, t := range threads {
			fmt.Println(t)
		}
		return nil
	},
}

// noModel satisfies chatbot.New for commands that only read history.
var noModel = agent.ChatModelFunc(func(context.Context, []agent.Message, []tools.Definition) (agent.Message, error) {
	return agent.Message{}, errors.New("no chat model configured")
})
