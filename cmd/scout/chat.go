package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/scout/internal/agent"
	"github.com/matsen/scout/internal/chatbot"
	"github.com/matsen/scout/internal/config"
	"github.com/matsen/scout/internal/logging"
	"github.com/matsen/scout/internal/mcpclient"
	"github.com/matsen/scout/internal/memory"
)

// Interactive prompts.
const (
	chatPrompt   = "You: "
	clientPrompt = "\nEnter your query (or type 'exit' to quit): "
	exitMessage  = "Exiting."
)

// DefaultClientModel drives the MCP client agent.
const DefaultClientModel = "gpt-4o"

var (
	chatThread   string
	clientConfig string
	clientModel  string
)

func init() {
	chatCmd.Flags().StringVar(&chatThread, "thread", chatbot.DefaultThread, "Conversation thread id")
	clientCmd.Flags().StringVar(&clientConfig, "config", config.DefaultMCPConfigFile, "MCP server configuration")
	clientCmd.Flags().StringVar(&clientModel, "model", DefaultClientModel, "OpenAI model driving the client agent")
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(clientCmd)
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the research agent in the terminal",
	Long: `Chat with the research agent. The agent can search arXiv
(arxiv_search) and answer from the downloaded papers (llm_summarizer).
Type 'exit' to quit.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := mustLoadConfig()
	a := mustBuildApp(ctx, cfg)
	defer a.Close()

	bot, err := a.chatBot()
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	return replLoop(os.Stdin, os.Stdout, chatPrompt, func(line string) {
		fmt.Printf("Bot: %s\n", bot.Chat(ctx, line, chatThread))
	})
}

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Run an agent over the tools of configured MCP servers",
	Long: `Start every server listed in config.json as a stdio subprocess
and chat with an agent that can call their tools.

Example config.json:
  {"mcpServers": {
     "search":  {"command": "scout", "args": ["mcp", "search"]},
     "summary": {"command": "scout", "args": ["mcp", "summary"]}}}`,
	Args: cobra.NoArgs,
	RunE: runClient,
}

func runClient(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logging.Named("client")

	mcpCfg, err := mcpclient.LoadConfig(clientConfig)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	conn, err := mcpclient.Connect(ctx, mcpCfg)
	if err != nil {
		exitWithError(ExitNetwork, "%v", err)
	}
	defer conn.Close()

	model, err := newChatModel("openai", clientModel)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	graph := agent.NewGraph(model, conn.Registry(),
		agent.WithMaxSteps(mcpclient.DefaultMaxSteps),
		agent.WithCheckpointer(memory.NewInMemoryStore()),
		agent.WithLogger(log.Named("graph")),
	)

	return replLoop(os.Stdin, os.Stdout, clientPrompt, func(query string) {
		log.Info("sending query", zap.String("query", query))
		result, err := runQuery(ctx, graph, query)
		if err != nil {
			log.Error("error during query", zap.Error(err))
			fmt.Printf("Error during query: %v\n", err)
			return
		}
		log.Info("received result", zap.String("result", result))
		fmt.Printf("\nResult:\n%s\n", result)
	})
}

// runQuery runs one turn on the client thread and returns the final answer.
func runQuery(ctx context.Context, graph *agent.Graph, query string) (string, error) {
	msgs, err := graph.Invoke(ctx, chatbot.DefaultThread, agent.UserMessage(query))
	if err != nil {
		return "", err
	}
	if len(msgs) == 0 {
		return "", nil
	}
	return msgs[len(msgs)-1].Content, nil
}

// replLoop prompts on out, reads lines from in and passes each non-exit
// line to handle. It returns at EOF or when the user types exit.
func replLoop(in io.Reader, out io.Writer, prompt string, handle func(line string)) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := scanner.Text()
		if isExit(line) {
			logging.Named("repl").Info("exiting")
			fmt.Fprintln(out, exitMessage)
			return nil
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		handle(line)
	}
}

func isExit(line string) bool {
	return strings.ToLower(strings.TrimSpace(line)) == "exit"
}
