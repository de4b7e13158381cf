package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/matsen/scout/internal/webui"
)

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, :8501)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web chat UI",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := mustLoadConfig()
	a := mustBuildApp(ctx, cfg)
	defer a.Close()

	bot, err := a.chatBot()
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	addr := serveAddr
	if addr == "" {
		addr = cfg.Web.Addr
	}
	if humanOutput {
		outputHuman("Serving Scout Agent on %s\n", addr)
	} else {
		outputJSON(StatusResponse{Status: "serving", Path: addr})
	}

	err = webui.NewServer(addr, bot).Start(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
