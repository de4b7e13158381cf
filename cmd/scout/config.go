package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/matsen/scout/internal/config"
)

func init() {
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect scout configuration",
}

// activeConfigPath is the file loadConfig reads.
func activeConfigPath() string {
	if configPath != "" {
		return config.ExpandPath(configPath)
	}
	return config.GlobalConfigPath()
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := activeConfigPath()
		if humanOutput {
			fmt.Println(path)
			return nil
		}
		return outputJSON(StatusResponse{Status: "ok", Path: path})
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := redacted(mustLoadConfig())
		if !humanOutput {
			return outputJSON(cfg)
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			exitWithError(ExitError, "encoding config: %v", err)
		}
		fmt.Print(string(data))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective configuration to the config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := activeConfigPath()
		if path == "" {
			exitWithError(ExitConfigError, "cannot determine config location")
		}
		if err := mustLoadConfig().Save(path); err != nil {
			exitWithError(ExitError, "%v", err)
		}
		if humanOutput {
			outputHuman("Wrote %s\n", path)
			return nil
		}
		return outputJSON(StatusResponse{Status: "written", Path: path})
	},
}

// redacted returns a copy of cfg with backend passwords masked.
func redacted(cfg *config.Config) *config.Config {
	c := *cfg
	if c.Vector.Password != "" {
		c.Vector.Password = "********"
	}
	if c.Memory.Password != "" {
		c.Memory.Password = "********"
	}
	return &c
}
