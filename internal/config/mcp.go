package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

// DefaultMCPConfigFile is the client configuration read by `scout client`.
const DefaultMCPConfigFile = "config.json"

// ErrNoMCPServers is returned when config.json declares no servers.
var ErrNoMCPServers = errors.New("no mcpServers configured")

// MCPConfig is the remote tool client configuration:
//
//	{"mcpServers": {"search": {"command": "scout", "args": ["mcp", "search"]}}}
type MCPConfig struct {
	Servers map[string]MCPServerConfig `json:"mcpServers"`
}

// MCPServerConfig describes how to launch one stdio tool server.
type MCPServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// LoadMCPConfig reads and validates an MCP client configuration file.
func LoadMCPConfig(path string) (*MCPConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mcp config: %w", err)
	}

	var cfg MCPConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing mcp config: %w", err)
	}

	if len(cfg.Servers) == 0 {
		return nil, ErrNoMCPServers
	}
	for name, s := range cfg.Servers {
		if s.Command == "" {
			return nil, fmt.Errorf("mcp server %q: command is required", name)
		}
	}
	return &cfg, nil
}

// ServerNames returns the configured server names in sorted order.
func (c *MCPConfig) ServerNames() []string {
	names := make([]string, 0, len(c.Servers))
	for name := range c.Servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EnvList flattens the server environment into KEY=VALUE pairs, sorted by key.
func (s MCPServerConfig) EnvList() []string {
	keys := make([]string, 0, len(s.Env))
	for k := range s.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+s.Env[k])
	}
	return out
}
