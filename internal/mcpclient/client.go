// Package mcpclient connects to MCP tool servers and adapts their tools to
// tools.Definition so an agent graph can call them.
package mcpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/matsen/scout/internal/config"
	"github.com/matsen/scout/internal/logging"
	"github.com/matsen/scout/internal/tools"
)

// ClientName and ClientVersion identify scout during initialization.
const (
	ClientName    = "scout"
	ClientVersion = "1.0.0"
)

// DefaultMaxSteps is the agent step limit used by the MCP client loop.
const DefaultMaxSteps = 30

// LoadConfig reads a config.json server list.
func LoadConfig(path string) (*config.MCPConfig, error) {
	return config.LoadMCPConfig(path)
}

// Session is an initialized connection to one server.
type Session struct {
	Name   string
	Server mcp.Implementation
	Tools  []mcp.Tool

	client *client.Client
}

// Client holds sessions to every configured server and the tools they expose.
type Client struct {
	sessions []*Session
	registry *tools.Registry
	log      *zap.Logger
}

// New returns a client with no sessions.
func New(log *zap.Logger) *Client {
	if log == nil {
		log = logging.Named("mcpclient")
	}
	return &Client{registry: tools.NewRegistry(), log: log}
}

// Connect starts every server in cfg as a stdio subprocess, in name order,
// and registers their tools. On failure every started session is closed.
func Connect(ctx context.Context, cfg *config.MCPConfig) (*Client, error) {
	c := New(nil)
	for _, name := range cfg.ServerNames() {
		sc := cfg.Servers[name]
		mc, err := client.NewStdioMCPClient(sc.Command, sc.EnvList(), sc.Args...)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("starting mcp server %s: %w", name, err)
		}
		if err := c.Attach(ctx, name, mc); err != nil {
			mc.Close()
			c.Close()
			return nil, err
		}
	}
	return c, nil
}

// Attach initializes a started MCP client, lists its tools and registers
// them. The session is owned by c afterwards.
func (c *Client) Attach(ctx context.Context, name string, mc *client.Client) error {
	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: ClientName, Version: ClientVersion}

	initRes, err := mc.Initialize(ctx, initReq)
	if err != nil {
		return fmt.Errorf("initializing mcp server %s: %w", name, err)
	}

	list, err := mc.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return fmt.Errorf("listing tools of %s: %w", name, err)
	}

	sess := &Session{Name: name, Server: initRes.ServerInfo, Tools: list.Tools, client: mc}
	for _, t := range list.Tools {
		def, err := Adapt(mc, t)
		if err != nil {
			return fmt.Errorf("server %s: %w", name, err)
		}
		if err := c.registry.Register(def); err != nil {
			return fmt.Errorf("server %s: %w", name, err)
		}
	}
	c.sessions = append(c.sessions, sess)

	c.log.Info("connected to mcp server",
		zap.String("server", name),
		zap.String("server_name", initRes.ServerInfo.Name),
		zap.Int("tools", len(list.Tools)))
	return nil
}

// Sessions returns the connected sessions in connection order.
func (c *Client) Sessions() []*Session { return c.sessions }

// Registry returns every remote tool.
func (c *Client) Registry() *tools.Registry { return c.registry }

// Close terminates all sessions.
func (c *Client) Close() error {
	var errs []error
	for _, s := range c.sessions {
		if err := s.client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", s.Name, err))
		}
	}
	c.sessions = nil
	return errors.Join(errs...)
}

// Adapt wraps a remote tool as a local definition. Calling it invokes the
// tool on mc and returns the text content; error results become errors.
func Adapt(mc *client.Client, t mcp.Tool) (tools.Definition, error) {
	schema, err := json.Marshal(t.InputSchema)
	if err != nil {
		return tools.Definition{}, fmt.Errorf("encoding schema of %s: %w", t.Name, err)
	}

	name := t.Name
	return tools.Definition{
		Name:        name,
		Description: t.Description,
		InputSchema: schema,
		Function: func(ctx context.Context, input json.RawMessage) (string, error) {
			var args map[string]any
			if len(input) > 0 {
				if err := json.Unmarshal(input, &args); err != nil {
					return "", fmt.Errorf("invalid tool input: %w", err)
				}
			}

			req := mcp.CallToolRequest{}
			req.Params.Name = name
			req.Params.Arguments = args
			res, err := mc.CallTool(ctx, req)
			if err != nil {
				return "", fmt.Errorf("calling %s: %w", name, err)
			}

			text := ResultText(res)
			if res.IsError {
				return "", errors.New(text)
			}
			return text, nil
		},
	}, nil
}

// ResultText joins the text parts of a tool result.
func ResultText(res *mcp.CallToolResult) string {
	var parts []string
	for _, c := range res.Content {
		if tc, ok := mcp.AsTextContent(c); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}
