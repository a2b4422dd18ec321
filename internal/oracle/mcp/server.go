// Package mcp exposes the oracle engine as MCP tools.
package mcp

import (
	"context"
	"fmt"
	"log"

	"github.com/louisbranch/oracles/internal/oracle/dataset"
	"github.com/louisbranch/oracles/internal/oracle/engine"
	"github.com/louisbranch/oracles/internal/oracle/history"
	"github.com/louisbranch/oracles/internal/oracle/shortcut"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	serverName    = "Oracles MCP"
	serverVersion = "0.1.0"
)

// Config wires the collaborators the tools use.
type Config struct {
	Engine    *engine.Engine
	Shortcuts *shortcut.Registry
	// History is optional. When set, every produced entry is saved and
	// oracle_log reads from it.
	History  history.Store
	Region   dataset.Region
	Language string
	Logger   *log.Logger
}

// Server hosts the oracle tools.
type Server struct {
	cfg       Config
	mcpServer *mcp.Server
}

// New registers every tool on a fresh MCP server.
func New(cfg Config) (*Server, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if cfg.Shortcuts == nil {
		cfg.Shortcuts, _ = shortcut.NewRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	s := &Server{
		cfg:       cfg,
		mcpServer: mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil),
	}
	mcp.AddTool(s.mcpServer, RollTool(), s.rollHandler())
	mcp.AddTool(s.mcpServer, ShortcutTool(), s.shortcutHandler())
	mcp.AddTool(s.mcpServer, FindTool(), s.findHandler())
	mcp.AddTool(s.mcpServer, ShortcutsTool(), s.shortcutsHandler())
	mcp.AddTool(s.mcpServer, LogTool(), s.logHandler())
	return s, nil
}

// Run serves over stdio until ctx is canceled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.serveWithTransport(ctx, &mcp.StdioTransport{})
}

func (s *Server) serveWithTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	if err := s.mcpServer.Run(ctx, transport); err != nil && ctx.Err() == nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

// record persists entry when a history store is configured. Failures are
// logged; the roll itself already happened.
func (s *Server) record(ctx context.Context, entry engine.LogEntry) {
	if s.cfg.History == nil {
		return
	}
	if err := s.cfg.History.SaveEntry(ctx, history.FromLogEntry(entry)); err != nil {
		s.cfg.Logger.Printf("save history entry %s: %v", entry.ID, err)
	}
}
