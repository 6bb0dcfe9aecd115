// Package mcp provides an MCP (Model Context Protocol) server for ppsim.
// It lets an agent start simulation runs and query stored results.
package mcp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/kalden/ppsim/internal/config"
	"github.com/kalden/ppsim/internal/ratelimit"
	"github.com/kalden/ppsim/internal/store"
)

// Server wraps the MCP SDK server and provides ppsim-specific functionality.
type Server struct {
	server       *sdk.Server
	store        store.ResultStore
	ownsStore    bool
	base         *config.Config
	logger       *slog.Logger
	toolLimiters ratelimit.ToolLimiters
	auditLogger  *AuditLogger

	// runMu admits one simulation run at a time.
	runMu sync.Mutex
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "ppsim")
	Version string // Server version

	// Experiment is the configuration runs start from. Tool arguments
	// override individual fields of a copy.
	Experiment *config.Config

	// Store holds runs and results. When nil the store named by Experiment
	// is opened and closed with the server.
	Store store.ResultStore

	// AuditDir receives audit.jsonl. Empty disables auditing.
	AuditDir string

	// Logger receives run logs. Stdout belongs to the protocol, so the
	// default discards.
	Logger *slog.Logger
}

// NewServer creates a new MCP server with ppsim tools.
func NewServer(cfg *Config) (*Server, error) {
	if cfg.Experiment == nil {
		return nil, fmt.Errorf("no experiment configuration")
	}

	s := &Server{
		base:         cfg.Experiment,
		store:        cfg.Store,
		logger:       cfg.Logger,
		toolLimiters: ratelimit.NewToolLimiters(),
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.store == nil {
		st, err := store.Open(cfg.Experiment.DatabasePath())
		if err != nil {
			return nil, fmt.Errorf("failed to open results store: %w", err)
		}
		s.store = st
		s.ownsStore = true
	}
	if cfg.AuditDir != "" {
		s.auditLogger = NewAuditLogger(cfg.AuditDir, s.logger)
	}

	s.server = sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, &sdk.StdioTransport{})
}

// Serve runs the server on transport until the client disconnects or ctx is
// cancelled.
func (s *Server) Serve(ctx context.Context, transport sdk.Transport) error {
	return s.server.Run(ctx, transport)
}

// Close closes the server and releases resources.
func (s *Server) Close() error {
	var err error
	if s.ownsStore {
		err = s.store.Close()
	}
	if aerr := s.auditLogger.Close(); err == nil {
		err = aerr
	}
	return err
}
