// Package mcpserver exposes the Orchestrator API (§6) as Model Context
// Protocol tools, grounded on the teacher's
// controlplane/mcpserver.MCPServer wiring shape.
package mcpserver

import (
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/tabsentry/engine/internal/engine"
	"github.com/tabsentry/engine/internal/model"
)

// Version is injected from the daemon's build metadata.
var Version = "dev"

// RuleLookup resolves a rule id to its current definition. Rule storage
// is a collaborator responsibility (spec §1 Out of scope); the daemon
// wires this to whatever backs its rule store.
type RuleLookup func(ruleID string) (model.Rule, bool)

// Server exposes run_rule, run_rules, and preview_rule as MCP tools
// over an Orchestrator.
type Server struct {
	server       *mcp.Server
	handler      http.Handler
	orchestrator *engine.Orchestrator
	lookup       RuleLookup
	logger       *zap.Logger
}

// New constructs the MCP server surface. A nil logger defaults to a
// no-op logger.
func New(orchestrator *engine.Orchestrator, lookup RuleLookup, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	impl := Version
	if impl == "" {
		impl = "dev"
	}

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "tabsentry",
		Version: impl,
	}, nil)

	s := &Server{
		server:       srv,
		orchestrator: orchestrator,
		lookup:       lookup,
		logger:       logger.Named("mcp"),
	}
	s.registerTools()
	s.handler = mcp.NewSSEHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	return s
}

// Handler returns the HTTP SSE transport handler mounted at /mcp.
func (s *Server) Handler() http.Handler {
	if s == nil {
		return http.NotFoundHandler()
	}
	return s.handler
}
