// Package mcpserver exposes the testing agents over the Model Context
// Protocol. One server instance represents one agent type (web or api)
// with that agent's fixed tool and resource catalog.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/testpilot-ai/testpilot/internal/engine"
	"github.com/testpilot-ai/testpilot/internal/observability"
	"github.com/testpilot-ai/testpilot/internal/plan"
	"github.com/testpilot-ai/testpilot/internal/provider"
	"github.com/testpilot-ai/testpilot/internal/store"
)

const serverVersion = "0.1.0"

// AgentType selects which tool catalog a server exposes.
type AgentType string

const (
	AgentWeb AgentType = "web"
	AgentAPI AgentType = "api"
)

// Deps are the collaborators a Server drives. Browser is required for
// the web agent, API for the api agent; Store backs the resource
// catalog and may be nil (resources then report not found).
type Deps struct {
	Planner  *plan.Planner
	Browser  provider.Browser
	API      provider.HTTPClient
	Policies engine.Policies
	Store    *store.Store
	Logger   *observability.Logger
}

// Server is an MCP server for one agent type.
type Server struct {
	agent AgentType
	deps  Deps
	mcp   *server.MCPServer

	mu   sync.Mutex
	last *provider.Response
}

func New(agent AgentType, deps Deps) *Server {
	s := &Server{
		agent: agent,
		deps:  deps,
		mcp: server.NewMCPServer(
			fmt.Sprintf("%s-testing-agent", agent),
			serverVersion,
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	if agent == AgentWeb {
		s.registerWebTools()
		s.registerWebResources()
	} else {
		s.registerAPITools()
		s.registerAPIResources()
	}
	return s
}

// Start serves the MCP protocol on stdio until the peer disconnects.
func (s *Server) Start() error {
	return server.ServeStdio(s.mcp)
}

// runPlan executes a plan to completion, archives the final result and
// returns it.
func (s *Server) runPlan(ctx context.Context, domain plan.Domain, p plan.Plan) (*engine.TestResult, error) {
	var runner *engine.Runner
	if domain == plan.DomainWeb {
		runner = engine.NewWebRunner(s.deps.Browser, s.deps.Policies, s.deps.Logger)
	} else {
		runner = engine.NewAPIRunner(s.deps.API, s.deps.Policies, s.deps.Logger)
	}

	var final *engine.TestResult
	for evt := range runner.Run(ctx, p) {
		if evt.Results != nil {
			final = evt.Results
		}
	}
	if final == nil {
		return nil, fmt.Errorf("run produced no result")
	}
	if s.deps.Store != nil {
		if err := s.deps.Store.SaveResult(final); err != nil {
			return nil, fmt.Errorf("archive result: %w", err)
		}
	}
	return final, nil
}

func resultJSON(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
