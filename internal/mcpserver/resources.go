package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/testpilot-ai/testpilot/internal/engine"
)

func resultContents(uri string, result *engine.TestResult) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) readLatestResult(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if s.deps.Store == nil {
		return nil, fmt.Errorf("no run archive configured")
	}
	result, err := s.deps.Store.LatestResult()
	if err != nil {
		return nil, err
	}
	return resultContents(request.Params.URI, result)
}

func (s *Server) readResultByID(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if s.deps.Store == nil {
		return nil, fmt.Errorf("no run archive configured")
	}
	uri := request.Params.URI
	id := uri[strings.LastIndex(uri, "/")+1:]
	if id == "" {
		return nil, fmt.Errorf("missing test id in %s", uri)
	}
	result, err := s.deps.Store.Result(id)
	if err != nil {
		return nil, err
	}
	return resultContents(uri, result)
}
