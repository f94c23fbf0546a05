package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for threadsearch resources.
	uriScheme = "threadsearch://"

	recentResourceLimit = 50
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	if s.ports.Threads != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "threads/recent",
			Name:        "recent-threads",
			Description: "Most recently active cached threads",
			MIMEType:    "application/json",
		}, s.handleRecentThreadsResource)

		s.server.AddResourceTemplate(&mcp.ResourceTemplate{
			URITemplate: uriScheme + "threads/{threadId}",
			Name:        "thread",
			Description: "One cached thread",
			MIMEType:    "application/json",
		}, s.handleThreadResource)
	}

	if s.ports.Metrics != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "metrics",
			Name:        "session-metrics",
			Description: "Telemetry of recent search sessions",
			MIMEType:    "application/json",
		}, s.handleMetricsResource)
	}
}

// handleRecentThreadsResource returns the most recent cached threads.
func (s *Server) handleRecentThreadsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	threads, err := s.ports.Threads.Recent(ctx, recentResourceLimit)
	if err != nil {
		return nil, fmt.Errorf("listing threads: %w", err)
	}

	out := make([]ThreadOutput, len(threads))
	for i := range threads {
		out[i] = toThreadOutput(&threads[i])
	}
	return jsonResource(req.Params.URI, out)
}

// handleThreadResource returns one cached thread.
func (s *Server) handleThreadResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract threadId from URI: threadsearch://threads/{threadId}
	id := extractThreadID(req.Params.URI)
	if id == "" || id == "recent" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	t, err := s.ports.Threads.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting thread: %w", err)
	}
	return jsonResource(req.Params.URI, toThreadOutput(t))
}

// handleMetricsResource returns recent session telemetry.
func (s *Server) handleMetricsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	snaps, err := s.ports.Metrics.Recent(ctx, recentResourceLimit)
	if err != nil {
		return nil, err
	}
	if snaps == nil {
		snaps = []domain.MetricsSnapshot{}
	}
	return jsonResource(req.Params.URI, snaps)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractThreadID extracts the thread ID from a URI like threadsearch://threads/{threadId}.
func extractThreadID(uri string) string {
	const prefix = uriScheme + "threads/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	return strings.TrimPrefix(uri, prefix)
}
