package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query     string   `json:"query" jsonschema:"the mail search query, e.g. 'from:alice report is:unread'"`
	Accounts  []string `json:"accounts,omitempty" jsonschema:"account ids to search (default: configured accounts)"`
	TimeoutMs int      `json:"timeout_ms,omitempty" jsonschema:"how long to wait for remote accounts in milliseconds"`
	Limit     int      `json:"limit,omitempty" jsonschema:"maximum number of threads to return (default 25)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	SessionID string         `json:"session_id"`
	Threads   []ThreadOutput `json:"threads"`
	Count     int            `json:"count"`
	Total     int            `json:"total"`
	Completed bool           `json:"completed"`
}

// ThreadOutput represents a single thread.
type ThreadOutput struct {
	ID            string   `json:"id"`
	AccountID     string   `json:"account_id"`
	Subject       string   `json:"subject"`
	Snippet       string   `json:"snippet,omitempty"`
	Participants  []string `json:"participants,omitempty"`
	LastMessageAt string   `json:"last_message_at"`
	Unread        bool     `json:"unread,omitempty"`
}

// GetThreadInput is the input schema for the get_thread tool.
type GetThreadInput struct {
	ID string `json:"id" jsonschema:"the thread id"`
}

const defaultToolLimit = 25

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search mail threads across the local cache and every remote account",
	}, s.handleSearch)

	if s.ports.Threads != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "get_thread",
			Description: "Fetch one cached mail thread by id",
		}, s.handleGetThread)
	}
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	accounts := input.Accounts
	if len(accounts) == 0 && s.ports.Settings != nil {
		settings, err := s.ports.Settings.Get()
		if err != nil {
			return nil, SearchOutput{}, fmt.Errorf("loading settings: %w", err)
		}
		accounts = settings.Accounts
	}
	if len(accounts) == 0 {
		return nil, SearchOutput{}, ErrNoAccounts
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultToolLimit
	}

	opts := domain.SearchOptions{Timeout: time.Duration(input.TimeoutMs) * time.Millisecond}
	outcome, err := s.ports.Search.Search(ctx, input.Query, accounts, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	threads := outcome.Threads
	if len(threads) > limit {
		threads = threads[:limit]
	}
	output := SearchOutput{
		SessionID: outcome.SessionID,
		Threads:   make([]ThreadOutput, len(threads)),
		Count:     len(threads),
		Total:     len(outcome.Threads),
		Completed: outcome.Completed,
	}
	for i := range threads {
		output.Threads[i] = toThreadOutput(&threads[i])
	}

	return nil, output, nil
}

// handleGetThread handles the get_thread tool invocation.
func (s *Server) handleGetThread(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetThreadInput,
) (*mcp.CallToolResult, ThreadOutput, error) {
	t, err := s.ports.Threads.Get(ctx, input.ID)
	if err != nil {
		return nil, ThreadOutput{}, err
	}
	return nil, toThreadOutput(t), nil
}

func toThreadOutput(t *domain.Thread) ThreadOutput {
	return ThreadOutput{
		ID:            t.ID,
		AccountID:     t.AccountID,
		Subject:       t.Subject,
		Snippet:       t.Snippet,
		Participants:  t.Participants,
		LastMessageAt: t.LastMessageAt.UTC().Format(time.RFC3339),
		Unread:        t.Unread,
	}
}
