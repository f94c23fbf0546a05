package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
)

var toolBase = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns threads", func(t *testing.T) {
		search := &mockSearchService{outcome: &domain.SearchOutcome{
			SessionID: "s1",
			Threads: []domain.Thread{
				{ID: "t1", AccountID: "work", Subject: "Report", LastMessageAt: toolBase},
			},
			Completed: true,
		}}
		server, err := NewServer(&Ports{Search: search})
		require.NoError(t, err)

		_, output, err := server.handleSearch(ctx, nil, SearchInput{
			Query: "report", Accounts: []string{"work"}, TimeoutMs: 1500,
		})

		require.NoError(t, err)
		assert.Equal(t, "s1", output.SessionID)
		assert.True(t, output.Completed)
		assert.Equal(t, 1, output.Count)
		assert.Equal(t, "t1", output.Threads[0].ID)
		assert.Equal(t, "2024-03-01T12:00:00Z", output.Threads[0].LastMessageAt)
		assert.Equal(t, "report", search.lastQuery)
		assert.Equal(t, 1500*time.Millisecond, search.lastOpts.Timeout)
	})

	t.Run("falls back to configured accounts", func(t *testing.T) {
		search := &mockSearchService{}
		settings := &mockSettingsService{settings: domain.AppSettings{Accounts: []string{"a", "b"}}}
		server, err := NewServer(&Ports{Search: search, Settings: settings})
		require.NoError(t, err)

		_, _, err = server.handleSearch(ctx, nil, SearchInput{Query: "x"})

		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, search.lastAccounts)
	})

	t.Run("no accounts", func(t *testing.T) {
		server, err := NewServer(&Ports{Search: &mockSearchService{}})
		require.NoError(t, err)

		_, _, err = server.handleSearch(ctx, nil, SearchInput{Query: "x"})

		assert.ErrorIs(t, err, ErrNoAccounts)
	})

	t.Run("applies limit", func(t *testing.T) {
		threads := []domain.Thread{{ID: "t1"}, {ID: "t2"}, {ID: "t3"}}
		search := &mockSearchService{outcome: &domain.SearchOutcome{Threads: threads}}
		server, err := NewServer(&Ports{Search: search})
		require.NoError(t, err)

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "x", Accounts: []string{"a"}, Limit: 2})

		require.NoError(t, err)
		assert.Equal(t, 2, output.Count)
		assert.Equal(t, 3, output.Total)
	})

	t.Run("returns error on search failure", func(t *testing.T) {
		search := &mockSearchService{err: errors.New("search failed")}
		server, err := NewServer(&Ports{Search: search})
		require.NoError(t, err)

		_, _, err = server.handleSearch(ctx, nil, SearchInput{Query: "x", Accounts: []string{"a"}})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "search failed")
	})
}

func TestServer_handleGetThread(t *testing.T) {
	threads := &mockThreadService{threads: []domain.Thread{{ID: "t1", Subject: "Hello"}}}
	server, err := NewServer(&Ports{Search: &mockSearchService{}, Threads: threads})
	require.NoError(t, err)

	_, output, err := server.handleGetThread(context.Background(), nil, GetThreadInput{ID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, "Hello", output.Subject)

	_, _, err = server.handleGetThread(context.Background(), nil, GetThreadInput{ID: "nope"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
