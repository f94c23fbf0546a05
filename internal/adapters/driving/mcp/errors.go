// Package mcp provides an MCP (Model Context Protocol) server adapter for threadsearch.
// It lets AI assistants run mail searches and read cached threads.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")

// ErrNoAccounts is returned when a search names no account and no default
// accounts are configured.
var ErrNoAccounts = errors.New("mcp: no accounts given and none configured")
