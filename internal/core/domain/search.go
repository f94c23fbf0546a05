package domain

import (
	"strings"
	"time"
)

// FilterExpr is a filter expression accepted by the local query executor.
// It is either a structured *Filter or a plain-text *TextFilter fallback.
type FilterExpr interface {
	// Describe returns a human-readable form for logging.
	Describe() string
}

// FieldMatch constrains one thread field to contain a value.
type FieldMatch struct {
	// Field is one of FieldFrom, FieldTo, FieldSubject.
	Field string

	// Value is the substring to look for.
	Value string

	// Negated excludes threads matching the constraint.
	Negated bool
}

// Fields understood by the query translator.
const (
	FieldFrom    = "from"
	FieldTo      = "to"
	FieldSubject = "subject"
)

// Filter is the structured form of a search query.
type Filter struct {
	// Terms are free-text words matched against the full-text index.
	Terms []string

	// Phrases are quoted multi-word strings matched as a unit.
	Phrases []string

	// Excluded are terms prefixed with '-' that must not match.
	Excluded []string

	// Fields are fielded constraints such as from:, to: and subject:.
	Fields []FieldMatch

	// Accounts restricts results to the named accounts (in:<account>).
	Accounts []string

	// Unread filters on read state when non-nil (is:unread / is:read).
	Unread *bool
}

// Describe implements FilterExpr.
func (f *Filter) Describe() string {
	parts := make([]string, 0, len(f.Terms)+len(f.Phrases)+len(f.Fields)+2)
	parts = append(parts, f.Terms...)
	for _, p := range f.Phrases {
		parts = append(parts, `"`+p+`"`)
	}
	for _, e := range f.Excluded {
		parts = append(parts, "-"+e)
	}
	for _, fm := range f.Fields {
		prefix := ""
		if fm.Negated {
			prefix = "-"
		}
		parts = append(parts, prefix+fm.Field+":"+fm.Value)
	}
	for _, a := range f.Accounts {
		parts = append(parts, "in:"+a)
	}
	if f.Unread != nil {
		if *f.Unread {
			parts = append(parts, "is:unread")
		} else {
			parts = append(parts, "is:read")
		}
	}
	return strings.Join(parts, " ")
}

// IsEmpty reports whether the filter places no constraint on results.
func (f *Filter) IsEmpty() bool {
	return len(f.Terms) == 0 && len(f.Phrases) == 0 && len(f.Excluded) == 0 &&
		len(f.Fields) == 0 && len(f.Accounts) == 0 && f.Unread == nil
}

// TextFilter is the generic substring match used when a query cannot be
// translated into a structured Filter.
type TextFilter struct {
	Text string
}

// Describe implements FilterExpr.
func (t *TextFilter) Describe() string {
	return "text(" + t.Text + ")"
}

// OrderBy names a result ordering supported by the executor.
type OrderBy string

// Orderings.
const (
	// OrderLastMessageDesc sorts by most recent activity first.
	OrderLastMessageDesc OrderBy = "last_message_at_desc"
)

// ThreadQuery is one request to the local query executor.
type ThreadQuery struct {
	// Filter is the expression to match. Nil matches every thread.
	Filter FilterExpr

	// IDs scopes the query to the given thread IDs when non-empty.
	IDs []string

	// Distinct removes duplicate rows by thread ID.
	Distinct bool

	// AccountID applies a single-account equality filter when non-empty.
	AccountID string

	// OrderBy is the result ordering.
	OrderBy OrderBy

	// Limit caps the number of rows. Zero means no cap.
	Limit int
}

// SearchOptions configures a blocking search run by the search service.
type SearchOptions struct {
	// Timeout bounds how long to wait for all shards to finish.
	// Zero uses the configured completion timeout.
	Timeout time.Duration
}

// SearchOutcome is the final state of a blocking search run.
type SearchOutcome struct {
	// SessionID identifies the session that produced the outcome.
	SessionID string `json:"session_id"`

	// Query is the query text.
	Query string `json:"query"`

	// Threads is the final result snapshot.
	Threads []Thread `json:"threads"`

	// Completed is true when every shard reached a terminal status
	// before the run ended.
	Completed bool `json:"completed"`

	// Metrics is the telemetry reported at session end, if any.
	Metrics *MetricsSnapshot `json:"metrics,omitempty"`
}
