package domain

import "time"

// Thread is a mail thread as returned by the local cache and remote shards.
// Threads are identified by ID across all sources; the same ID from two
// sources refers to the same thread.
type Thread struct {
	// ID is the stable thread identifier.
	ID string `json:"id"`

	// AccountID is the shard (mail account) the thread belongs to.
	AccountID string `json:"account_id"`

	// Subject is the thread subject line.
	Subject string `json:"subject"`

	// Snippet is a short preview of the latest message.
	Snippet string `json:"snippet,omitempty"`

	// Participants lists the addresses involved in the thread.
	Participants []string `json:"participants,omitempty"`

	// LastMessageAt is the most recent activity timestamp and the sort key
	// for every result view.
	LastMessageAt time.Time `json:"last_message_at"`

	// Unread is true when the thread has unread messages.
	Unread bool `json:"unread,omitempty"`
}

// ThreadIDs returns the IDs of the given threads in order.
func ThreadIDs(threads []Thread) []string {
	ids := make([]string, len(threads))
	for i := range threads {
		ids[i] = threads[i].ID
	}
	return ids
}

// FocusKind identifies the kind of item a focus tracker follows.
type FocusKind string

// Focus kinds.
const (
	// FocusThread tracks the thread currently selected in a result list.
	FocusThread FocusKind = "thread"
)

// ExtensionRole is the role under which extensions register.
type ExtensionRole string

// Extension roles.
const (
	// RoleSearchContributor marks extensions that contribute thread IDs to searches.
	RoleSearchContributor ExtensionRole = "search-contributor"
)

// ImportResult reports one file import into the local cache.
type ImportResult struct {
	Path  string
	Count int
	Err   error
}
