package domain

import "time"

// Configuration keys understood by the settings loader.
const (
	KeyLocalLimit          = "search.local_limit"
	KeyRemoteLatencyCapMs  = "search.remote_latency_cap_ms"
	KeySessionTimeCapMs    = "search.session_time_cap_ms"
	KeyCompletionTimeoutMs = "search.completion_timeout_ms"
	KeyStreamBaseURL       = "stream.base_url"
	KeyStreamToken         = "stream.token"
	KeyAccounts            = "accounts"
	KeyRedisAddr           = "extensions.redis_addr"
	KeyRedisRate           = "extensions.redis_rate"
	KeyFuzzySubjects       = "extensions.fuzzy_subjects"
	KeyDataDir             = "data.dir"
)

// Defaults for SearchSettings.
const (
	DefaultLocalLimit        = 100
	DefaultCompletionTimeout = 15 * time.Second
	DefaultStreamBaseURL     = "ws://127.0.0.1:8787"
	DefaultRedisRate         = 20
)

// SearchSettings holds search behaviour configuration.
type SearchSettings struct {
	// LocalLimit caps the initial local query.
	LocalLimit int

	// RemoteLatencyCap clips the reported time to first remote results.
	RemoteLatencyCap time.Duration

	// SessionTimeCap clips the reported total session time.
	SessionTimeCap time.Duration

	// CompletionTimeout bounds blocking searches (CLI, MCP).
	CompletionTimeout time.Duration
}

// DefaultSearchSettings returns the built-in search settings.
func DefaultSearchSettings() SearchSettings {
	return SearchSettings{
		LocalLimit:        DefaultLocalLimit,
		RemoteLatencyCap:  RemoteLatencyCap,
		SessionTimeCap:    SessionTimeCap,
		CompletionTimeout: DefaultCompletionTimeout,
	}
}

// StreamSettings configures the remote streaming transport.
type StreamSettings struct {
	// BaseURL is the ws:// or wss:// origin of the streaming search server.
	BaseURL string

	// Token is an optional bearer token sent on connect.
	Token string
}

// ExtensionSettings configures the built-in search contributors.
type ExtensionSettings struct {
	// RedisAddr enables the Redis contributor when non-empty.
	RedisAddr string

	// RedisRate limits Redis batches per second.
	RedisRate float64

	// FuzzySubjects enables the fuzzy subject contributor.
	FuzzySubjects bool
}

// AppSettings is the complete application configuration.
type AppSettings struct {
	Search     SearchSettings
	Stream     StreamSettings
	Extensions ExtensionSettings

	// Accounts are the default shard IDs searched when none are given.
	Accounts []string

	// DataDir holds the SQLite cache.
	DataDir string
}

// DefaultAppSettings returns the built-in application settings.
// An empty DataDir selects the store's default location.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Search: DefaultSearchSettings(),
		Stream: StreamSettings{
			BaseURL: DefaultStreamBaseURL,
		},
		Extensions: ExtensionSettings{
			RedisRate:     DefaultRedisRate,
			FuzzySubjects: true,
		},
	}
}
