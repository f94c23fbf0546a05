// Package domain defines the core business entities for threadsearch.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Thread: A mail thread as shown in search results
//   - Filter: A structured filter produced by the query translator
//   - ThreadQuery: A request to the local query executor
//   - StreamStatus: The lifecycle state of a remote shard connection
//   - MetricsSnapshot: The telemetry record of one search session
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
