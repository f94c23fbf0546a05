// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for a search session to run:
//
//   - QueryTranslator: Turns query text into a structured filter
//   - ThreadQueryExecutor: Runs local queries against the thread cache
//   - StreamConnector: Opens one streaming search connection per account
//
// # Optional Interfaces
//
// These can be nil - the session degrades gracefully:
//
//   - ExtensionRegistry: Source of search contributor extensions. Without it no
//     extension feeds are subscribed.
//   - FocusTracker: Reports the thread the user has selected. Without it no
//     selection telemetry is recorded.
//   - MetricsSink: Receives session telemetry. Without it metrics are computed
//     and logged but not persisted.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
