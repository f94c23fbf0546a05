// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The search pipeline is built from:
//
//   - ResultSet: the ordered, deduplicated thread view
//   - LocalSearchSource: queries against the local thread cache
//   - RemoteStreamSource: one streaming connection per account
//   - ExtensionFeed: one subscription per search contributor
//   - SearchSession: the aggregator that merges all of the above
//   - MetricsReporter: session telemetry
//
// Services are pure Go with no CGO or external dependencies.
package services
