// Package metrics provides metrics sinks that log or fan out events.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/threadsearch/internal/core/ports/driven"
	"github.com/custodia-labs/threadsearch/internal/logger"
)

// LogSink writes every event to the verbose logger.
type LogSink struct{}

// Ensure sinks implement the interface.
var (
	_ driven.MetricsSink = LogSink{}
	_ driven.MetricsSink = MultiSink{}
)

// Record implements driven.MetricsSink.
func (LogSink) Record(_ context.Context, event string, fields map[string]any) error {
	logger.Info("metrics %s %s", event, FormatFields(fields))
	return nil
}

// FormatFields renders fields as sorted key=value pairs. Nil values are
// shown as "-".
func FormatFields(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		v := fields[k]
		if v == nil {
			parts[i] = k + "=-"
			continue
		}
		parts[i] = fmt.Sprintf("%s=%v", k, v)
	}
	return strings.Join(parts, " ")
}

// MultiSink records every event to each of its sinks. One failing sink
// does not stop the others.
type MultiSink []driven.MetricsSink

// Record implements driven.MetricsSink.
func (m MultiSink) Record(ctx context.Context, event string, fields map[string]any) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Record(ctx, event, fields); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
