package services

import (
	"context"
	"time"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
	"github.com/custodia-labs/threadsearch/internal/core/ports/driven"
	"github.com/custodia-labs/threadsearch/internal/logger"
)

// metricsRecordTimeout bounds how long End waits on a metrics sink.
const metricsRecordTimeout = 5 * time.Second

// MetricsReporter turns a session's accumulated state into a
// MetricsSnapshot and hands it to a sink.
type MetricsReporter struct {
	sink     driven.MetricsSink
	settings domain.SearchSettings
}

// NewMetricsReporter creates a reporter. A nil sink computes snapshots
// without recording them.
func NewMetricsReporter(sink driven.MetricsSink, settings domain.SearchSettings) *MetricsReporter {
	if settings.RemoteLatencyCap <= 0 {
		settings.RemoteLatencyCap = domain.RemoteLatencyCap
	}
	if settings.SessionTimeCap <= 0 {
		settings.SessionTimeCap = domain.SessionTimeCap
	}
	return &MetricsReporter{sink: sink, settings: settings}
}

// Snapshot computes the metrics for state at now. It returns nil when no
// search was started.
func (m *MetricsReporter) Snapshot(sessionID string, state *sessionState, now time.Time) *domain.MetricsSnapshot {
	if !state.started() {
		return nil
	}
	start := state.searchStartedAt

	snap := &domain.MetricsSnapshot{
		SessionID:          sessionID,
		RecordedAt:         now,
		TotalSessionTime:   domain.ClipDuration(now.Sub(start), m.settings.SessionTimeCap),
		LocalResultsCount:  state.localResultsCount,
		RemoteResultsCount: state.remoteResultsCount,
		FocusedItemCount:   state.focusedItemCount,
	}
	if !state.localResultsReceivedAt.IsZero() {
		d := state.localResultsReceivedAt.Sub(start)
		snap.TimeToLocalResults = &d
	}
	if !state.firstRemoteResultsAt.IsZero() {
		d := domain.ClipDuration(state.firstRemoteResultsAt.Sub(start), m.settings.RemoteLatencyCap)
		snap.TimeToFirstRemoteResults = &d
	}
	if !state.firstThreadSelectedAt.IsZero() {
		d := state.firstThreadSelectedAt.Sub(start)
		snap.TimeToFirstSelection = &d
	}
	return snap
}

// Report computes the snapshot, records it and resets state. Nothing is
// emitted when no search was started. Sink failures are logged.
func (m *MetricsReporter) Report(ctx context.Context, sessionID string, state *sessionState, now time.Time) *domain.MetricsSnapshot {
	snap := m.Snapshot(sessionID, state, now)
	state.reset()
	if snap == nil {
		logger.Debug("Session %s never started, no metrics", sessionID)
		return nil
	}
	if m.sink == nil {
		return snap
	}

	ctx, cancel := context.WithTimeout(ctx, metricsRecordTimeout)
	defer cancel()
	if err := m.sink.Record(ctx, domain.MetricsEventSearchPerformed, snap.Fields()); err != nil {
		logger.Warn("Recording metrics for session %s: %v", sessionID, err)
	}
	return snap
}
