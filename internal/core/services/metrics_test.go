package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
)

func startedState(start time.Time) *sessionState {
	s := &sessionState{}
	s.startSearch(start)
	return s
}

func TestMetricsReporter_Snapshot_NotStarted(t *testing.T) {
	r := NewMetricsReporter(nil, domain.DefaultSearchSettings())

	assert.Nil(t, r.Snapshot("s1", &sessionState{}, time.Now()))
}

func TestMetricsReporter_Snapshot_AllFields(t *testing.T) {
	r := NewMetricsReporter(nil, domain.DefaultSearchSettings())
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	state := startedState(start)
	state.recordLocal(start.Add(40*time.Millisecond), 5)
	state.recordRemoteBatch(start.Add(300*time.Millisecond), 2)
	state.recordRemoteBatch(start.Add(500*time.Millisecond), 1)
	first := thread("t1", "a", "x", 1)
	state.recordFocus(start.Add(2*time.Second), &first)

	snap := r.Snapshot("s1", state, start.Add(5*time.Second))
	require.NotNil(t, snap)

	assert.Equal(t, "s1", snap.SessionID)
	assert.Equal(t, 40*time.Millisecond, *snap.TimeToLocalResults)
	assert.Equal(t, 300*time.Millisecond, *snap.TimeToFirstRemoteResults)
	assert.Equal(t, 2*time.Second, *snap.TimeToFirstSelection)
	assert.Equal(t, 5*time.Second, snap.TotalSessionTime)
	assert.Equal(t, 5, snap.LocalResultsCount)
	assert.Equal(t, 3, snap.RemoteResultsCount)
	assert.Equal(t, 1, snap.FocusedItemCount)
}

func TestMetricsReporter_Snapshot_Caps(t *testing.T) {
	r := NewMetricsReporter(nil, domain.DefaultSearchSettings())
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	state := startedState(start)
	state.recordRemoteBatch(start.Add(15*time.Second), 1)

	snap := r.Snapshot("s1", state, start.Add(90*time.Second))
	require.NotNil(t, snap)

	assert.Equal(t, 10*time.Second, *snap.TimeToFirstRemoteResults)
	assert.Equal(t, 60*time.Second, snap.TotalSessionTime)
}

func TestMetricsReporter_Snapshot_MissingValuesAreNil(t *testing.T) {
	r := NewMetricsReporter(nil, domain.DefaultSearchSettings())
	start := time.Now()

	snap := r.Snapshot("s1", startedState(start), start.Add(time.Second))
	require.NotNil(t, snap)

	assert.Nil(t, snap.TimeToLocalResults)
	assert.Nil(t, snap.TimeToFirstRemoteResults)
	assert.Nil(t, snap.TimeToFirstSelection)
	fields := snap.Fields()
	assert.Nil(t, fields["timeToFirstSelectionMs"])
	assert.Equal(t, int64(1000), fields["totalSessionTimeMs"])
}

func TestMetricsReporter_Report_RecordsAndResets(t *testing.T) {
	sink := &mockSink{}
	r := NewMetricsReporter(sink, domain.DefaultSearchSettings())
	start := time.Now()
	state := startedState(start)
	state.recordLocal(start, 3)

	snap := r.Report(context.Background(), "s1", state, start.Add(time.Second))

	require.NotNil(t, snap)
	require.Equal(t, 1, sink.Count())
	assert.Equal(t, domain.MetricsEventSearchPerformed, sink.events[0])
	assert.Equal(t, 3, sink.fields[0]["localResultsCount"])
	assert.Equal(t, "s1", sink.fields[0]["sessionId"])
	assert.False(t, state.started())

	assert.Nil(t, r.Report(context.Background(), "s1", state, start.Add(2*time.Second)))
	assert.Equal(t, 1, sink.Count())
}

func TestMetricsReporter_Report_SinkErrorIsSwallowed(t *testing.T) {
	sink := &mockSink{err: errBoom}
	r := NewMetricsReporter(sink, domain.DefaultSearchSettings())
	start := time.Now()

	snap := r.Report(context.Background(), "s1", startedState(start), start)

	assert.NotNil(t, snap)
}

func TestMetricsReporter_Report_NotStarted(t *testing.T) {
	sink := &mockSink{}
	r := NewMetricsReporter(sink, domain.DefaultSearchSettings())

	assert.Nil(t, r.Report(context.Background(), "s1", &sessionState{}, time.Now()))
	assert.Zero(t, sink.Count())
}

func TestSessionState_RecordFocus(t *testing.T) {
	start := time.Now()
	s := startedState(start)
	a := thread("a", "x", "x", 1)
	b := thread("b", "x", "x", 1)

	assert.True(t, s.recordFocus(start.Add(time.Second), &a))
	assert.False(t, s.recordFocus(start.Add(2*time.Second), &a))
	assert.True(t, s.recordFocus(start.Add(3*time.Second), &b))
	assert.False(t, s.recordFocus(start.Add(4*time.Second), nil))
	assert.True(t, s.recordFocus(start.Add(5*time.Second), &b))

	assert.Equal(t, 3, s.focusedItemCount)
	assert.Equal(t, start.Add(time.Second), s.firstThreadSelectedAt)
}

func TestSessionState_RecordLocal_FirstOnly(t *testing.T) {
	start := time.Now()
	s := startedState(start)

	assert.True(t, s.recordLocal(start.Add(time.Millisecond), 4))
	assert.False(t, s.recordLocal(start.Add(time.Second), 9))

	assert.Equal(t, 4, s.localResultsCount)
	assert.Equal(t, start.Add(time.Millisecond), s.localResultsReceivedAt)
}
