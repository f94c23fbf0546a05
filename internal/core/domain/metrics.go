package domain

import "time"

// MetricsEventSearchPerformed is the event name under which session
// telemetry is recorded.
const MetricsEventSearchPerformed = "search-performed"

// Reporting caps applied to durations before they are emitted.
const (
	RemoteLatencyCap = 10 * time.Second
	SessionTimeCap   = 60 * time.Second
)

// MetricsSnapshot is the telemetry for one search session. It is computed
// once at session end and never modified afterwards.
type MetricsSnapshot struct {
	// SessionID identifies the session.
	SessionID string `json:"session_id"`

	// RecordedAt is when the snapshot was computed.
	RecordedAt time.Time `json:"recorded_at"`

	// TimeToLocalResults is nil when no local result arrived.
	TimeToLocalResults *time.Duration `json:"time_to_local_results,omitempty"`

	// TimeToFirstRemoteResults is nil when no remote batch arrived.
	// Clipped to the remote latency cap.
	TimeToFirstRemoteResults *time.Duration `json:"time_to_first_remote_results,omitempty"`

	// TimeToFirstSelection is nil when nothing was focused.
	TimeToFirstSelection *time.Duration `json:"time_to_first_selection,omitempty"`

	// TotalSessionTime is clipped to the session time cap.
	TotalSessionTime time.Duration `json:"total_session_time"`

	LocalResultsCount  int `json:"local_results_count"`
	RemoteResultsCount int `json:"remote_results_count"`
	FocusedItemCount   int `json:"focused_item_count"`
}

// Fields flattens the snapshot into the field map accepted by metrics
// sinks. Missing durations are reported as nil.
func (m *MetricsSnapshot) Fields() map[string]any {
	return map[string]any{
		"sessionId":                  m.SessionID,
		"timeToLocalResultsMs":       durationMillis(m.TimeToLocalResults),
		"timeToFirstRemoteResultsMs": durationMillis(m.TimeToFirstRemoteResults),
		"timeToFirstSelectionMs":     durationMillis(m.TimeToFirstSelection),
		"totalSessionTimeMs":         m.TotalSessionTime.Milliseconds(),
		"localResultsCount":          m.LocalResultsCount,
		"remoteResultsCount":         m.RemoteResultsCount,
		"focusedItemCount":           m.FocusedItemCount,
	}
}

func durationMillis(d *time.Duration) any {
	if d == nil {
		return nil
	}
	return d.Milliseconds()
}

// ClipDuration truncates d to limit for reporting.
func ClipDuration(d, limit time.Duration) time.Duration {
	if d > limit {
		return limit
	}
	return d
}
