package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
	"github.com/custodia-labs/threadsearch/internal/core/ports/driven"
)

// metricsStore implements driven.MetricsStore.
type metricsStore struct {
	store *Store
	now   func() time.Time
}

var _ driven.MetricsStore = (*metricsStore)(nil)

// Record stores a telemetry event. Unknown fields are ignored.
func (s *metricsStore) Record(ctx context.Context, event string, fields map[string]any) error {
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	sessionID, _ := fields["sessionId"].(string)

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO session_metrics (
			session_id, event, recorded_at,
			time_to_local_results_ms, time_to_first_remote_results_ms, time_to_first_selection_ms,
			total_session_time_ms, local_results_count, remote_results_count, focused_item_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sessionID, event, now().UnixMilli(),
		intField(fields, "timeToLocalResultsMs"),
		intField(fields, "timeToFirstRemoteResultsMs"),
		intField(fields, "timeToFirstSelectionMs"),
		intField(fields, "totalSessionTimeMs").Int64,
		intField(fields, "localResultsCount").Int64,
		intField(fields, "remoteResultsCount").Int64,
		intField(fields, "focusedItemCount").Int64,
	)
	if err != nil {
		return fmt.Errorf("recording metrics: %w", err)
	}
	return nil
}

// ListMetrics returns up to limit recorded sessions, newest first.
// A limit of zero or less returns every row.
func (s *metricsStore) ListMetrics(ctx context.Context, limit int) ([]domain.MetricsSnapshot, error) {
	query := `
		SELECT session_id, recorded_at,
			time_to_local_results_ms, time_to_first_remote_results_ms, time_to_first_selection_ms,
			total_session_time_ms, local_results_count, remote_results_count, focused_item_count
		FROM session_metrics
		WHERE event = ?
		ORDER BY id DESC`
	args := []any{domain.MetricsEventSearchPerformed}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing metrics: %w", err)
	}
	defer rows.Close()

	var out []domain.MetricsSnapshot
	for rows.Next() {
		var (
			m                        domain.MetricsSnapshot
			recordedAt               int64
			local, remote, selection sql.NullInt64
			total                    int64
		)
		if err := rows.Scan(&m.SessionID, &recordedAt, &local, &remote, &selection,
			&total, &m.LocalResultsCount, &m.RemoteResultsCount, &m.FocusedItemCount); err != nil {
			return nil, fmt.Errorf("scanning metrics: %w", err)
		}
		m.RecordedAt = time.UnixMilli(recordedAt).UTC()
		m.TimeToLocalResults = millisToDuration(local)
		m.TimeToFirstRemoteResults = millisToDuration(remote)
		m.TimeToFirstSelection = millisToDuration(selection)
		m.TotalSessionTime = time.Duration(total) * time.Millisecond
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating metrics: %w", err)
	}
	return out, nil
}

// intField reads a numeric field; nil and missing values are NULL.
func intField(fields map[string]any, key string) sql.NullInt64 {
	switch v := fields[key].(type) {
	case int:
		return sql.NullInt64{Int64: int64(v), Valid: true}
	case int64:
		return sql.NullInt64{Int64: v, Valid: true}
	case float64:
		return sql.NullInt64{Int64: int64(v), Valid: true}
	default:
		return sql.NullInt64{}
	}
}

func millisToDuration(v sql.NullInt64) *time.Duration {
	if !v.Valid {
		return nil
	}
	d := time.Duration(v.Int64) * time.Millisecond
	return &d
}
