package cli

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
)

func testSnapshot() domain.MetricsSnapshot {
	local := 40 * time.Millisecond
	remote := 1250 * time.Millisecond
	return domain.MetricsSnapshot{
		SessionID:                "session-1",
		RecordedAt:               testNow,
		TimeToLocalResults:       &local,
		TimeToFirstRemoteResults: &remote,
		TotalSessionTime:         5 * time.Second,
		LocalResultsCount:        3,
		RemoteResultsCount:       7,
	}
}

func TestMetricsCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mock := metricsService.(*mockMetricsService)
	mock.snapshots = []domain.MetricsSnapshot{testSnapshot()}

	out, err := runRoot(t, "metrics", "-n", "5")

	require.NoError(t, err)
	assert.Equal(t, 5, mock.limit)
	assert.Contains(t, out, "session-1")
	assert.Contains(t, out, "Local results:   3 (40ms)")
	assert.Contains(t, out, "Remote results:  7 (first after 1.25s)")
	assert.Contains(t, out, "Focused threads: 0 (first after n/a)")
	assert.Contains(t, out, "Session time:    5s")
}

func TestMetricsCmd_JSON(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	metricsService.(*mockMetricsService).snapshots = []domain.MetricsSnapshot{testSnapshot()}

	out, err := runRoot(t, "metrics", "--json")

	require.NoError(t, err)
	assert.Contains(t, out, `"session_id": "session-1"`)
	assert.Contains(t, out, `"remote_results_count": 7`)
}

func TestMetricsCmd_Empty(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := runRoot(t, "metrics")

	require.NoError(t, err)
	assert.Contains(t, out, "No sessions recorded.")
	assert.Equal(t, 10, metricsService.(*mockMetricsService).limit)
}

func TestMetricsCmd_Error(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	metricsService.(*mockMetricsService).err = errors.New("db closed")

	_, err := runRoot(t, "metrics")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list metrics")
}

func TestMetricsCmd_NotConfigured(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	metricsService = nil

	_, err := runRoot(t, "metrics")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics service not configured")
}

func TestFormatLatency(t *testing.T) {
	d := 1500 * time.Microsecond
	assert.Equal(t, "n/a", formatLatency(nil))
	assert.Equal(t, "2ms", formatLatency(&d))
}
