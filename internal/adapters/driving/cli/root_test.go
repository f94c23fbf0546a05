package cli

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
	"github.com/custodia-labs/threadsearch/internal/core/ports/driving"
)

var testNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func testThreads() []domain.Thread {
	return []domain.Thread{
		{
			ID:            "t2",
			AccountID:     "work",
			Subject:       "Quarterly invoice",
			Snippet:       "Please find attached",
			Participants:  []string{"alice@example.com", "bob@example.com"},
			LastMessageAt: testNow,
			Unread:        true,
		},
		{
			ID:            "t1",
			AccountID:     "home",
			Subject:       "Dinner plans",
			LastMessageAt: testNow.Add(-time.Hour),
		},
	}
}

// mockSearchService records the last blocking search.
type mockSearchService struct {
	mu       sync.Mutex
	threads  []domain.Thread
	err      error
	query    string
	accounts []string
	opts     domain.SearchOptions
}

func (m *mockSearchService) NewSession(query string, accounts []string) (driving.SearchSession, error) {
	return nil, errors.New("sessions not supported in CLI tests")
}

func (m *mockSearchService) Search(
	_ context.Context, query string, accounts []string, opts domain.SearchOptions,
) (*domain.SearchOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.query = query
	m.accounts = accounts
	m.opts = opts
	if m.err != nil {
		return nil, m.err
	}
	threads := make([]domain.Thread, len(m.threads))
	copy(threads, m.threads)
	return &domain.SearchOutcome{
		SessionID: "session-1",
		Query:     query,
		Threads:   threads,
		Completed: true,
	}, nil
}

// mockSettingsService keeps settings in memory.
type mockSettingsService struct {
	settings    domain.AppSettings
	validateErr error
	saveErr     error
	saved       bool
}

func newMockSettingsService() *mockSettingsService {
	s := domain.DefaultAppSettings()
	s.Accounts = []string{"work", "home"}
	return &mockSettingsService{settings: s}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.settings = *settings
	m.saved = true
	return nil
}

func (m *mockSettingsService) SetAccounts(accounts []string) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.settings.Accounts = accounts
	return nil
}

func (m *mockSettingsService) Validate() error {
	return m.validateErr
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

type mockThreadService struct{}

func (m *mockThreadService) Get(_ context.Context, id string) (*domain.Thread, error) {
	for _, t := range testThreads() {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockThreadService) Recent(_ context.Context, limit int) ([]domain.Thread, error) {
	threads := testThreads()
	if limit > 0 && len(threads) > limit {
		threads = threads[:limit]
	}
	return threads, nil
}

type mockMetricsService struct {
	snapshots []domain.MetricsSnapshot
	err       error
	limit     int
}

func (m *mockMetricsService) Recent(_ context.Context, limit int) ([]domain.MetricsSnapshot, error) {
	m.limit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.snapshots, nil
}

// mockImporter reports fixed counts and replays watch results.
type mockImporter struct {
	count    int
	err      error
	files    []string
	dirs     []string
	watched  []string
	watchRes []domain.ImportResult
}

func (m *mockImporter) ImportFile(_ context.Context, path string) (int, error) {
	m.files = append(m.files, path)
	return m.count, m.err
}

func (m *mockImporter) ImportDir(_ context.Context, dir string) (int, error) {
	m.dirs = append(m.dirs, dir)
	return m.count, m.err
}

func (m *mockImporter) Watch(_ context.Context, dir string, onImport func(domain.ImportResult)) error {
	m.watched = append(m.watched, dir)
	for _, res := range m.watchRes {
		onImport(res)
	}
	return nil
}

// setupTestServices installs mock services and resets flag state. The
// returned function restores the previous services.
func setupTestServices() func() {
	oldSearch := searchService
	oldSettings := settingsService
	oldThreads := threadService
	oldMetrics := metricsService
	oldImporter := threadImporter

	searchService = &mockSearchService{threads: testThreads()}
	settingsService = newMockSettingsService()
	threadService = &mockThreadService{}
	metricsService = &mockMetricsService{}
	threadImporter = &mockImporter{count: 2}

	resetFlags()

	return func() {
		searchService = oldSearch
		settingsService = oldSettings
		threadService = oldThreads
		metricsService = oldMetrics
		threadImporter = oldImporter
		resetFlags()
	}
}

func resetFlags() {
	searchAccounts = nil
	searchLimit = 20
	searchJSON = false
	searchTimeout = 0
	importWatch = false
	metricsLimit = 10
	metricsJSON = false
	tuiAccounts = nil
}
