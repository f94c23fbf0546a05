package mcp

import (
	"context"
	"errors"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
	"github.com/custodia-labs/threadsearch/internal/core/ports/driving"
)

var errNotImplemented = errors.New("not implemented")

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	outcome      *domain.SearchOutcome
	err          error
	lastQuery    string
	lastAccounts []string
	lastOpts     domain.SearchOptions
}

func (m *mockSearchService) NewSession(_ string, _ []string) (driving.SearchSession, error) {
	return nil, errNotImplemented
}

func (m *mockSearchService) Search(
	_ context.Context,
	query string,
	accounts []string,
	opts domain.SearchOptions,
) (*domain.SearchOutcome, error) {
	m.lastQuery = query
	m.lastAccounts = accounts
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	if m.outcome == nil {
		return &domain.SearchOutcome{}, nil
	}
	return m.outcome, nil
}

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	settings domain.AppSettings
	err      error
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	if m.err != nil {
		return nil, m.err
	}
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(_ *domain.AppSettings) error {
	return m.err
}

func (m *mockSettingsService) SetAccounts(_ []string) error {
	return m.err
}

func (m *mockSettingsService) Validate() error {
	return m.err
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// mockThreadService is a mock implementation of driving.ThreadService.
type mockThreadService struct {
	threads []domain.Thread
	err     error
}

func (m *mockThreadService) Get(_ context.Context, id string) (*domain.Thread, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.threads {
		if m.threads[i].ID == id {
			t := m.threads[i]
			return &t, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockThreadService) Recent(_ context.Context, _ int) ([]domain.Thread, error) {
	return m.threads, m.err
}

// mockMetricsService is a mock implementation of driving.MetricsService.
type mockMetricsService struct {
	snaps []domain.MetricsSnapshot
	err   error
}

func (m *mockMetricsService) Recent(_ context.Context, _ int) ([]domain.MetricsSnapshot, error) {
	return m.snaps, m.err
}
