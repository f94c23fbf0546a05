package services

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
	"github.com/custodia-labs/threadsearch/internal/core/ports/driven"
	"github.com/custodia-labs/threadsearch/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings, filling unset keys with
// defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Search: domain.SearchSettings{
			LocalLimit:        s.getInt(domain.KeyLocalLimit, defaults.Search.LocalLimit),
			RemoteLatencyCap:  s.getMillis(domain.KeyRemoteLatencyCapMs, defaults.Search.RemoteLatencyCap),
			SessionTimeCap:    s.getMillis(domain.KeySessionTimeCapMs, defaults.Search.SessionTimeCap),
			CompletionTimeout: s.getMillis(domain.KeyCompletionTimeoutMs, defaults.Search.CompletionTimeout),
		},
		Stream: domain.StreamSettings{
			BaseURL: s.getString(domain.KeyStreamBaseURL, defaults.Stream.BaseURL),
			Token:   s.configStore.GetString(domain.KeyStreamToken),
		},
		Extensions: domain.ExtensionSettings{
			RedisAddr:     s.configStore.GetString(domain.KeyRedisAddr),
			RedisRate:     s.getFloat(domain.KeyRedisRate, defaults.Extensions.RedisRate),
			FuzzySubjects: s.getBool(domain.KeyFuzzySubjects, defaults.Extensions.FuzzySubjects),
		},
		Accounts: s.configStore.GetStringSlice(domain.KeyAccounts),
		DataDir:  s.configStore.GetString(domain.KeyDataDir),
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{domain.KeyLocalLimit, settings.Search.LocalLimit},
		{domain.KeyRemoteLatencyCapMs, settings.Search.RemoteLatencyCap.Milliseconds()},
		{domain.KeySessionTimeCapMs, settings.Search.SessionTimeCap.Milliseconds()},
		{domain.KeyCompletionTimeoutMs, settings.Search.CompletionTimeout.Milliseconds()},
		{domain.KeyStreamBaseURL, settings.Stream.BaseURL},
		{domain.KeyRedisAddr, settings.Extensions.RedisAddr},
		{domain.KeyRedisRate, settings.Extensions.RedisRate},
		{domain.KeyFuzzySubjects, settings.Extensions.FuzzySubjects},
		{domain.KeyAccounts, settings.Accounts},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if settings.Stream.Token != "" {
		if err := s.configStore.Set(domain.KeyStreamToken, settings.Stream.Token); err != nil {
			return fmt.Errorf("save %s: %w", domain.KeyStreamToken, err)
		}
	}
	if settings.DataDir != "" {
		if err := s.configStore.Set(domain.KeyDataDir, settings.DataDir); err != nil {
			return fmt.Errorf("save %s: %w", domain.KeyDataDir, err)
		}
	}

	return nil
}

// SetAccounts replaces the default accounts. Blank and duplicate IDs are
// dropped.
func (s *SettingsService) SetAccounts(accounts []string) error {
	cleaned := make([]string, 0, len(accounts))
	seen := make(map[string]struct{}, len(accounts))
	for _, a := range accounts {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		cleaned = append(cleaned, a)
	}
	if len(cleaned) == 0 {
		return domain.ErrNoShards
	}
	if err := s.configStore.Set(domain.KeyAccounts, cleaned); err != nil {
		return fmt.Errorf("save accounts: %w", err)
	}
	return nil
}

// Validate checks the current settings.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if settings.Search.LocalLimit < 0 {
		return fmt.Errorf("%w: %s must not be negative", domain.ErrInvalidInput, domain.KeyLocalLimit)
	}
	u, err := url.Parse(settings.Stream.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, domain.KeyStreamBaseURL, err)
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return fmt.Errorf("%w: %s: unsupported scheme %q", domain.ErrInvalidInput, domain.KeyStreamBaseURL, u.Scheme)
	}
	if settings.Extensions.RedisRate < 0 {
		return fmt.Errorf("%w: %s must not be negative", domain.ErrInvalidInput, domain.KeyRedisRate)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val := s.configStore.GetFloat(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getMillis(key string, defaultVal time.Duration) time.Duration {
	ms := s.configStore.GetInt(key)
	if ms <= 0 {
		return defaultVal
	}
	return time.Duration(ms) * time.Millisecond
}
