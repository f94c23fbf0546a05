package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/threadsearch/internal/adapters/driven/config/file"
	"github.com/custodia-labs/threadsearch/internal/adapters/driven/extensions"
	"github.com/custodia-labs/threadsearch/internal/adapters/driven/extensions/fuzzysubject"
	"github.com/custodia-labs/threadsearch/internal/adapters/driven/extensions/redisfeed"
	"github.com/custodia-labs/threadsearch/internal/adapters/driven/focus"
	"github.com/custodia-labs/threadsearch/internal/adapters/driven/importer"
	"github.com/custodia-labs/threadsearch/internal/adapters/driven/metrics"
	"github.com/custodia-labs/threadsearch/internal/adapters/driven/query"
	"github.com/custodia-labs/threadsearch/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/threadsearch/internal/adapters/driven/stream"
	"github.com/custodia-labs/threadsearch/internal/adapters/driving/cli"
	"github.com/custodia-labs/threadsearch/internal/core/domain"
	"github.com/custodia-labs/threadsearch/internal/core/services"
	"github.com/custodia-labs/threadsearch/internal/logger"
)

// version is set at build time.
var version = "dev"

// Environment overrides.
const (
	envConfigDir = "THREADSEARCH_CONFIG_DIR"
	envLogFile   = "THREADSEARCH_LOG_FILE"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if path := os.Getenv(envLogFile); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not open log file: %v\n", err)
		} else {
			defer f.Close()
			logger.SetOutput(f)
		}
	}

	cleanup, err := wire(os.Getenv(envConfigDir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer cleanup()

	if err := cli.Execute(ctx); err != nil {
		return 1
	}
	return 0
}

// wire builds the adapters and services and injects them into the CLI.
// The returned function releases what wire opened.
func wire(configDir string) (func(), error) {
	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	if err := settingsService.Validate(); err != nil {
		logger.Warn("Invalid settings: %v", err)
	}

	store, err := sqlite.NewStore(settings.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening thread cache: %w", err)
	}
	closers := []func() error{store.Close}

	threads := store.ThreadStore()
	metricsStore := store.MetricsStore()

	registry := extensions.NewRegistry()
	if settings.Extensions.RedisAddr != "" {
		feed := redisfeed.NewFromAddr(settings.Extensions.RedisAddr, settings.Extensions.RedisRate)
		if err := registry.Register(domain.RoleSearchContributor, feed); err != nil {
			logger.Warn("Registering %s contributor: %v", feed.Name(), err)
		}
		closers = append(closers, feed.Close)
	}
	if settings.Extensions.FuzzySubjects {
		fuzzy := fuzzysubject.New(threads, 0)
		if err := registry.Register(domain.RoleSearchContributor, fuzzy); err != nil {
			logger.Warn("Registering %s contributor: %v", fuzzy.Name(), err)
		}
	}

	tracker := focus.NewTracker()

	searchService := services.NewSearchService(
		query.NewTranslator(),
		store.QueryExecutor(),
		stream.NewConnectorFromSettings(settings.Stream),
		settings.Search,
	)
	searchService.SetExtensionRegistry(registry)
	searchService.SetFocusTracker(tracker)
	searchService.SetThreadCache(threads)
	searchService.SetMetricsSink(metrics.MultiSink{metricsStore, metrics.LogSink{}})

	threadService := services.NewThreadService(threads)
	metricsService := services.NewMetricsService(metricsStore)

	cli.SetVersion(version)
	cli.SetSearchService(searchService)
	cli.SetSettingsService(settingsService)
	cli.SetThreadService(threadService)
	cli.SetMetricsService(metricsService)
	cli.SetThreadImporter(importer.New(threads))
	cli.SetTUIConfig(&cli.TUIConfig{
		SearchService:   searchService,
		SettingsService: settingsService,
		ThreadService:   threadService,
		Focus:           tracker,
	})

	return func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("Shutdown: %v", err)
			}
		}
	}, nil
}
