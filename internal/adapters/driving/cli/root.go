// Package cli provides the threadsearch command line interface built on
// cobra. Services are injected by main through the Set* functions before
// Execute is called.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
	"github.com/custodia-labs/threadsearch/internal/core/ports/driving"
	"github.com/custodia-labs/threadsearch/internal/logger"
)

// version is overridden at build time with -ldflags "-X ...cli.version=".
var version = "dev"

// ThreadImporter loads thread files into the local cache.
type ThreadImporter interface {
	ImportFile(ctx context.Context, path string) (int, error)
	ImportDir(ctx context.Context, dir string) (int, error)
	Watch(ctx context.Context, dir string, onImport func(domain.ImportResult)) error
}

// Injected services.
var (
	searchService   driving.SearchService
	settingsService driving.SettingsService
	threadService   driving.ThreadService
	metricsService  driving.MetricsService
	threadImporter  ThreadImporter
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "threadsearch",
	Short: "Search mail threads across accounts",
	Long: `threadsearch searches mail threads in the local cache and on remote
streaming servers at the same time. Local results appear first and remote
results are merged in as each account streams them.

Query syntax:
  invoice march        threads containing both words
  "quarterly report"   exact phrase
  -draft               exclude a word
  from:alice to:bob    sender and recipient
  subject:invoice      subject only (-subject: to exclude)
  in:work is:unread    account and read state`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// SetSearchService sets the search service used by search, tui and mcp.
func SetSearchService(svc driving.SearchService) {
	searchService = svc
}

// SetSettingsService sets the settings service.
func SetSettingsService(svc driving.SettingsService) {
	settingsService = svc
}

// SetThreadService sets the cached thread reader.
func SetThreadService(svc driving.ThreadService) {
	threadService = svc
}

// SetMetricsService sets the metrics reader.
func SetMetricsService(svc driving.MetricsService) {
	metricsService = svc
}

// SetThreadImporter sets the importer used by the import command.
func SetThreadImporter(im ThreadImporter) {
	threadImporter = im
}

// resolveAccounts returns the explicit accounts, or the configured
// defaults when none were given.
func resolveAccounts(explicit []string) ([]string, error) {
	if len(explicit) > 0 {
		return explicit, nil
	}
	if settingsService == nil {
		return nil, domain.ErrNoShards
	}
	settings, err := settingsService.Get()
	if err != nil {
		return nil, err
	}
	if len(settings.Accounts) == 0 {
		return nil, domain.ErrNoShards
	}
	return settings.Accounts, nil
}
