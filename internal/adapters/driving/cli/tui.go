package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/threadsearch/internal/adapters/driving/tui"
	"github.com/custodia-labs/threadsearch/internal/adapters/driving/tui/views/search"
	"github.com/custodia-labs/threadsearch/internal/core/ports/driving"
)

// TUIConfig holds configuration for the TUI command.
type TUIConfig struct {
	SearchService   driving.SearchService
	SettingsService driving.SettingsService
	ThreadService   driving.ThreadService

	// Focus receives the selected thread. Optional.
	Focus search.Focuser
}

// tuiConfig holds the current TUI configuration.
var tuiConfig *TUIConfig

var tuiAccounts []string

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui [query]",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface.

Results update live while remote accounts stream. Selecting a thread in
the list reports it as focused; submitting a new query ends the running
session first.

Controls:
  Enter      - Search / open thread
  ↑/k, ↓/j   - Navigate results
  ctrl+p/n   - Query history
  / or n     - New search
  Esc        - Back / end search
  ?          - Toggle help
  q          - Quit`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTUI,
}

// SetTUIConfig sets the configuration for the TUI command.
func SetTUIConfig(config *TUIConfig) {
	tuiConfig = config
}

func init() {
	tuiCmd.Flags().StringSliceVarP(&tuiAccounts, "account", "a", nil, "account to search (repeatable)")
	rootCmd.AddCommand(tuiCmd)
}

// buildTUIPorts maps the configured services onto TUI ports, falling back
// to the services injected for the other commands.
func buildTUIPorts() *tui.Ports {
	ports := tui.NewPorts(searchService, settingsService, threadService)
	if tuiConfig == nil {
		return ports
	}
	if tuiConfig.SearchService != nil {
		ports.Search = tuiConfig.SearchService
	}
	if tuiConfig.SettingsService != nil {
		ports.Settings = tuiConfig.SettingsService
	}
	if tuiConfig.ThreadService != nil {
		ports.Threads = tuiConfig.ThreadService
	}
	ports.Focus = tuiConfig.Focus
	return ports
}

func runTUI(cmd *cobra.Command, args []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panicked: %v", r)
		}
	}()

	app, err := tui.NewApp(buildTUIPorts())
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	app.WithContext(cmd.Context())
	if len(tuiAccounts) > 0 {
		app.WithAccounts(tuiAccounts)
	}
	if len(args) == 1 {
		app.WithQuery(args[0])
	}

	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
