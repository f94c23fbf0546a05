package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the streaming server, search limits and the
built-in search extensions.

Use subcommands to show the settings or run the interactive wizard.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure all settings step by step.`,
	RunE:  runSettingsWizard,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Search]")
	cmd.Printf("  Local limit: %d\n", settings.Search.LocalLimit)
	cmd.Printf("  Completion timeout: %s\n", settings.Search.CompletionTimeout)
	cmd.Printf("  Remote latency cap: %s\n", settings.Search.RemoteLatencyCap)
	cmd.Printf("  Session time cap: %s\n", settings.Search.SessionTimeCap)
	cmd.Println()

	cmd.Println("[Stream]")
	cmd.Printf("  Base URL: %s\n", settings.Stream.BaseURL)
	if settings.Stream.Token != "" {
		cmd.Printf("  Token: %s\n", maskAPIKey(settings.Stream.Token))
	} else {
		cmd.Printf("  Token: (not set)\n")
	}
	cmd.Println()

	cmd.Println("[Accounts]")
	if len(settings.Accounts) == 0 {
		cmd.Println("  (none)")
	} else {
		cmd.Printf("  %s\n", strings.Join(settings.Accounts, ", "))
	}
	cmd.Println()

	cmd.Println("[Extensions]")
	if settings.Extensions.RedisAddr != "" {
		cmd.Printf("  Redis: %s (%.0f batches/s)\n", settings.Extensions.RedisAddr, settings.Extensions.RedisRate)
	} else {
		cmd.Println("  Redis: disabled")
	}
	cmd.Printf("  Fuzzy subjects: %s\n", yesNo(settings.Extensions.FuzzySubjects))
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'threadsearch settings wizard' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("threadsearch Settings Wizard")
	cmd.Println("============================")
	cmd.Println()

	in := cmd.InOrStdin()
	reader := bufio.NewReader(in)

	cmd.Println("Step 1: Streaming Server")
	cmd.Println("------------------------")
	cmd.Printf("Enter base URL [%s]: ", settings.Stream.BaseURL)
	if v := readLine(reader); v != "" {
		settings.Stream.BaseURL = v
	}
	cmd.Print("Enter access token (blank to keep): ")
	if v := readPassword(in, reader); v != "" {
		settings.Stream.Token = v
	}
	cmd.Println()
	cmd.Println()

	cmd.Println("Step 2: Accounts")
	cmd.Println("----------------")
	cmd.Printf("Enter account IDs, space separated [%s]: ", strings.Join(settings.Accounts, " "))
	if v := readLine(reader); v != "" {
		settings.Accounts = strings.Fields(v)
	}
	cmd.Println()

	cmd.Println("Step 3: Extensions")
	cmd.Println("------------------")
	cmd.Printf("Enter Redis address, '-' to disable [%s]: ", settings.Extensions.RedisAddr)
	switch v := readLine(reader); v {
	case "":
	case "-":
		settings.Extensions.RedisAddr = ""
	default:
		settings.Extensions.RedisAddr = v
	}
	cmd.Printf("Match subjects fuzzily? (y/n) [%s]: ", yesNo(settings.Extensions.FuzzySubjects))
	settings.Extensions.FuzzySubjects = parseYesNo(readLine(reader), settings.Extensions.FuzzySubjects)
	cmd.Println()

	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("All settings are valid and saved.")
	}

	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseYesNo(input string, defaultVal bool) bool {
	switch strings.ToLower(input) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	default:
		return defaultVal
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// readPassword reads without echo when in is a terminal, otherwise it
// falls back to reader.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
