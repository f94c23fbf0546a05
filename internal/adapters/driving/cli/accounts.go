package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage the default accounts",
	Long: `Accounts are the shards searched when no --account flag is given.
Each account is streamed from the remote search server in its own
subscription.`,
	RunE: runAccountsList,
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the default accounts",
	RunE:  runAccountsList,
}

var accountsSetCmd = &cobra.Command{
	Use:   "set <id>...",
	Short: "Replace the default accounts",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAccountsSet,
}

func init() {
	accountsCmd.AddCommand(accountsListCmd)
	accountsCmd.AddCommand(accountsSetCmd)
	rootCmd.AddCommand(accountsCmd)
}

func runAccountsList(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	if len(settings.Accounts) == 0 {
		cmd.Println("No accounts configured.")
		cmd.Println("Run 'threadsearch accounts set <id>...' to add some.")
		return nil
	}

	for _, id := range settings.Accounts {
		cmd.Println(id)
	}
	return nil
}

func runAccountsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	accounts := make([]string, 0, len(args))
	seen := make(map[string]bool, len(args))
	for _, arg := range args {
		id := strings.TrimSpace(arg)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		accounts = append(accounts, id)
	}
	if len(accounts) == 0 {
		return errors.New("no account IDs given")
	}

	if err := settingsService.SetAccounts(accounts); err != nil {
		return fmt.Errorf("failed to save accounts: %w", err)
	}

	cmd.Printf("Default accounts set to: %s\n", strings.Join(accounts, ", "))
	return nil
}
