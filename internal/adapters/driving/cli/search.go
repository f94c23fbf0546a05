package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
)

const defaultTableWidth = 100

var (
	searchAccounts []string
	searchLimit    int
	searchJSON     bool
	searchTimeout  time.Duration
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search threads across accounts",
	Long: `Runs a search session against the local cache and every selected
account, waits for the remote streams to finish and prints the merged
results, most recent first.

Accounts default to the configured list; use --account to override.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringSliceVarP(&searchAccounts, "account", "a", nil, "account to search (repeatable)")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 20, "maximum number of results to print (0 = all)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().DurationVar(&searchTimeout, "timeout", 0, "how long to wait for remote results (0 = configured default)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if searchService == nil {
		return errors.New("search service not configured")
	}

	accounts, err := resolveAccounts(searchAccounts)
	if err != nil {
		return fmt.Errorf("resolving accounts: %w", err)
	}

	outcome, err := searchService.Search(cmd.Context(), query, accounts, domain.SearchOptions{
		Timeout: searchTimeout,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchLimit > 0 && len(outcome.Threads) > searchLimit {
		outcome.Threads = outcome.Threads[:searchLimit]
	}

	if searchJSON {
		return outputSearchJSON(cmd, outcome)
	}
	return outputSearchTable(cmd, outcome)
}

func outputSearchJSON(cmd *cobra.Command, outcome *domain.SearchOutcome) error {
	data, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, outcome *domain.SearchOutcome) error {
	if len(outcome.Threads) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	width := outputWidth(cmd)

	cmd.Println("Results:")
	cmd.Println()
	for i := range outcome.Threads {
		t := &outcome.Threads[i]

		subject := t.Subject
		if subject == "" {
			subject = "(no subject)"
		}
		if t.Unread {
			subject = "* " + subject
		}

		cmd.Printf("  [%d] %s\n", i+1, ansi.Truncate(subject, width-8, "…"))
		cmd.Printf("      %s · %s\n", t.AccountID, t.LastMessageAt.Local().Format("2006-01-02 15:04"))
		if len(t.Participants) > 0 {
			cmd.Printf("      %s\n", ansi.Truncate(strings.Join(t.Participants, ", "), width-6, "…"))
		}
		if t.Snippet != "" {
			cmd.Printf("      %s\n", ansi.Truncate(t.Snippet, width-6, "…"))
		}
		cmd.Println()
	}

	if !outcome.Completed {
		cmd.Println("Note: some accounts did not finish before the timeout.")
	}
	return nil
}

// outputWidth returns the terminal width when writing to a terminal.
func outputWidth(cmd *cobra.Command) int {
	f, ok := cmd.OutOrStdout().(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return defaultTableWidth
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w < 20 {
		return defaultTableWidth
	}
	return w
}
