package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
)

var importWatch bool

var importCmd = &cobra.Command{
	Use:   "import <path>",
	Short: "Import threads into the local cache",
	Long: `Imports threads into the local cache searched at the start of each
session. A path may be a single file or a directory, in which case every
.jsonl and .eml file in it is imported.

JSON Lines files hold one thread per line:
  {"id": "t1", "account_id": "work", "subject": "Invoice",
   "participants": ["alice@example.com"],
   "last_message_at": "2024-03-01T10:00:00Z"}

An .eml file holds one message. It is filed under the root of its
References chain, so replies join the thread they answer, and under the
account named by its Delivered-To header.

With --watch the directory is imported once and then watched; files are
re-imported whenever they are written.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVarP(&importWatch, "watch", "w", false, "keep watching the directory for changes")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	path := args[0]

	if threadImporter == nil {
		return errors.New("importer not configured")
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	ctx := cmd.Context()

	if !info.IsDir() {
		if importWatch {
			return errors.New("--watch requires a directory")
		}
		n, err := threadImporter.ImportFile(ctx, path)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}
		cmd.Printf("Imported %d threads from %s\n", n, path)
		return nil
	}

	n, err := threadImporter.ImportDir(ctx, path)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	cmd.Printf("Imported %d threads from %s\n", n, path)

	if !importWatch {
		return nil
	}

	cmd.Printf("Watching %s for changes (ctrl+c to stop)\n", path)
	err = threadImporter.Watch(ctx, path, func(res domain.ImportResult) {
		if res.Err != nil {
			cmd.PrintErrf("Failed to import %s: %v\n", res.Path, res.Err)
			return
		}
		cmd.Printf("Imported %d threads from %s\n", res.Count, res.Path)
	})
	if err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}
