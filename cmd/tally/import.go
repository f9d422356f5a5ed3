package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tallyhq/tally/internal/model"
	"github.com/tallyhq/tally/internal/ofx"
)

func importOFXCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-ofx [files...]",
		Short: "Import transactions from OFX/QFX files",
		Long: `Import financial transactions from OFX or QFX (Quicken) files
exported from your bank.

Examples:
  # Import a single file
  tally import-ofx ~/Downloads/chase_jan_2024.qfx

  # Import everything in a directory
  tally import-ofx ~/Downloads/*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportOFX,
	}
	cmd.Flags().BoolP("dry-run", "d", false, "preview import without saving")
	return cmd
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	var allFiles []string
	for _, pattern := range args {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err == nil {
				allFiles = append(allFiles, pattern)
			} else {
				slog.Warn("no files found matching pattern", "pattern", pattern)
			}
		} else {
			allFiles = append(allFiles, matches...)
		}
	}
	if len(allFiles) == 0 {
		return fmt.Errorf("no files found to import")
	}

	parser := ofx.NewParser()
	var all []model.Transaction
	seen := make(map[string]bool)

	for _, filePath := range allFiles {
		f, err := os.Open(filePath)
		if err != nil {
			slog.Error("failed to open file", "file", filePath, "error", err)
			continue
		}
		txns, err := parser.ParseFile(ctx, f)
		_ = f.Close()
		if err != nil {
			slog.Error("failed to parse file", "file", filePath, "error", err)
			continue
		}

		added := 0
		for _, txn := range txns {
			if txn.ID != "" && seen[txn.ID] {
				continue
			}
			seen[txn.ID] = true
			all = append(all, txn)
			added++
		}
		fmt.Printf("%s: %d transaction(s)\n", filepath.Base(filePath), added)
	}

	if dryRun {
		fmt.Printf("Dry run: would import %d transaction(s)\n", len(all))
		return nil
	}

	a, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	imported, err := a.ledger.ImportTransactions(ctx, all)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d transaction(s) (%d duplicate(s) skipped)\n",
		imported, len(all)-imported)
	return nil
}
