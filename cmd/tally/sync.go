package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tallyhq/tally/internal/dates"
)

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch transactions from the bank and categorize new ones",
		RunE:  runSync,
	}
	cmd.Flags().String("start", "", "start date (default: 90 days before end)")
	cmd.Flags().String("end", "", "end date (default: today)")
	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var start, end time.Time
	if v, _ := cmd.Flags().GetString("start"); v != "" {
		if start, err = dates.NormalizeString(v); err != nil {
			return err
		}
	}
	if v, _ := cmd.Flags().GetString("end"); v != "" {
		if end, err = dates.NormalizeString(v); err != nil {
			return err
		}
	}

	result, err := a.ledger.Sync(ctx, start, end)
	if err != nil {
		return err
	}
	fmt.Printf("Fetched %d transaction(s); %d newly categorized\n",
		result.Fetched, result.Categorized)
	return nil
}
