package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tallyhq/tally/internal/dates"
	"github.com/tallyhq/tally/internal/ledger"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Spending totals by category",
		RunE:  runReport,
	}
	cmd.Flags().Int("year", 0, "report a whole calendar year")
	cmd.Flags().String("start", "", "start date for a monthly breakdown")
	cmd.Flags().String("end", "", "end date for a monthly breakdown")
	return cmd
}

func runReport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if year, _ := cmd.Flags().GetInt("year"); year > 0 {
		totals, err := a.ledger.AnnualTotals(ctx, year)
		if err != nil {
			return err
		}
		printPeriod(totals)
		return nil
	}

	end := time.Now()
	start := end.AddDate(0, -3, 0)
	if v, _ := cmd.Flags().GetString("start"); v != "" {
		if start, err = dates.NormalizeString(v); err != nil {
			return fmt.Errorf("invalid start date: %w", err)
		}
	}
	if v, _ := cmd.Flags().GetString("end"); v != "" {
		if end, err = dates.NormalizeString(v); err != nil {
			return fmt.Errorf("invalid end date: %w", err)
		}
	}

	months, err := a.ledger.MonthlyTotals(ctx, start, end)
	if err != nil {
		return err
	}
	if len(months) == 0 {
		fmt.Println("No transactions in range.")
		return nil
	}
	for _, month := range months {
		printPeriod(month)
		fmt.Println()
	}
	return nil
}

func printPeriod(totals ledger.PeriodTotals) {
	fmt.Printf("%s (net %+.2f)\n", totals.Period, totals.Net)

	names := make([]string, 0, len(totals.ByCategory))
	for name := range totals.ByCategory {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\t%+.2f\n", name, totals.ByCategory[name])
	}
	_ = w.Flush()
}
