package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tallyhq/tally/internal/dates"
	"github.com/tallyhq/tally/internal/ledger"
	"github.com/tallyhq/tally/internal/model"
)

func transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"txns"},
		Short:   "View and manage transactions",
	}
	cmd.AddCommand(transactionsListCmd())
	cmd.AddCommand(transactionsAddCmd())
	cmd.AddCommand(transactionsEditCmd())
	cmd.AddCommand(transactionsDeleteCmd())
	return cmd
}

func transactionsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		RunE:  runTransactionsList,
	}
	cmd.Flags().String("start", "", "start date (defaults to 90 days ago)")
	cmd.Flags().String("end", "", "end date (defaults to today)")
	cmd.Flags().String("category", "", "filter by category")
	cmd.Flags().String("account", "", "filter by account ID")
	cmd.Flags().Int("page", 1, "page number")
	cmd.Flags().Int("page-size", 50, "transactions per page")
	return cmd
}

func runTransactionsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	query := ledger.Query{}
	if v, _ := cmd.Flags().GetString("start"); v != "" {
		if query.StartDate, err = dates.NormalizeString(v); err != nil {
			return fmt.Errorf("invalid start date: %w", err)
		}
	}
	if v, _ := cmd.Flags().GetString("end"); v != "" {
		if query.EndDate, err = dates.NormalizeString(v); err != nil {
			return fmt.Errorf("invalid end date: %w", err)
		}
	}
	query.Category, _ = cmd.Flags().GetString("category")
	query.AccountID, _ = cmd.Flags().GetString("account")
	query.Page, _ = cmd.Flags().GetInt("page")
	query.PageSize, _ = cmd.Flags().GetInt("page-size")

	page, err := a.ledger.List(ctx, query)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tMERCHANT\tAMOUNT\tCATEGORY\tID")
	for _, txn := range page.Transactions {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\t%s\n",
			txn.Date.Format("2006-01-02"),
			txn.Merchant,
			txn.SignedAmount(),
			formatCategory(txn),
			txn.ID)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nPage %d of %d (%d transactions)\n", page.Page, page.TotalPages, page.TotalCount)
	return nil
}

func formatCategory(txn model.Transaction) string {
	if txn.Subcategory != "" {
		return txn.Category + " / " + txn.Subcategory
	}
	return txn.Category
}

func transactionsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a manual transaction",
		RunE:  runTransactionsAdd,
	}
	cmd.Flags().String("date", "", "transaction date (required)")
	cmd.Flags().String("merchant", "", "merchant name (required)")
	cmd.Flags().Float64("amount", 0, "amount (required, positive)")
	cmd.Flags().Bool("credit", false, "record as money in rather than money out")
	cmd.Flags().String("category", "", "category")
	cmd.Flags().String("subcategory", "", "subcategory")
	cmd.Flags().String("account", "", "account ID")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("merchant")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func runTransactionsAdd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	rawDate, _ := cmd.Flags().GetString("date")
	date, err := dates.NormalizeString(rawDate)
	if err != nil {
		return fmt.Errorf("invalid date: %w", err)
	}

	txn := model.Transaction{Date: date}
	txn.Merchant, _ = cmd.Flags().GetString("merchant")
	txn.Amount, _ = cmd.Flags().GetFloat64("amount")
	credit, _ := cmd.Flags().GetBool("credit")
	txn.IsDebit = !credit
	txn.Category, _ = cmd.Flags().GetString("category")
	txn.Subcategory, _ = cmd.Flags().GetString("subcategory")
	txn.AccountID, _ = cmd.Flags().GetString("account")

	added, err := a.ledger.AddTransaction(ctx, txn)
	if err != nil {
		return err
	}
	fmt.Printf("Added transaction %s\n", added.ID)
	return nil
}

func transactionsEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a transaction's category or details",
		Args:  cobra.ExactArgs(1),
		RunE:  runTransactionsEdit,
	}
	cmd.Flags().String("category", "", "new category")
	cmd.Flags().String("subcategory", "", "new subcategory")
	cmd.Flags().String("merchant", "", "new merchant name")
	return cmd
}

func runTransactionsEdit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	id := args[0]

	// Pull the current merged view so provider fields survive the edit.
	end := time.Now()
	page, err := a.ledger.List(ctx, ledger.Query{
		StartDate: end.AddDate(-2, 0, 0),
		EndDate:   end,
		PageSize:  1 << 20,
	})
	if err != nil {
		return err
	}

	var txn *model.Transaction
	for i := range page.Transactions {
		if page.Transactions[i].ID == id {
			txn = &page.Transactions[i]
			break
		}
	}
	if txn == nil {
		return fmt.Errorf("transaction %q not found", id)
	}

	if v, _ := cmd.Flags().GetString("category"); v != "" {
		txn.Category = v
		txn.Subcategory = ""
	}
	if v, _ := cmd.Flags().GetString("subcategory"); v != "" {
		txn.Subcategory = v
	}
	if v, _ := cmd.Flags().GetString("merchant"); v != "" {
		txn.Merchant = v
	}

	if err := a.ledger.UpdateTransaction(ctx, *txn); err != nil {
		return err
	}
	fmt.Printf("Updated transaction %s\n", id)
	return nil
}

func transactionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.ledger.DeleteTransaction(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted transaction %s\n", args[0])
			return nil
		},
	}
}
