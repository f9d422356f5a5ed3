package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/tallyhq/tally/internal/model"
	"github.com/tallyhq/tally/internal/rules"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage categorization rules",
	}
	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesAddCmd())
	cmd.AddCommand(rulesDeleteCmd())
	cmd.AddCommand(rulesApplyCmd())
	return cmd
}

func rulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rules in matching order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			all, err := a.rules.Rules(ctx)
			if err != nil {
				return err
			}
			rules.SortBySpecificity(all)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tMATCHES\tTARGET\tACTIVE\tHITS")
			for _, r := range all {
				fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%d\n",
					r.ID, describeCriteria(r), describeTarget(r), r.Active, r.MatchCount)
			}
			return w.Flush()
		},
	}
}

func describeCriteria(r model.Rule) string {
	out := ""
	if r.OriginalCategory != "" {
		out += fmt.Sprintf("from=%s ", r.OriginalCategory)
	}
	if r.OriginalSubcategory != "" {
		out += fmt.Sprintf("from-sub=%s ", r.OriginalSubcategory)
	}
	if r.MatchDescription {
		out += fmt.Sprintf("desc~%q ", r.Description)
	}
	if r.MatchAmount && r.Amount != nil {
		out += fmt.Sprintf("amount=%.2f ", *r.Amount)
	}
	if out == "" {
		return "(everything)"
	}
	return out[:len(out)-1]
}

func describeTarget(r model.Rule) string {
	if r.Subcategory != "" {
		return r.Category + " / " + r.Subcategory
	}
	return r.Category
}

func rulesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a categorization rule",
		RunE:  runRulesAdd,
	}
	cmd.Flags().String("description", "", "substring to match in the merchant name")
	cmd.Flags().Float64("amount", 0, "exact amount to match")
	cmd.Flags().String("from-category", "", "only match transactions currently in this category")
	cmd.Flags().String("from-subcategory", "", "only match transactions currently in this subcategory")
	cmd.Flags().String("category", "", "category to assign (required)")
	cmd.Flags().String("subcategory", "", "subcategory to assign")
	cmd.Flags().Bool("apply", false, "apply the rule to stored transactions immediately")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func runRulesAdd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	r := model.Rule{Active: true}
	r.Category, _ = cmd.Flags().GetString("category")
	r.Subcategory, _ = cmd.Flags().GetString("subcategory")
	r.OriginalCategory, _ = cmd.Flags().GetString("from-category")
	r.OriginalSubcategory, _ = cmd.Flags().GetString("from-subcategory")
	if v, _ := cmd.Flags().GetString("description"); v != "" {
		r.Description = v
		r.MatchDescription = true
	}
	if cmd.Flags().Changed("amount") {
		amount, _ := cmd.Flags().GetFloat64("amount")
		r.Amount = &amount
		r.MatchAmount = true
	}

	if err := addRule(ctx, a, &r); err != nil {
		return err
	}
	fmt.Printf("Added rule %s\n", r.ID)

	if apply, _ := cmd.Flags().GetBool("apply"); apply {
		matched, err := a.applier.ApplyOne(ctx, r.ID, false)
		if err != nil {
			return err
		}
		fmt.Printf("Applied to %d stored transaction(s)\n", matched)
	}
	return nil
}

// addRule persists the rule and drops cached pages so the next view
// categorizes with it instead of serving stale results until expiry.
func addRule(ctx context.Context, a *app, r *model.Rule) error {
	if err := a.rules.AddRule(ctx, r); err != nil {
		return err
	}
	a.ledger.InvalidateCache()
	return nil
}

func rulesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.rules.DeleteRule(ctx, args[0]); err != nil {
				return err
			}
			a.ledger.InvalidateCache()
			fmt.Printf("Deleted rule %s\n", args[0])
			return nil
		},
	}
}

func rulesApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply [rule-id]",
		Short: "Re-apply rules to stored transactions",
		Long: `Re-apply rules to stored transactions.

With a rule ID, applies just that rule. Without one, re-runs every
active rule in specificity order and reconciles the category list.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRulesApply,
	}
	cmd.Flags().Bool("ignore-original", false, "skip the rule's original-category constraints (single rule only)")
	return cmd
}

func runRulesApply(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 1 {
		ignoreOriginal, _ := cmd.Flags().GetBool("ignore-original")
		matched, err := a.applier.ApplyOne(ctx, args[0], ignoreOriginal)
		if err != nil {
			return err
		}
		a.ledger.InvalidateCache()
		fmt.Printf("Rule matched %d stored transaction(s)\n", matched)
		return nil
	}

	active, err := a.rules.ActiveRules(ctx)
	if err != nil {
		return err
	}
	bar := progressbar.NewOptions(len(active),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Applying rules..."),
	)

	result, err := a.applier.ApplyAll(ctx, func(_ model.Rule, _ int) {
		_ = bar.Add(1)
	})
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)
	if err != nil {
		if result != nil {
			fmt.Printf("Aborted after %d rule(s); %d transaction(s) already updated\n",
				result.RulesCompleted, result.Total)
		}
		return err
	}

	a.ledger.InvalidateCache()
	fmt.Printf("Applied %d rule(s): %d transaction(s) recategorized\n",
		result.RulesCompleted, result.Total)
	if result.CategoriesAdded > 0 || result.SubcategoriesAdded > 0 {
		fmt.Printf("Taxonomy updated: %d new categorie(s), %d new subcategorie(s)\n",
			result.CategoriesAdded, result.SubcategoriesAdded)
	}
	return nil
}
