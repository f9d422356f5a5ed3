package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tallyhq/tally/internal/model"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage the category taxonomy",
	}
	cmd.AddCommand(categoriesListCmd())
	cmd.AddCommand(categoriesAddCmd())
	cmd.AddCommand(categoriesDeleteCmd())
	cmd.AddCommand(categoriesSyncCmd())
	return cmd
}

func categoriesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known categories and subcategories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			cats, err := a.rules.Categories(ctx)
			if err != nil {
				return err
			}
			if len(cats) == 0 {
				fmt.Println("No categories yet. Run 'tally categories sync' to discover them from your transactions.")
				return nil
			}
			for _, cat := range cats {
				fmt.Println(cat.Name)
				for _, sub := range cat.Subcategories {
					fmt.Printf("  %s\n", sub)
				}
			}
			return nil
		},
	}
}

func categoriesAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> [subcategories...]",
		Short: "Add a category",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			cat := model.Category{Name: strings.TrimSpace(args[0])}
			for _, sub := range args[1:] {
				cat.AddSubcategory(sub)
			}
			if err := a.rules.AddCategory(ctx, cat); err != nil {
				return err
			}
			fmt.Printf("Added category %q\n", cat.Name)
			return nil
		},
	}
}

func categoriesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a category from the taxonomy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.rules.DeleteCategory(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted category %q\n", args[0])
			return nil
		},
	}
}

func categoriesSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Add categories observed in transactions to the taxonomy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			cats, subs, err := a.syncer.Sync(ctx)
			if err != nil {
				return err
			}
			if cats == 0 && subs == 0 {
				fmt.Println("Taxonomy already up to date.")
				return nil
			}
			fmt.Printf("Added %d categorie(s) and %d subcategorie(s)\n", cats, subs)
			return nil
		},
	}
}
