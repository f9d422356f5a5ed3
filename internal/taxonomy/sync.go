// Package taxonomy reconciles the canonical category list with the
// categories actually appearing in transaction data.
package taxonomy

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tallyhq/tally/internal/model"
)

// TransactionLister streams every known transaction: provider transactions
// with any stored overrides applied, plus manual transactions.
type TransactionLister interface {
	ListAll(ctx context.Context) ([]model.Transaction, error)
}

// Catalog is the taxonomy half of the rule store.
type Catalog interface {
	Categories(ctx context.Context) ([]model.Category, error)
	ReplaceCategories(ctx context.Context, cats []model.Category) error
}

// Syncer adds newly observed category/subcategory pairs to the canonical
// taxonomy. It never removes entries; removal is an explicit user operation.
type Syncer struct {
	catalog Catalog
	txns    TransactionLister
	logger  *slog.Logger
}

// NewSyncer creates a taxonomy syncer over the given collaborators.
func NewSyncer(catalog Catalog, txns TransactionLister) *Syncer {
	return &Syncer{
		catalog: catalog,
		txns:    txns,
		logger:  slog.Default().With("component", "taxonomy"),
	}
}

// Sync scans all known transactions, skipping soft-deleted ones, and appends
// any category or subcategory not already present (case-insensitively) in
// the taxonomy. The taxonomy is persisted only when something was added, so
// back-to-back runs with no new data are free.
func (s *Syncer) Sync(ctx context.Context) (categoriesAdded, subcategoriesAdded int, err error) {
	cats, err := s.catalog.Categories(ctx)
	if err != nil {
		return 0, 0, err
	}

	// Working copy keyed case-insensitively by name; the slice keeps order.
	working := make([]model.Category, len(cats))
	copy(working, cats)
	index := make(map[string]int, len(working))
	for i, c := range working {
		index[strings.ToLower(c.Name)] = i
	}

	txns, err := s.txns.ListAll(ctx)
	if err != nil {
		return 0, 0, err
	}

	for _, txn := range txns {
		if txn.Deleted {
			continue
		}
		name := strings.TrimSpace(txn.Category)
		if name == "" {
			continue
		}
		sub := strings.TrimSpace(txn.Subcategory)

		i, ok := index[strings.ToLower(name)]
		if !ok {
			working = append(working, model.Category{Name: name})
			i = len(working) - 1
			index[strings.ToLower(name)] = i
			categoriesAdded++
		}
		if sub != "" && working[i].AddSubcategory(sub) {
			subcategoriesAdded++
		}
	}

	if categoriesAdded == 0 && subcategoriesAdded == 0 {
		return 0, 0, nil
	}

	if err := s.catalog.ReplaceCategories(ctx, working); err != nil {
		return 0, 0, err
	}

	s.logger.Info("taxonomy reconciled",
		"categories_added", categoriesAdded,
		"subcategories_added", subcategoriesAdded)
	return categoriesAdded, subcategoriesAdded, nil
}
