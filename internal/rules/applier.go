package rules

import (
	"context"
	"log/slog"
	"time"

	"github.com/tallyhq/tally/internal/common"
	"github.com/tallyhq/tally/internal/model"
)

// TransactionStore provides access to the stored transaction set the bulk
// applier operates on: overlay records for modified provider transactions
// plus manual transactions, excluding soft-deleted ones.
type TransactionStore interface {
	ListStored(ctx context.Context) ([]model.Transaction, error)
	UpdateStored(ctx context.Context, txns []model.Transaction) error
}

// TaxonomySyncer reconciles the canonical taxonomy with observed data.
type TaxonomySyncer interface {
	Sync(ctx context.Context) (categoriesAdded, subcategoriesAdded int, err error)
}

// ApplyAllResult reports the outcome of a full bulk re-application pass.
type ApplyAllResult struct {
	PerRule            map[string]int
	RulesCompleted     int
	Total              int
	CategoriesAdded    int
	SubcategoriesAdded int
}

// Applier re-runs rules across the full stored transaction set.
type Applier struct {
	store    *Store
	txns     TransactionStore
	taxonomy TaxonomySyncer
	logger   *slog.Logger
	now      func() time.Time
}

// NewApplier creates a bulk applier over the given collaborators.
func NewApplier(store *Store, txns TransactionStore, taxonomy TaxonomySyncer) *Applier {
	return &Applier{
		store:    store,
		txns:     txns,
		taxonomy: taxonomy,
		logger:   slog.Default().With("component", "applier"),
		now:      time.Now,
	}
}

// ApplyOne re-runs a single rule across all stored, non-deleted
// transactions and returns how many it matched. When ignoreOriginal is true
// the rule's original-category constraints are skipped, so it can be re-run
// against transactions whose category has since drifted. Transactions are
// persisted only when something matched; rule statistics update afterwards.
func (a *Applier) ApplyOne(ctx context.Context, ruleID string, ignoreOriginal bool) (int, error) {
	rule, err := a.store.Rule(ctx, ruleID)
	if err != nil {
		return 0, err
	}
	if rule.MatchAmount && rule.Amount == nil {
		return 0, common.NewValidationError("amount matching enabled but no amount set")
	}

	stored, err := a.txns.ListStored(ctx)
	if err != nil {
		return 0, err
	}

	var changed []model.Transaction
	for i := range stored {
		ok, merr := rule.Matches(stored[i], ignoreOriginal)
		if merr != nil {
			return 0, merr
		}
		if !ok {
			continue
		}
		stored[i].Category = rule.Category
		stored[i].Subcategory = rule.Subcategory
		changed = append(changed, stored[i])
	}

	if len(changed) == 0 {
		return 0, nil
	}

	if err := a.txns.UpdateStored(ctx, changed); err != nil {
		return 0, err
	}
	if err := a.store.RecordMatches(ctx, map[string]int{rule.ID: len(changed)}, a.now().UTC()); err != nil {
		return len(changed), err
	}

	a.logger.Info("rule applied", "rule_id", rule.ID, "matched", len(changed))
	return len(changed), nil
}

// ApplyAll re-runs every active rule, most specific first, honoring
// original-category constraints, then reconciles the taxonomy once.
//
// Most-constrained-first ordering lets the final state reflect deliberate
// operator intent while a catch-all rule runs last. Transactions already
// matched in the pass are not protected: a later, less specific rule can
// still overwrite an earlier result.
//
// A storage failure aborts the remaining rules; the result reports how many
// rules completed, and statistics already recorded are not rolled back.
// onRule, when non-nil, is invoked after each rule for progress reporting.
func (a *Applier) ApplyAll(ctx context.Context, onRule func(rule model.Rule, matched int)) (*ApplyAllResult, error) {
	active, err := a.store.ActiveRules(ctx)
	if err != nil {
		return nil, err
	}
	SortBySpecificity(active)

	result := &ApplyAllResult{PerRule: make(map[string]int, len(active))}
	for _, rule := range active {
		matched, err := a.ApplyOne(ctx, rule.ID, false)
		if err != nil {
			if common.IsValidation(err) {
				a.logger.Warn("skipping malformed rule", "rule_id", rule.ID, "error", err)
				continue
			}
			return result, err
		}
		result.PerRule[rule.ID] = matched
		result.Total += matched
		result.RulesCompleted++
		if onRule != nil {
			onRule(rule, matched)
		}
	}

	catsAdded, subsAdded, err := a.taxonomy.Sync(ctx)
	if err != nil {
		return result, err
	}
	result.CategoriesAdded = catsAdded
	result.SubcategoriesAdded = subsAdded
	return result, nil
}
