package rules

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/tallyhq/tally/internal/model"
)

// Matcher finds the single best matching active rule for a transaction.
type Matcher struct {
	store  *Store
	logger *slog.Logger
	now    func() time.Time
}

// NewMatcher creates a matcher over the given rule store.
func NewMatcher(store *Store) *Matcher {
	return &Matcher{
		store:  store,
		logger: slog.Default().With("component", "matcher"),
		now:    time.Now,
	}
}

// BestMatch returns the most specific active rule whose criteria txn
// satisfies, or nil when nothing matches. Rules with an identical
// specificity tuple tie-break on creation time, then ID. Malformed rules
// are logged and skipped rather than aborting the pass.
func (m *Matcher) BestMatch(ctx context.Context, txn model.Transaction) (*model.Rule, error) {
	active, err := m.store.ActiveRules(ctx)
	if err != nil {
		return nil, err
	}
	SortBySpecificity(active)

	for i := range active {
		ok, err := active[i].Matches(txn, false)
		if err != nil {
			m.logger.Warn("skipping malformed rule", "rule_id", active[i].ID, "error", err)
			continue
		}
		if ok {
			return &active[i], nil
		}
	}
	return nil, nil
}

// Categorize applies the best matching rule to txn in place, records the
// match against the rule's statistics, and persists the rule set. Returns
// whether a rule matched. A transaction nothing matches keeps its existing
// category, defaulting to Uncategorized.
func (m *Matcher) Categorize(ctx context.Context, txn *model.Transaction) (bool, error) {
	rule, err := m.BestMatch(ctx, *txn)
	if err != nil {
		return false, err
	}
	if rule == nil {
		txn.Category = txn.EffectiveCategory()
		return false, nil
	}

	txn.Category = rule.Category
	txn.Subcategory = rule.Subcategory

	if err := m.store.RecordMatches(ctx, map[string]int{rule.ID: 1}, m.now().UTC()); err != nil {
		return true, err
	}
	return true, nil
}

// CategorizeAll runs Categorize semantics over a batch, recording all rule
// statistics and persisting the rule set once at the end. Returns the number
// of transactions a rule matched.
func (m *Matcher) CategorizeAll(ctx context.Context, txns []model.Transaction) (int, error) {
	active, err := m.store.ActiveRules(ctx)
	if err != nil {
		return 0, err
	}
	SortBySpecificity(active)

	counts := make(map[string]int)
	matched := 0
	for i := range txns {
		for j := range active {
			ok, err := active[j].Matches(txns[i], false)
			if err != nil {
				m.logger.Warn("skipping malformed rule", "rule_id", active[j].ID, "error", err)
				continue
			}
			if ok {
				txns[i].Category = active[j].Category
				txns[i].Subcategory = active[j].Subcategory
				counts[active[j].ID]++
				matched++
				break
			}
		}
		txns[i].Category = txns[i].EffectiveCategory()
	}

	if matched == 0 {
		return 0, nil
	}
	if err := m.store.RecordMatches(ctx, counts, m.now().UTC()); err != nil {
		return matched, err
	}
	return matched, nil
}

// SortBySpecificity orders rules most specific first, with the
// deterministic tie-break from model.Rule.MoreSpecific.
func SortBySpecificity(rules []model.Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].MoreSpecific(&rules[j])
	})
}
