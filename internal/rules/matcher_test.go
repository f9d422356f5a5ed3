package rules

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyhq/tally/internal/model"
	"github.com/tallyhq/tally/internal/storage"
)

func floatPtr(f float64) *float64 { return &f }

func starbucksTxn() model.Transaction {
	return model.Transaction{
		ID:       "t1",
		Date:     time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Merchant: "STARBUCKS #4",
		Amount:   12.50,
		IsDebit:  true,
	}
}

func TestBestMatchPrefersMoreSpecificRule(t *testing.T) {
	ctx := context.Background()
	store := NewStore(storage.NewMemoryStore())

	descOnly := model.Rule{
		ID:               "r1",
		Description:      "starbucks",
		MatchDescription: true,
		Category:         "Coffee",
		Active:           true,
		CreatedAt:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	descAndAmount := model.Rule{
		ID:               "r2",
		Description:      "starbucks",
		MatchDescription: true,
		MatchAmount:      true,
		Amount:           floatPtr(12.50),
		Category:         "Treats",
		Active:           true,
		CreatedAt:        time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.AddRule(ctx, &descOnly))
	require.NoError(t, store.AddRule(ctx, &descAndAmount))

	matcher := NewMatcher(store)
	rule, err := matcher.BestMatch(ctx, starbucksTxn())
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, "r2", rule.ID)

	// A different amount leaves only the description rule.
	other := starbucksTxn()
	other.Amount = 4.75
	rule, err = matcher.BestMatch(ctx, other)
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, "r1", rule.ID)
}

func TestBestMatchTieBreak(t *testing.T) {
	ctx := context.Background()
	store := NewStore(storage.NewMemoryStore())

	older := model.Rule{
		ID:               "zz-older",
		Description:      "starbucks",
		MatchDescription: true,
		Category:         "Coffee",
		Active:           true,
		CreatedAt:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	newer := model.Rule{
		ID:               "aa-newer",
		Description:      "starbucks",
		MatchDescription: true,
		Category:         "Dining",
		Active:           true,
		CreatedAt:        time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.AddRule(ctx, &newer))
	require.NoError(t, store.AddRule(ctx, &older))

	matcher := NewMatcher(store)
	rule, err := matcher.BestMatch(ctx, starbucksTxn())
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, "zz-older", rule.ID, "earlier creation time wins an equal-specificity tie")
}

func TestBestMatchSkipsMalformedRule(t *testing.T) {
	ctx := context.Background()
	store := NewStore(storage.NewMemoryStore())

	fallback := model.Rule{
		ID:               "fallback",
		Description:      "starbucks",
		MatchDescription: true,
		Category:         "Coffee",
		Active:           true,
		CreatedAt:        time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.AddRule(ctx, &fallback))

	// Amount matching without an amount cannot be evaluated. Such a rule
	// cannot pass validation, so it is planted directly; the matcher skips
	// it and the remaining rules still apply.
	store.rules = append(store.rules, model.Rule{
		ID:               "broken",
		Description:      "starbucks",
		MatchDescription: true,
		MatchAmount:      true,
		Category:         "Coffee",
		Active:           true,
		CreatedAt:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	matcher := NewMatcher(store)
	rule, err := matcher.BestMatch(ctx, starbucksTxn())
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, "fallback", rule.ID)
}

func TestBestMatchNoRules(t *testing.T) {
	ctx := context.Background()
	matcher := NewMatcher(NewStore(storage.NewMemoryStore()))

	rule, err := matcher.BestMatch(ctx, starbucksTxn())
	require.NoError(t, err)
	assert.Nil(t, rule)
}

func TestCategorize(t *testing.T) {
	ctx := context.Background()
	store := NewStore(storage.NewMemoryStore())

	r := model.Rule{
		ID:               "r1",
		Description:      "starbucks",
		MatchDescription: true,
		Category:         "Coffee",
		Subcategory:      "Takeout",
		Active:           true,
		CreatedAt:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.AddRule(ctx, &r))

	matcher := NewMatcher(store)
	matcher.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }

	t.Run("matched transaction gets the rule's category", func(t *testing.T) {
		txn := starbucksTxn()
		matched, err := matcher.Categorize(ctx, &txn)
		require.NoError(t, err)
		assert.True(t, matched)
		assert.Equal(t, "Coffee", txn.Category)
		assert.Equal(t, "Takeout", txn.Subcategory)

		got, err := store.Rule(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, 1, got.MatchCount)
		require.NotNil(t, got.LastApplied)
	})

	t.Run("unmatched transaction defaults to Uncategorized", func(t *testing.T) {
		txn := starbucksTxn()
		txn.Merchant = "SHELL OIL"
		matched, err := matcher.Categorize(ctx, &txn)
		require.NoError(t, err)
		assert.False(t, matched)
		assert.Equal(t, model.Uncategorized, txn.Category)
	})
}

func TestCategorizeAll(t *testing.T) {
	ctx := context.Background()
	store := NewStore(storage.NewMemoryStore())

	r := model.Rule{
		ID:               "r1",
		Description:      "starbucks",
		MatchDescription: true,
		Category:         "Coffee",
		Active:           true,
		CreatedAt:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.AddRule(ctx, &r))

	matcher := NewMatcher(store)
	txns := []model.Transaction{
		starbucksTxn(),
		{ID: "t2", Merchant: "SHELL OIL", Amount: 40},
		{ID: "t3", Merchant: "Starbucks Reserve", Amount: 6.20},
	}

	matched, err := matcher.CategorizeAll(ctx, txns)
	require.NoError(t, err)
	assert.Equal(t, 2, matched)
	assert.Equal(t, "Coffee", txns[0].Category)
	assert.Equal(t, model.Uncategorized, txns[1].Category)
	assert.Equal(t, "Coffee", txns[2].Category)

	got, err := store.Rule(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.MatchCount, "batch statistics recorded once")
}

func TestSortBySpecificity(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rules := []model.Rule{
		{ID: "catch-all", Category: "Misc", CreatedAt: created},
		{ID: "full", OriginalCategory: "Food", OriginalSubcategory: "Fast Food", MatchDescription: true, Description: "x", MatchAmount: true, Amount: floatPtr(1), Category: "Misc", CreatedAt: created},
		{ID: "desc", MatchDescription: true, Description: "x", Category: "Misc", CreatedAt: created},
	}
	SortBySpecificity(rules)

	assert.Equal(t, "full", rules[0].ID)
	assert.Equal(t, "desc", rules[1].ID)
	assert.Equal(t, "catch-all", rules[2].ID)
}
