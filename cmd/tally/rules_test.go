package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyhq/tally/internal/cache"
	"github.com/tallyhq/tally/internal/ledger"
	"github.com/tallyhq/tally/internal/model"
	"github.com/tallyhq/tally/internal/plaid"
	"github.com/tallyhq/tally/internal/rules"
	"github.com/tallyhq/tally/internal/storage"
)

func TestAddRuleInvalidatesPageCache(t *testing.T) {
	ctx := context.Background()
	fetcher := &plaid.MockClient{Transactions: []model.Transaction{
		{
			ID:       "p1",
			Date:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Merchant: "STARBUCKS #4",
			Amount:   12.50,
			IsDebit:  true,
		},
	}}
	backing := storage.NewMemoryStore()
	ruleStore := rules.NewStore(backing)
	a := &app{
		rules:   ruleStore,
		matcher: rules.NewMatcher(ruleStore),
	}
	a.ledger = ledger.NewService(fetcher, backing, a.matcher, cache.New[ledger.Page](100, time.Hour))

	q := ledger.Query{
		StartDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
	}
	page, err := a.ledger.List(ctx, q)
	require.NoError(t, err)
	require.Len(t, page.Transactions, 1)
	assert.Equal(t, model.Uncategorized, page.Transactions[0].Category)

	require.NoError(t, addRule(ctx, a, &model.Rule{
		Description:      "starbucks",
		MatchDescription: true,
		Category:         "Coffee",
		Active:           true,
	}))

	// Same query again: the new rule must take effect immediately, not
	// after the cached page expires.
	page, err = a.ledger.List(ctx, q)
	require.NoError(t, err)
	require.Len(t, page.Transactions, 1)
	assert.Equal(t, "Coffee", page.Transactions[0].Category)
	assert.Equal(t, 2, fetcher.FetchCalls)
}
