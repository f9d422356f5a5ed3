package plaid

import (
	"context"
	"time"

	"github.com/tallyhq/tally/internal/model"
)

// MockClient is an in-memory TransactionFetcher for tests. It serves a
// fixed transaction set filtered to the requested window, optionally fails
// every call, and counts fetches so tests can assert on cache behavior.
type MockClient struct {
	Transactions []model.Transaction
	AccountIDs   []string
	Err          error
	FetchCalls   int
}

// GetTransactions returns the configured transactions dated within
// [start, end].
func (m *MockClient) GetTransactions(_ context.Context, start, end time.Time) ([]model.Transaction, error) {
	m.FetchCalls++
	if m.Err != nil {
		return nil, m.Err
	}

	out := make([]model.Transaction, 0, len(m.Transactions))
	for _, txn := range m.Transactions {
		if txn.Date.Before(start) || txn.Date.After(end) {
			continue
		}
		out = append(out, txn)
	}
	return out, nil
}

// GetAccounts returns the configured account IDs.
func (m *MockClient) GetAccounts(_ context.Context) ([]string, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.AccountIDs, nil
}

var _ TransactionFetcher = (*MockClient)(nil)
