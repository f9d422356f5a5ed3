package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransaction_Validate(t *testing.T) {
	valid := Transaction{
		ID:       "t1",
		Date:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Merchant: "Corner Store",
		Category: "Groceries",
		Amount:   42.10,
		IsDebit:  true,
	}

	tests := []struct {
		mutate  func(*Transaction)
		name    string
		wantErr string
	}{
		{
			name:   "valid transaction",
			mutate: func(_ *Transaction) {},
		},
		{
			name:    "zero amount",
			mutate:  func(txn *Transaction) { txn.Amount = 0 },
			wantErr: "amount must be greater than zero",
		},
		{
			name:    "amount over maximum",
			mutate:  func(txn *Transaction) { txn.Amount = 1000000 },
			wantErr: "amount exceeds maximum",
		},
		{
			name:    "missing merchant",
			mutate:  func(txn *Transaction) { txn.Merchant = "  " },
			wantErr: "merchant is required",
		},
		{
			name:    "missing date",
			mutate:  func(txn *Transaction) { txn.Date = time.Time{} },
			wantErr: "date is required",
		},
		{
			name:    "unsafe category characters",
			mutate:  func(txn *Transaction) { txn.Category = "<script>" },
			wantErr: "category contains invalid characters",
		},
		{
			name:    "bad account id",
			mutate:  func(txn *Transaction) { txn.AccountID = "acct;drop" },
			wantErr: "invalid account ID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := valid
			tt.mutate(&txn)
			err := txn.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTransaction_EffectiveCategory(t *testing.T) {
	txn := Transaction{}
	assert.Equal(t, Uncategorized, txn.EffectiveCategory())

	txn.Category = "Dining"
	assert.Equal(t, "Dining", txn.EffectiveCategory())
}

func TestTransaction_SignedAmount(t *testing.T) {
	debit := Transaction{Amount: 10, IsDebit: true}
	credit := Transaction{Amount: 10}
	assert.Equal(t, -10.0, debit.SignedAmount())
	assert.Equal(t, 10.0, credit.SignedAmount())
}

func TestStoredTransaction_Overlay(t *testing.T) {
	base := Transaction{
		ID:        "t1",
		Date:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Merchant:  "STARBUCKS #4",
		Category:  "Uncategorized",
		AccountID: "acct-1",
		Amount:    12.50,
		IsDebit:   true,
	}

	newAmount := 13.00
	overlay := StoredTransaction{
		ID:          "t1",
		Category:    "Coffee",
		Subcategory: "Latte",
		Amount:      &newAmount,
	}

	merged := base
	overlay.ApplyTo(&merged)

	assert.Equal(t, "Coffee", merged.Category)
	assert.Equal(t, "Latte", merged.Subcategory)
	assert.Equal(t, 13.00, merged.Amount)
	// Untouched fields survive.
	assert.Equal(t, base.Date, merged.Date)
	assert.Equal(t, base.Merchant, merged.Merchant)
	assert.False(t, merged.Deleted)
}

func TestNewOverlay_RoundTrip(t *testing.T) {
	txn := Transaction{
		ID:        "m1",
		Date:      time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
		Merchant:  "Farmers Market",
		Category:  "Groceries",
		AccountID: "acct-2",
		Amount:    31.75,
		IsDebit:   true,
		Manual:    true,
	}

	stored := NewOverlay(txn)
	assert.Equal(t, txn, stored.Transaction())
}
