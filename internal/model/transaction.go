// Package model defines the core domain models used throughout the application.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Uncategorized is the category assigned to transactions nothing else has claimed.
const Uncategorized = "Uncategorized"

// Transaction represents a single financial transaction from any source.
// Amount is a non-negative magnitude; IsDebit carries the sign.
type Transaction struct {
	Date        time.Time `json:"date"`
	ID          string    `json:"id"`
	Merchant    string    `json:"merchant"`
	Category    string    `json:"category"`
	Subcategory string    `json:"subcategory,omitempty"`
	AccountID   string    `json:"account_id"`
	Amount      float64   `json:"amount"`
	IsDebit     bool      `json:"is_debit"`
	Manual      bool      `json:"manual"`
	Deleted     bool      `json:"deleted"`
}

// MaxAmount is the largest accepted transaction amount.
const MaxAmount = 999999.99

// Validate ensures a caller-supplied transaction is well formed.
func (t *Transaction) Validate() error {
	var problems []string

	if t.Date.IsZero() {
		problems = append(problems, "date is required")
	}
	if strings.TrimSpace(t.Merchant) == "" {
		problems = append(problems, "merchant is required")
	}
	if t.Amount <= 0 {
		problems = append(problems, "amount must be greater than zero")
	}
	if t.Amount > MaxAmount {
		problems = append(problems, "amount exceeds maximum allowed value")
	}

	for _, f := range []struct {
		field string
		value string
	}{
		{"merchant", t.Merchant},
		{"category", t.Category},
		{"subcategory", t.Subcategory},
	} {
		field, value := f.field, strings.TrimSpace(f.value)
		if len(value) > 100 {
			problems = append(problems, fmt.Sprintf("%s must be 100 characters or less", field))
		}
		if value != "" && !isSafeString(value) {
			problems = append(problems, fmt.Sprintf("%s contains invalid characters", field))
		}
	}

	if t.AccountID != "" && !isValidID(t.AccountID) {
		problems = append(problems, "invalid account ID")
	}

	if len(problems) > 0 {
		return newValidationError(problems)
	}
	return nil
}

// EffectiveCategory returns the transaction's category, defaulting when unset.
func (t *Transaction) EffectiveCategory() string {
	if strings.TrimSpace(t.Category) == "" {
		return Uncategorized
	}
	return t.Category
}

// SignedAmount returns the amount with its direction applied: debits negative.
func (t *Transaction) SignedAmount() float64 {
	if t.IsDebit {
		return -t.Amount
	}
	return t.Amount
}
