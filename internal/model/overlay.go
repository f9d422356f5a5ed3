package model

import "time"

// StoredTransaction is an overlay record keyed by transaction ID. Provider
// transactions are read-only at the source, so edits and deletions are
// recorded here and applied over the provider feed at assembly time. Manual
// transactions are fully owned by the overlay and carry every field.
//
// Override fields are pointers: nil means "not overridden".
type StoredTransaction struct {
	Date        *time.Time `json:"date,omitempty"`
	Amount      *float64   `json:"amount,omitempty"`
	IsDebit     *bool      `json:"is_debit,omitempty"`
	ID          string     `json:"id"`
	Merchant    string     `json:"merchant,omitempty"`
	Category    string     `json:"category,omitempty"`
	Subcategory string     `json:"subcategory,omitempty"`
	AccountID   string     `json:"account_id,omitempty"`
	Manual      bool       `json:"manual,omitempty"`
	Deleted     bool       `json:"deleted,omitempty"`
}

// NewOverlay snapshots a transaction into a stored record carrying every
// field, so later passes (bulk rule application, taxonomy sync) can operate
// on stored records without refetching the provider feed.
func NewOverlay(txn Transaction) StoredTransaction {
	date := txn.Date
	amount := txn.Amount
	isDebit := txn.IsDebit
	return StoredTransaction{
		ID:          txn.ID,
		Date:        &date,
		Amount:      &amount,
		IsDebit:     &isDebit,
		Merchant:    txn.Merchant,
		Category:    txn.Category,
		Subcategory: txn.Subcategory,
		AccountID:   txn.AccountID,
		Manual:      txn.Manual,
		Deleted:     txn.Deleted,
	}
}

// ApplyTo overrides txn's fields with whatever the overlay carries.
func (s *StoredTransaction) ApplyTo(txn *Transaction) {
	if s.Date != nil {
		txn.Date = *s.Date
	}
	if s.Amount != nil {
		txn.Amount = *s.Amount
	}
	if s.IsDebit != nil {
		txn.IsDebit = *s.IsDebit
	}
	if s.Merchant != "" {
		txn.Merchant = s.Merchant
	}
	if s.Category != "" {
		txn.Category = s.Category
	}
	if s.Subcategory != "" {
		txn.Subcategory = s.Subcategory
	}
	if s.Deleted {
		txn.Deleted = true
	}
}

// Transaction materializes the stored record as a transaction. Fields the
// overlay does not carry are zero-valued.
func (s *StoredTransaction) Transaction() Transaction {
	txn := Transaction{
		ID:          s.ID,
		Merchant:    s.Merchant,
		Category:    s.Category,
		Subcategory: s.Subcategory,
		AccountID:   s.AccountID,
		Manual:      s.Manual,
		Deleted:     s.Deleted,
	}
	if s.Date != nil {
		txn.Date = *s.Date
	}
	if s.Amount != nil {
		txn.Amount = *s.Amount
	}
	if s.IsDebit != nil {
		txn.IsDebit = *s.IsDebit
	}
	return txn
}
