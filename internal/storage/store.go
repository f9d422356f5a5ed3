// Package storage provides the data persistence layer for the tally
// application. Collections are named mappings of keyed JSON documents; the
// core never assumes a particular on-disk layout beyond this contract.
package storage

import (
	"context"
	"encoding/json"
)

// Well-known collection names.
const (
	CollectionRules        = "rules"
	CollectionTaxonomy     = "taxonomy"
	CollectionTransactions = "transactions"
	CollectionTokens       = "tokens"
)

// Store is the persistence contract for rules, the taxonomy, and the
// transaction overlay. Load returns an empty mapping for an absent
// collection. Save replaces the named collection atomically and must be
// durable before it returns without error.
type Store interface {
	Load(ctx context.Context, name string) (map[string]json.RawMessage, error)
	Save(ctx context.Context, name string, docs map[string]json.RawMessage) error
	Close() error
}
