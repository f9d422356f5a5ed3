package plaid

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tallyhq/tally/internal/cache"
	"github.com/tallyhq/tally/internal/common"
	"github.com/tallyhq/tally/internal/storage"
)

const accessTokenKey = "access_token"

// tokenRecord is the persisted shape of a linked item's credentials.
type tokenRecord struct {
	LinkedAt    time.Time `json:"linked_at"`
	AccessToken string    `json:"access_token"`
	ItemID      string    `json:"item_id"`
}

// TokenManager persists the Plaid access token and serves it through a
// short-lived cache so repeated lookups skip storage.
type TokenManager struct {
	store  storage.Store
	tokens *cache.Cache[tokenRecord]
	logger *slog.Logger
}

// NewTokenManager creates a token manager backed by st.
func NewTokenManager(st storage.Store) *TokenManager {
	return &TokenManager{
		store:  st,
		tokens: cache.New[tokenRecord](10, time.Hour),
		logger: slog.Default().With("component", "tokens"),
	}
}

// AccessToken returns the stored access token. Returns
// common.ErrNoAccessToken when no item has been linked.
func (m *TokenManager) AccessToken(ctx context.Context) (string, error) {
	if rec, ok := m.tokens.Get(accessTokenKey); ok {
		return rec.AccessToken, nil
	}

	docs, err := m.store.Load(ctx, storage.CollectionTokens)
	if err != nil {
		return "", err
	}
	raw, ok := docs[accessTokenKey]
	if !ok {
		return "", common.ErrNoAccessToken
	}

	var rec tokenRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return "", fmt.Errorf("failed to decode stored token: %w", err)
	}
	if rec.AccessToken == "" {
		return "", common.ErrNoAccessToken
	}

	m.tokens.Set(accessTokenKey, rec)
	return rec.AccessToken, nil
}

// SaveAccessToken persists a newly exchanged access token, replacing any
// previous item link.
func (m *TokenManager) SaveAccessToken(ctx context.Context, accessToken, itemID string) error {
	if accessToken == "" {
		return common.NewValidationError("access token cannot be empty")
	}

	rec := tokenRecord{
		AccessToken: accessToken,
		ItemID:      itemID,
		LinkedAt:    time.Now().UTC(),
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	docs, err := m.store.Load(ctx, storage.CollectionTokens)
	if err != nil {
		return err
	}
	docs[accessTokenKey] = raw
	if err := m.store.Save(ctx, storage.CollectionTokens, docs); err != nil {
		return err
	}

	m.tokens.Set(accessTokenKey, rec)
	m.logger.Info("access token saved", "item_id", itemID)
	return nil
}

// ClearAccessToken removes the stored item link.
func (m *TokenManager) ClearAccessToken(ctx context.Context) error {
	docs, err := m.store.Load(ctx, storage.CollectionTokens)
	if err != nil {
		return err
	}
	delete(docs, accessTokenKey)
	if err := m.store.Save(ctx, storage.CollectionTokens, docs); err != nil {
		return err
	}
	m.tokens.Delete(accessTokenKey)
	return nil
}
