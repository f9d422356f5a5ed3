// Package ledger assembles the merged transaction view: the provider feed
// with the stored overlay applied, manual transactions appended, rules run
// on first view, and assembled pages cached by query.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tallyhq/tally/internal/cache"
	"github.com/tallyhq/tally/internal/common"
	"github.com/tallyhq/tally/internal/model"
	"github.com/tallyhq/tally/internal/rules"
	"github.com/tallyhq/tally/internal/storage"
)

// Fetcher is the external transaction provider contract.
type Fetcher interface {
	GetTransactions(ctx context.Context, start, end time.Time) ([]model.Transaction, error)
}

// Query selects and pages the merged transaction view. Zero dates default
// to the last 90 days; zero paging defaults to the first page of 50.
type Query struct {
	StartDate time.Time
	EndDate   time.Time
	Category  string
	AccountID string
	Page      int
	PageSize  int
}

// DefaultLookback is the query window used when no start date is given.
const DefaultLookback = 90 * 24 * time.Hour

// DefaultPageSize is the page size used when none is given.
const DefaultPageSize = 50

func (q *Query) normalize(now time.Time) {
	if q.EndDate.IsZero() {
		q.EndDate = now
	}
	if q.StartDate.IsZero() {
		q.StartDate = q.EndDate.Add(-DefaultLookback)
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
}

// cacheKeys splits the query into a primary part (what data to assemble)
// and a secondary part (which slice of it to return).
func (q Query) cacheKeys() (string, string) {
	primary := fmt.Sprintf("%s|%s|%s|%s",
		q.StartDate.Format("2006-01-02"),
		q.EndDate.Format("2006-01-02"),
		q.Category,
		q.AccountID)
	secondary := fmt.Sprintf("%d|%d", q.Page, q.PageSize)
	return primary, secondary
}

// Page is one page of the assembled transaction view.
type Page struct {
	Transactions []model.Transaction
	TotalCount   int
	Page         int
	PageSize     int
	TotalPages   int
}

// Service builds the merged transaction view and owns the overlay store.
type Service struct {
	now      func() time.Time
	fetcher  Fetcher
	store    storage.Store
	matcher  *rules.Matcher
	pages    *cache.Cache[Page]
	logger   *slog.Logger
	lookback time.Duration
}

// NewService creates a ledger service. The page cache is injected so the
// caller controls its bounds and lifetime.
func NewService(fetcher Fetcher, store storage.Store, matcher *rules.Matcher, pages *cache.Cache[Page]) *Service {
	return &Service{
		fetcher:  fetcher,
		store:    store,
		matcher:  matcher,
		pages:    pages,
		logger:   slog.Default().With("component", "ledger"),
		lookback: 2 * 365 * 24 * time.Hour,
		now:      time.Now,
	}
}

// List returns one page of the merged view for q. Identical queries are
// served from the page cache and skip fetching and re-matching entirely.
func (s *Service) List(ctx context.Context, q Query) (*Page, error) {
	q.normalize(s.now())
	primary, secondary := q.cacheKeys()

	if page, ok := s.pages.GetPair(primary, secondary); ok {
		return &page, nil
	}

	merged, _, err := s.assemble(ctx, q.StartDate, q.EndDate, true)
	if err != nil {
		return nil, err
	}

	filtered := merged[:0]
	for _, txn := range merged {
		if q.Category != "" && txn.Category != q.Category {
			continue
		}
		if q.AccountID != "" && txn.AccountID != q.AccountID {
			continue
		}
		filtered = append(filtered, txn)
	}

	// Newest first; ID breaks date ties so pagination is stable.
	sort.SliceStable(filtered, func(i, j int) bool {
		if !filtered[i].Date.Equal(filtered[j].Date) {
			return filtered[i].Date.After(filtered[j].Date)
		}
		return filtered[i].ID < filtered[j].ID
	})

	total := len(filtered)
	start := (q.Page - 1) * q.PageSize
	if start > total {
		start = total
	}
	end := start + q.PageSize
	if end > total {
		end = total
	}

	page := Page{
		Transactions: append([]model.Transaction(nil), filtered[start:end]...),
		TotalCount:   total,
		Page:         q.Page,
		PageSize:     q.PageSize,
		TotalPages:   int(math.Ceil(float64(total) / float64(q.PageSize))),
	}
	s.pages.SetPair(primary, secondary, page)
	return &page, nil
}

// assemble merges the provider feed over [start, end] with the stored
// overlay and appends manual transactions. Soft-deleted transactions are
// dropped. When categorize is set, provider transactions with no stored
// modification get their category assigned by the rule matcher; the second
// return value is how many of those the matcher recategorized.
func (s *Service) assemble(ctx context.Context, start, end time.Time, categorize bool) ([]model.Transaction, int, error) {
	provider, err := s.fetcher.GetTransactions(ctx, start, end)
	if err != nil {
		return nil, 0, err
	}
	overlay, err := s.loadOverlay(ctx)
	if err != nil {
		return nil, 0, err
	}

	merged := make([]model.Transaction, 0, len(provider)+len(overlay))
	var firstView []int
	for _, txn := range provider {
		if rec, ok := overlay[txn.ID]; ok {
			if rec.Deleted {
				continue
			}
			rec.ApplyTo(&txn)
		} else if categorize {
			firstView = append(firstView, len(merged))
		}
		txn.Category = txn.EffectiveCategory()
		merged = append(merged, txn)
	}

	matched := 0
	if len(firstView) > 0 {
		fresh := make([]model.Transaction, len(firstView))
		for i, idx := range firstView {
			fresh[i] = merged[idx]
		}
		if matched, err = s.matcher.CategorizeAll(ctx, fresh); err != nil {
			return nil, 0, err
		}
		for i, idx := range firstView {
			merged[idx] = fresh[i]
		}
	}

	for _, rec := range overlay {
		if !rec.Manual || rec.Deleted {
			continue
		}
		txn := rec.Transaction()
		if txn.Date.Before(start) || txn.Date.After(end) {
			continue
		}
		txn.Category = txn.EffectiveCategory()
		merged = append(merged, txn)
	}

	return merged, matched, nil
}

// SyncResult summarizes one provider sync pass.
type SyncResult struct {
	Fetched     int
	Categorized int
}

// Sync fetches the provider feed over [start, end], runs rules on
// transactions seen for the first time, and drops cached pages so the next
// view reflects the fresh data. Zero bounds default like a query: end is
// now, start is end minus the default lookback.
func (s *Service) Sync(ctx context.Context, start, end time.Time) (*SyncResult, error) {
	if end.IsZero() {
		end = s.now()
	}
	if start.IsZero() {
		start = end.Add(-DefaultLookback)
	}

	merged, categorized, err := s.assemble(ctx, start, end, true)
	if err != nil {
		return nil, err
	}
	s.pages.Clear()

	s.logger.Info("sync complete", "transactions", len(merged), "categorized", categorized)
	return &SyncResult{Fetched: len(merged), Categorized: categorized}, nil
}

// ListAll returns every known transaction over the service's lookback
// window: provider transactions with overrides applied plus manual ones,
// skipping soft-deleted. Used by the taxonomy sync pass; does not run the
// rule matcher.
func (s *Service) ListAll(ctx context.Context) ([]model.Transaction, error) {
	end := s.now()
	all, _, err := s.assemble(ctx, end.Add(-s.lookback), end, false)
	return all, err
}

// ListStored returns the stored transaction set: overlay records
// materialized as transactions, excluding soft-deleted ones. This is the set
// bulk rule application operates on.
func (s *Service) ListStored(ctx context.Context) ([]model.Transaction, error) {
	overlay, err := s.loadOverlay(ctx)
	if err != nil {
		return nil, err
	}

	stored := make([]model.Transaction, 0, len(overlay))
	for _, rec := range overlay {
		if rec.Deleted {
			continue
		}
		stored = append(stored, rec.Transaction())
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].ID < stored[j].ID })
	return stored, nil
}

// UpdateStored writes changed transactions back into the overlay,
// preserving each record's ownership flags, and invalidates the page cache.
func (s *Service) UpdateStored(ctx context.Context, txns []model.Transaction) error {
	if len(txns) == 0 {
		return nil
	}

	overlay, err := s.loadOverlay(ctx)
	if err != nil {
		return err
	}
	for _, txn := range txns {
		if existing, ok := overlay[txn.ID]; ok {
			txn.Manual = existing.Manual
			txn.Deleted = existing.Deleted
		}
		overlay[txn.ID] = model.NewOverlay(txn)
	}

	if err := s.saveOverlay(ctx, overlay); err != nil {
		return err
	}
	s.pages.Clear()
	return nil
}

// AddTransaction creates a user-entered transaction, fully owned by the
// overlay store.
func (s *Service) AddTransaction(ctx context.Context, txn model.Transaction) (model.Transaction, error) {
	txn.Manual = true
	txn.Deleted = false
	txn.Category = txn.EffectiveCategory()
	if err := txn.Validate(); err != nil {
		return model.Transaction{}, err
	}
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}

	overlay, err := s.loadOverlay(ctx)
	if err != nil {
		return model.Transaction{}, err
	}
	overlay[txn.ID] = model.NewOverlay(txn)
	if err := s.saveOverlay(ctx, overlay); err != nil {
		return model.Transaction{}, err
	}

	s.pages.Clear()
	return txn, nil
}

// ImportTransactions stores externally parsed transactions (statement file
// imports) as manual records, skipping IDs already present. Returns how
// many were imported.
func (s *Service) ImportTransactions(ctx context.Context, txns []model.Transaction) (int, error) {
	overlay, err := s.loadOverlay(ctx)
	if err != nil {
		return 0, err
	}

	imported := 0
	for _, txn := range txns {
		if txn.ID == "" {
			txn.ID = uuid.NewString()
		}
		if _, ok := overlay[txn.ID]; ok {
			continue
		}
		txn.Manual = true
		txn.Deleted = false
		txn.Category = txn.EffectiveCategory()
		overlay[txn.ID] = model.NewOverlay(txn)
		imported++
	}

	if imported == 0 {
		return 0, nil
	}
	if err := s.saveOverlay(ctx, overlay); err != nil {
		return 0, err
	}
	s.pages.Clear()
	return imported, nil
}

// UpdateTransaction records an edit as an overlay record. Provider
// transactions stay read-only at the source; the stored modification wins
// at assembly time. Manual transactions are replaced outright.
func (s *Service) UpdateTransaction(ctx context.Context, txn model.Transaction) error {
	if strings.TrimSpace(txn.ID) == "" {
		return common.NewValidationError("transaction ID is required")
	}
	if err := txn.Validate(); err != nil {
		return err
	}

	overlay, err := s.loadOverlay(ctx)
	if err != nil {
		return err
	}
	if existing, ok := overlay[txn.ID]; ok {
		txn.Manual = existing.Manual
	} else {
		txn.Manual = false
	}
	txn.Deleted = false
	overlay[txn.ID] = model.NewOverlay(txn)

	if err := s.saveOverlay(ctx, overlay); err != nil {
		return err
	}
	s.pages.Clear()
	return nil
}

// DeleteTransaction removes a manual transaction outright; provider
// transactions get a soft-delete overlay record since the provider remains
// the source of truth.
func (s *Service) DeleteTransaction(ctx context.Context, id string) error {
	overlay, err := s.loadOverlay(ctx)
	if err != nil {
		return err
	}

	if rec, ok := overlay[id]; ok && rec.Manual {
		delete(overlay, id)
	} else if ok {
		rec.Deleted = true
		overlay[id] = rec
	} else {
		overlay[id] = model.StoredTransaction{ID: id, Deleted: true}
	}

	if err := s.saveOverlay(ctx, overlay); err != nil {
		return err
	}
	s.pages.Clear()
	return nil
}

// InvalidateCache drops all cached pages. Called after rule changes so the
// next view reflects them.
func (s *Service) InvalidateCache() {
	s.pages.Clear()
}

// CacheStats exposes page cache statistics.
func (s *Service) CacheStats() cache.Stats {
	return s.pages.Stats()
}

func (s *Service) loadOverlay(ctx context.Context) (map[string]model.StoredTransaction, error) {
	docs, err := s.store.Load(ctx, storage.CollectionTransactions)
	if err != nil {
		return nil, err
	}

	overlay := make(map[string]model.StoredTransaction, len(docs))
	for key, raw := range docs {
		var rec model.StoredTransaction
		if err := json.Unmarshal(raw, &rec); err != nil {
			s.logger.Warn("skipping malformed transaction record", "key", key, "error", err)
			continue
		}
		overlay[rec.ID] = rec
	}
	return overlay, nil
}

func (s *Service) saveOverlay(ctx context.Context, overlay map[string]model.StoredTransaction) error {
	docs := make(map[string]json.RawMessage, len(overlay))
	for id, rec := range overlay {
		raw, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal transaction %q: %w", id, err)
		}
		docs[id] = raw
	}
	return s.store.Save(ctx, storage.CollectionTransactions, docs)
}
