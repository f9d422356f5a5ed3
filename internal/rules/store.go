// Package rules holds the categorization rule set and canonical taxonomy,
// and implements rule matching and bulk re-application.
package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tallyhq/tally/internal/common"
	"github.com/tallyhq/tally/internal/model"
	"github.com/tallyhq/tally/internal/storage"
)

// Store holds the rule set and taxonomy, persisting both through the
// storage collaborator. Safe for concurrent use.
type Store struct {
	store  storage.Store
	logger *slog.Logger
	rules  []model.Rule
	cats   []model.Category
	loaded bool
	mu     sync.RWMutex
}

// NewStore creates a rule store backed by st. Collections are loaded lazily
// on first access.
func NewStore(st storage.Store) *Store {
	return &Store{
		store:  st,
		logger: slog.Default().With("component", "rules"),
	}
}

// ensureLoaded populates the in-memory rule set and taxonomy from storage.
// Documents that fail to unmarshal are logged and skipped rather than
// failing the whole load.
func (s *Store) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	ruleDocs, err := s.store.Load(ctx, storage.CollectionRules)
	if err != nil {
		return err
	}
	rules := make([]model.Rule, 0, len(ruleDocs))
	for key, raw := range ruleDocs {
		var r model.Rule
		if err := json.Unmarshal(raw, &r); err != nil {
			s.logger.Warn("skipping malformed rule document", "key", key, "error", err)
			continue
		}
		rules = append(rules, r)
	}
	sort.Slice(rules, func(i, j int) bool {
		if !rules[i].CreatedAt.Equal(rules[j].CreatedAt) {
			return rules[i].CreatedAt.Before(rules[j].CreatedAt)
		}
		return rules[i].ID < rules[j].ID
	})

	catDocs, err := s.store.Load(ctx, storage.CollectionTaxonomy)
	if err != nil {
		return err
	}
	cats := make([]model.Category, 0, len(catDocs))
	for key, raw := range catDocs {
		var c model.Category
		if err := json.Unmarshal(raw, &c); err != nil {
			s.logger.Warn("skipping malformed taxonomy document", "key", key, "error", err)
			continue
		}
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool {
		return strings.ToLower(cats[i].Name) < strings.ToLower(cats[j].Name)
	})

	s.rules = rules
	s.cats = cats
	s.loaded = true
	return nil
}

// Rules returns a copy of every rule.
func (s *Store) Rules(ctx context.Context) ([]model.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Rule, len(s.rules))
	copy(out, s.rules)
	return out, nil
}

// ActiveRules returns a copy of every active rule.
func (s *Store) ActiveRules(ctx context.Context) ([]model.Rule, error) {
	all, err := s.Rules(ctx)
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, r := range all {
		if r.Active {
			active = append(active, r)
		}
	}
	return active, nil
}

// Rule returns the rule with the given ID.
func (s *Store) Rule(ctx context.Context, id string) (model.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return model.Rule{}, err
	}
	for _, r := range s.rules {
		if r.ID == id {
			return r, nil
		}
	}
	return model.Rule{}, common.NewNotFoundError("rule", id)
}

// AddRule validates and persists a new rule. A missing ID and creation time
// are filled in.
func (s *Store) AddRule(ctx context.Context, r *model.Rule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	for _, existing := range s.rules {
		if existing.ID == r.ID {
			return common.NewValidationError(fmt.Sprintf("rule %q already exists", r.ID))
		}
	}
	s.rules = append(s.rules, *r)
	return s.saveRulesLocked(ctx)
}

// UpdateRule validates and persists changes to an existing rule.
func (s *Store) UpdateRule(ctx context.Context, r model.Rule) error {
	if err := r.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	for i := range s.rules {
		if s.rules[i].ID == r.ID {
			s.rules[i] = r
			return s.saveRulesLocked(ctx)
		}
	}
	return common.NewNotFoundError("rule", r.ID)
}

// DeleteRule removes a rule by ID.
func (s *Store) DeleteRule(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	for i := range s.rules {
		if s.rules[i].ID == id {
			s.rules = append(s.rules[:i], s.rules[i+1:]...)
			return s.saveRulesLocked(ctx)
		}
	}
	return common.NewNotFoundError("rule", id)
}

// RecordMatches increments match counts and stamps last-applied for the
// given rules, persisting the rule set once.
func (s *Store) RecordMatches(ctx context.Context, counts map[string]int, at time.Time) error {
	if len(counts) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	for i := range s.rules {
		n, ok := counts[s.rules[i].ID]
		if !ok || n <= 0 {
			continue
		}
		s.rules[i].MatchCount += n
		applied := at
		s.rules[i].LastApplied = &applied
	}
	return s.saveRulesLocked(ctx)
}

func (s *Store) saveRulesLocked(ctx context.Context) error {
	docs := make(map[string]json.RawMessage, len(s.rules))
	for _, r := range s.rules {
		raw, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to marshal rule %q: %w", r.ID, err)
		}
		docs[r.ID] = raw
	}
	return s.store.Save(ctx, storage.CollectionRules, docs)
}

// Categories returns a copy of the canonical taxonomy.
func (s *Store) Categories(ctx context.Context) ([]model.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Category, len(s.cats))
	copy(out, s.cats)
	return out, nil
}

// ReplaceCategories persists a new taxonomy wholesale.
func (s *Store) ReplaceCategories(ctx context.Context, cats []model.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	s.cats = make([]model.Category, len(cats))
	copy(s.cats, cats)
	return s.saveCategoriesLocked(ctx)
}

// AddCategory appends a new taxonomy entry. Names are unique
// case-insensitively.
func (s *Store) AddCategory(ctx context.Context, cat model.Category) error {
	if err := cat.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	for _, existing := range s.cats {
		if strings.EqualFold(existing.Name, cat.Name) {
			return common.NewValidationError(fmt.Sprintf("category %q already exists", cat.Name))
		}
	}
	s.cats = append(s.cats, cat)
	return s.saveCategoriesLocked(ctx)
}

// DeleteCategory removes a taxonomy entry by name. Removal is always an
// explicit operation; the sync pass never deletes.
func (s *Store) DeleteCategory(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	for i := range s.cats {
		if strings.EqualFold(s.cats[i].Name, name) {
			s.cats = append(s.cats[:i], s.cats[i+1:]...)
			return s.saveCategoriesLocked(ctx)
		}
	}
	return common.NewNotFoundError("category", name)
}

func (s *Store) saveCategoriesLocked(ctx context.Context) error {
	docs := make(map[string]json.RawMessage, len(s.cats))
	for _, c := range s.cats {
		raw, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal category %q: %w", c.Name, err)
		}
		docs[strings.ToLower(c.Name)] = raw
	}
	return s.store.Save(ctx, storage.CollectionTaxonomy, docs)
}
