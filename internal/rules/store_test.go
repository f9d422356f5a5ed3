package rules

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyhq/tally/internal/common"
	"github.com/tallyhq/tally/internal/model"
	"github.com/tallyhq/tally/internal/storage"
)

func newTestRule(id, category string) model.Rule {
	return model.Rule{
		ID:               id,
		Description:      "coffee",
		MatchDescription: true,
		Category:         category,
		Active:           true,
		CreatedAt:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestStoreAddRule(t *testing.T) {
	ctx := context.Background()
	store := NewStore(storage.NewMemoryStore())

	t.Run("fills in ID and creation time", func(t *testing.T) {
		r := model.Rule{
			Description:      "netflix",
			MatchDescription: true,
			Category:         "Entertainment",
			Active:           true,
		}
		require.NoError(t, store.AddRule(ctx, &r))
		assert.NotEmpty(t, r.ID)
		assert.False(t, r.CreatedAt.IsZero())
	})

	t.Run("rejects duplicate ID", func(t *testing.T) {
		r := newTestRule("dup", "Coffee")
		require.NoError(t, store.AddRule(ctx, &r))

		again := newTestRule("dup", "Coffee")
		err := store.AddRule(ctx, &again)
		require.Error(t, err)
		assert.True(t, common.IsValidation(err))
	})

	t.Run("rejects invalid rule", func(t *testing.T) {
		r := model.Rule{MatchDescription: true, Category: "Coffee"}
		err := store.AddRule(ctx, &r)
		require.Error(t, err)
		assert.True(t, common.IsValidation(err))
	})
}

func TestStoreRuleLookup(t *testing.T) {
	ctx := context.Background()
	store := NewStore(storage.NewMemoryStore())

	r := newTestRule("r1", "Coffee")
	require.NoError(t, store.AddRule(ctx, &r))

	got, err := store.Rule(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Coffee", got.Category)

	_, err = store.Rule(ctx, "missing")
	require.Error(t, err)
	assert.True(t, common.IsNotFound(err))
}

func TestStoreUpdateAndDeleteRule(t *testing.T) {
	ctx := context.Background()
	store := NewStore(storage.NewMemoryStore())

	r := newTestRule("r1", "Coffee")
	require.NoError(t, store.AddRule(ctx, &r))

	r.Category = "Dining"
	require.NoError(t, store.UpdateRule(ctx, r))
	got, err := store.Rule(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Dining", got.Category)

	missing := newTestRule("nope", "Coffee")
	err = store.UpdateRule(ctx, missing)
	assert.True(t, common.IsNotFound(err))

	require.NoError(t, store.DeleteRule(ctx, "r1"))
	_, err = store.Rule(ctx, "r1")
	assert.True(t, common.IsNotFound(err))

	err = store.DeleteRule(ctx, "r1")
	assert.True(t, common.IsNotFound(err))
}

func TestStoreActiveRules(t *testing.T) {
	ctx := context.Background()
	store := NewStore(storage.NewMemoryStore())

	active := newTestRule("a", "Coffee")
	inactive := newTestRule("b", "Coffee")
	inactive.Active = false
	require.NoError(t, store.AddRule(ctx, &active))
	require.NoError(t, store.AddRule(ctx, &inactive))

	got, err := store.ActiveRules(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestStoreRecordMatches(t *testing.T) {
	ctx := context.Background()
	store := NewStore(storage.NewMemoryStore())

	r1 := newTestRule("r1", "Coffee")
	r2 := newTestRule("r2", "Dining")
	require.NoError(t, store.AddRule(ctx, &r1))
	require.NoError(t, store.AddRule(ctx, &r2))

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.RecordMatches(ctx, map[string]int{"r1": 3}, at))

	got, err := store.Rule(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.MatchCount)
	require.NotNil(t, got.LastApplied)
	assert.True(t, got.LastApplied.Equal(at))

	untouched, err := store.Rule(ctx, "r2")
	require.NoError(t, err)
	assert.Zero(t, untouched.MatchCount)
	assert.Nil(t, untouched.LastApplied)
}

func TestStorePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	backing := storage.NewMemoryStore()

	first := NewStore(backing)
	r := newTestRule("r1", "Coffee")
	require.NoError(t, first.AddRule(ctx, &r))
	require.NoError(t, first.AddCategory(ctx, model.Category{Name: "Coffee"}))

	second := NewStore(backing)
	rules, err := second.Rules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "r1", rules[0].ID)

	cats, err := second.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Coffee", cats[0].Name)
}

func TestStoreCategories(t *testing.T) {
	ctx := context.Background()
	store := NewStore(storage.NewMemoryStore())

	require.NoError(t, store.AddCategory(ctx, model.Category{Name: "Food"}))

	t.Run("duplicate names are case-insensitive", func(t *testing.T) {
		err := store.AddCategory(ctx, model.Category{Name: "food"})
		require.Error(t, err)
		assert.True(t, common.IsValidation(err))
	})

	t.Run("delete removes the entry", func(t *testing.T) {
		require.NoError(t, store.DeleteCategory(ctx, "FOOD"))
		cats, err := store.Categories(ctx)
		require.NoError(t, err)
		assert.Empty(t, cats)
	})

	t.Run("delete of unknown category fails", func(t *testing.T) {
		err := store.DeleteCategory(ctx, "Food")
		assert.True(t, common.IsNotFound(err))
	})
}

func TestStoreSkipsMalformedDocuments(t *testing.T) {
	ctx := context.Background()
	backing := storage.NewMemoryStore()

	good := newTestRule("good", "Coffee")
	first := NewStore(backing)
	require.NoError(t, first.AddRule(ctx, &good))

	docs, err := backing.Load(ctx, storage.CollectionRules)
	require.NoError(t, err)
	docs["bad"] = []byte(`{"id": 42`)
	require.NoError(t, backing.Save(ctx, storage.CollectionRules, docs))

	second := NewStore(backing)
	rules, err := second.Rules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "good", rules[0].ID)
}
