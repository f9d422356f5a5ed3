package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategory_Subcategories(t *testing.T) {
	cat := Category{Name: "Food", Subcategories: []string{"Coffee"}}

	assert.True(t, cat.HasSubcategory("coffee"), "lookup is case-insensitive")
	assert.False(t, cat.HasSubcategory("Dining Out"))

	assert.True(t, cat.AddSubcategory("Dining Out"))
	assert.Equal(t, []string{"Coffee", "Dining Out"}, cat.Subcategories)

	assert.False(t, cat.AddSubcategory("dining out"), "duplicate add is a no-op")
	assert.False(t, cat.AddSubcategory("  "), "blank subcategory is a no-op")
	assert.Len(t, cat.Subcategories, 2)
}

func TestCategory_Validate(t *testing.T) {
	assert.NoError(t, (&Category{Name: "Food & Drink"}).Validate())
	assert.Error(t, (&Category{}).Validate())
	assert.Error(t, (&Category{Name: "<bad>"}).Validate())

	long := make([]byte, 51)
	for i := range long {
		long[i] = 'a'
	}
	assert.Error(t, (&Category{Name: string(long)}).Validate())
}
