package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }

func TestRule_Specificity(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
		want int
	}{
		{
			name: "maximally broad rule",
			rule: Rule{},
			want: 0,
		},
		{
			name: "description only",
			rule: Rule{MatchDescription: true},
			want: 2,
		},
		{
			name: "original category and amount",
			rule: Rule{OriginalCategory: "Uncategorized", MatchAmount: true},
			want: 9,
		},
		{
			name: "fully constrained",
			rule: Rule{
				OriginalCategory:    "Food",
				OriginalSubcategory: "Coffee",
				MatchDescription:    true,
				MatchAmount:         true,
			},
			want: 15,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rule.Specificity())
		})
	}
}

func TestRule_Matches(t *testing.T) {
	txn := Transaction{
		ID:       "t1",
		Merchant: "  STARBUCKS #4  ",
		Amount:   12.50,
		Category: "Uncategorized",
	}

	tests := []struct {
		name           string
		rule           Rule
		ignoreOriginal bool
		want           bool
		wantErr        bool
	}{
		{
			name: "description substring match is case-insensitive",
			rule: Rule{Description: "starbucks", MatchDescription: true},
			want: true,
		},
		{
			name: "description mismatch",
			rule: Rule{Description: "peets", MatchDescription: true},
			want: false,
		},
		{
			name: "empty description pattern never matches",
			rule: Rule{Description: "   ", MatchDescription: true},
			want: false,
		},
		{
			name: "amount magnitude match",
			rule: Rule{Amount: floatPtr(-12.50), MatchAmount: true},
			want: true,
		},
		{
			name: "amount mismatch",
			rule: Rule{Amount: floatPtr(12.51), MatchAmount: true},
			want: false,
		},
		{
			name:    "amount matching without amount is malformed",
			rule:    Rule{MatchAmount: true},
			wantErr: true,
		},
		{
			name: "original category constraint honored",
			rule: Rule{OriginalCategory: "Travel"},
			want: false,
		},
		{
			name:           "original category constraint ignored on request",
			rule:           Rule{OriginalCategory: "Travel"},
			ignoreOriginal: true,
			want:           true,
		},
		{
			name: "no criteria matches everything",
			rule: Rule{},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.rule.Matches(txn, tt.ignoreOriginal)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRule_MoreSpecific_TieBreak(t *testing.T) {
	earlier := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	later := earlier.Add(24 * time.Hour)

	a := Rule{ID: "b", CreatedAt: later, MatchDescription: true}
	b := Rule{ID: "a", CreatedAt: earlier, MatchDescription: true}
	assert.True(t, b.MoreSpecific(&a), "earlier creation wins on equal specificity")

	c := Rule{ID: "a", CreatedAt: earlier, MatchDescription: true}
	d := Rule{ID: "b", CreatedAt: earlier, MatchDescription: true}
	assert.True(t, c.MoreSpecific(&d), "smaller ID wins on equal creation time")

	broad := Rule{ID: "a", CreatedAt: earlier}
	narrow := Rule{ID: "z", CreatedAt: later, OriginalCategory: "Food"}
	assert.True(t, narrow.MoreSpecific(&broad), "specificity outranks age")
}

func TestRule_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rule    Rule
		wantErr string
	}{
		{
			name: "valid rule",
			rule: Rule{Description: "starbucks", MatchDescription: true, Category: "Coffee"},
		},
		{
			name:    "description matching requires description",
			rule:    Rule{MatchDescription: true, Category: "Coffee"},
			wantErr: "description is required",
		},
		{
			name:    "amount matching requires amount",
			rule:    Rule{MatchAmount: true, Category: "Coffee"},
			wantErr: "amount is required",
		},
		{
			name:    "negative amount rejected",
			rule:    Rule{MatchAmount: true, Amount: floatPtr(-1), Category: "Coffee"},
			wantErr: "amount cannot be negative",
		},
		{
			name:    "target category required",
			rule:    Rule{Description: "x", MatchDescription: true},
			wantErr: "target category is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
