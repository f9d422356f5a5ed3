package model

import (
	"math"
	"strings"
	"time"
)

// Rule assigns a category/subcategory to transactions matching its criteria.
// A rule with no enabled criteria and no original-category constraint matches
// every transaction; specificity ordering guarantees it is considered last.
type Rule struct {
	CreatedAt           time.Time  `json:"created_at"`
	LastApplied         *time.Time `json:"last_applied,omitempty"`
	Amount              *float64   `json:"amount,omitempty"`
	ID                  string     `json:"id"`
	Description         string     `json:"description"`
	OriginalCategory    string     `json:"original_category,omitempty"`
	OriginalSubcategory string     `json:"original_subcategory,omitempty"`
	Category            string     `json:"category"`
	Subcategory         string     `json:"subcategory,omitempty"`
	MatchCount          int        `json:"match_count"`
	MatchDescription    bool       `json:"match_description"`
	MatchAmount         bool       `json:"match_amount"`
	Active              bool       `json:"active"`
}

// Specificity scores how constrained a rule is. Each optional criterion
// contributes one bit, ordered original category > original subcategory >
// description > amount, so comparing scores is equivalent to comparing the
// (origCat, origSub, matchDesc, matchAmount) tuples lexicographically.
func (r *Rule) Specificity() int {
	score := 0
	if r.OriginalCategory != "" {
		score |= 8
	}
	if r.OriginalSubcategory != "" {
		score |= 4
	}
	if r.MatchDescription {
		score |= 2
	}
	if r.MatchAmount {
		score |= 1
	}
	return score
}

// Matches reports whether the rule's criteria are satisfied by txn. When
// ignoreOriginal is true the original category/subcategory constraints are
// not checked, so the rule can be re-run against transactions whose category
// has since drifted. Returns an error for a rule whose amount matcher is
// enabled but has no amount; callers skip such rules rather than aborting.
func (r *Rule) Matches(txn Transaction, ignoreOriginal bool) (bool, error) {
	if !ignoreOriginal {
		if r.OriginalCategory != "" && r.OriginalCategory != txn.Category {
			return false, nil
		}
		if r.OriginalSubcategory != "" && r.OriginalSubcategory != txn.Subcategory {
			return false, nil
		}
	}

	if r.MatchDescription {
		pattern := strings.ToLower(strings.TrimSpace(r.Description))
		if pattern == "" {
			return false, nil
		}
		merchant := strings.ToLower(strings.TrimSpace(txn.Merchant))
		if !strings.Contains(merchant, pattern) {
			return false, nil
		}
	}

	if r.MatchAmount {
		if r.Amount == nil {
			return false, newValidationError([]string{"amount matching enabled but no amount set"})
		}
		// Stored amounts are normalized to two-decimal currency values
		// upstream, so exact comparison of magnitudes is intentional.
		if math.Abs(*r.Amount) != math.Abs(txn.Amount) {
			return false, nil
		}
	}

	return true, nil
}

// Validate ensures a caller-supplied rule is well formed.
func (r *Rule) Validate() error {
	var problems []string

	if r.MatchDescription {
		desc := strings.TrimSpace(r.Description)
		if desc == "" {
			problems = append(problems, "description is required when description matching is enabled")
		}
		if len(desc) > 200 {
			problems = append(problems, "description must be 200 characters or less")
		}
	}

	if r.MatchAmount {
		if r.Amount == nil {
			problems = append(problems, "amount is required when amount matching is enabled")
		} else if *r.Amount < 0 {
			problems = append(problems, "amount cannot be negative")
		}
	}

	if strings.TrimSpace(r.Category) == "" {
		problems = append(problems, "target category is required")
	}

	if len(problems) > 0 {
		return newValidationError(problems)
	}
	return nil
}

// MoreSpecific reports whether r outranks other: higher specificity wins,
// ties break on earlier creation time, then lexically smaller ID. The
// tie-break keeps matching deterministic regardless of rule storage order.
func (r *Rule) MoreSpecific(other *Rule) bool {
	rs, os := r.Specificity(), other.Specificity()
	if rs != os {
		return rs > os
	}
	if !r.CreatedAt.Equal(other.CreatedAt) {
		return r.CreatedAt.Before(other.CreatedAt)
	}
	return r.ID < other.ID
}
