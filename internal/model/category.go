package model

import "strings"

// Category is a canonical taxonomy entry: a name plus an ordered set of
// subcategories. Names are unique case-insensitively.
type Category struct {
	Name          string   `json:"name"`
	Subcategories []string `json:"subcategories,omitempty"`
}

// HasSubcategory reports whether the category already carries the named
// subcategory, compared case-insensitively.
func (c *Category) HasSubcategory(name string) bool {
	for _, sub := range c.Subcategories {
		if strings.EqualFold(sub, name) {
			return true
		}
	}
	return false
}

// AddSubcategory appends the subcategory if not already present and reports
// whether an addition was made.
func (c *Category) AddSubcategory(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || c.HasSubcategory(name) {
		return false
	}
	c.Subcategories = append(c.Subcategories, name)
	return true
}

// Validate ensures a caller-supplied category is well formed.
func (c *Category) Validate() error {
	var problems []string

	name := strings.TrimSpace(c.Name)
	if name == "" {
		problems = append(problems, "category name is required")
	}
	if len(name) > 50 {
		problems = append(problems, "category name must be 50 characters or less")
	}
	if name != "" && !isSafeString(name) {
		problems = append(problems, "category name contains invalid characters")
	}

	if len(problems) > 0 {
		return newValidationError(problems)
	}
	return nil
}
