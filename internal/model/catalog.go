package model

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var whitespace = regexp.MustCompile(`\s+`)

// NormalizeName lowercases s and collapses runs of whitespace so that
// "  Green   Dragon Roll" and "green dragon roll" compare equal.
func NormalizeName(s string) string {
	return whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}

// words reduces s to its letter and digit runs joined by single spaces, so
// "mild, thanks!" reads as "mild thanks".
func words(s string) string {
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), " ")
}

// OptionGroup is a set of mutually exclusive choices on a menu item, e.g. the broth
// of a ramen bowl.
type OptionGroup struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Choices  []string `json:"choices" yaml:"choices"`
	Required bool     `json:"required" yaml:"required"`
}

// MatchChoice resolves a free-text answer to one of the group's choices.
// An exact (normalized) answer wins; otherwise the longest choice mentioned as
// whole words inside the answer is used.
func (g OptionGroup) MatchChoice(answer string) (string, bool) {
	normalized := NormalizeName(answer)
	if normalized == "" {
		return "", false
	}

	for _, choice := range g.Choices {
		if NormalizeName(choice) == normalized {
			return choice, true
		}
	}

	padded := " " + words(normalized) + " "
	best := ""
	for _, choice := range g.Choices {
		c := words(NormalizeName(choice))
		if c == "" {
			continue
		}
		if strings.Contains(padded, " "+c+" ") && len(c) > len(words(NormalizeName(best))) {
			best = choice
		}
	}

	return best, best != ""
}

// CatalogItem is one orderable menu entry together with its precomputed embedding.
type CatalogItem struct {
	ID             string        `json:"id" yaml:"id"`
	DisplayName    string        `json:"displayName" yaml:"name"`
	Description    string        `json:"description,omitempty" yaml:"description"`
	Category       string        `json:"category,omitempty" yaml:"category"`
	Embedding      []float32     `json:"embedding,omitempty" yaml:"-"`
	OptionGroups   []OptionGroup `json:"optionGroups,omitempty" yaml:"options"`
	Ingredients    []string      `json:"ingredients,omitempty" yaml:"ingredients"`
	Allergens      []string      `json:"allergens,omitempty" yaml:"allergens"`
	PopularityRank int           `json:"popularityRank,omitempty" yaml:"popularity_rank"`
	Price          float64       `json:"price,omitempty" yaml:"price"`
}

// Validate ensures the item can be stored and matched.
func (c *CatalogItem) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("catalog item id is required")
	}
	if strings.TrimSpace(c.DisplayName) == "" {
		return fmt.Errorf("catalog item %s: display name is required", c.ID)
	}
	if c.PopularityRank < 0 {
		return fmt.Errorf("catalog item %s: popularity rank must not be negative", c.ID)
	}

	seen := make(map[string]bool, len(c.OptionGroups))
	for _, group := range c.OptionGroups {
		if group.ID == "" {
			return fmt.Errorf("catalog item %s: option group id is required", c.ID)
		}
		if seen[group.ID] {
			return fmt.Errorf("catalog item %s: duplicate option group %q", c.ID, group.ID)
		}
		seen[group.ID] = true
		if group.Required && len(group.Choices) == 0 {
			return fmt.Errorf("catalog item %s: required option group %q has no choices", c.ID, group.ID)
		}
	}

	return nil
}

// RequiredOptionGroups returns the groups that must be answered before the item can be
// confirmed, in menu order.
func (c CatalogItem) RequiredOptionGroups() []OptionGroup {
	var required []OptionGroup
	for _, group := range c.OptionGroups {
		if group.Required {
			required = append(required, group)
		}
	}
	return required
}

// IsDrink reports whether the item belongs to a drink or beverage category.
func (c CatalogItem) IsDrink() bool {
	category := strings.ToLower(c.Category)
	return strings.Contains(category, "drink") || strings.Contains(category, "beverage")
}

// EmbeddingText is the text whose vector represents the item in the catalog cache.
func (c CatalogItem) EmbeddingText() string {
	if c.Description == "" {
		return c.DisplayName
	}
	return c.DisplayName + " - " + c.Description
}

// HasEmbedding reports whether a vector has been computed for the item.
func (c CatalogItem) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// DetectOptions returns the choices of c's option groups that are mentioned inside a
// spoken item name, e.g. "beef gyoza" selects "beef" for the filling group.
func (c CatalogItem) DetectOptions(spoken string) map[string]string {
	detected := make(map[string]string)
	for _, group := range c.OptionGroups {
		if choice, ok := group.MatchChoice(spoken); ok {
			detected[group.ID] = choice
		}
	}
	return detected
}

// ResolveOptions keeps the entries of raw whose key names one of c's option groups
// (by id or name) and whose value is a valid choice. Keys come back as group ids.
func (c CatalogItem) ResolveOptions(raw map[string]string) map[string]string {
	resolved := make(map[string]string)
	for key, value := range raw {
		for _, group := range c.OptionGroups {
			if NormalizeName(key) != NormalizeName(group.ID) && NormalizeName(key) != NormalizeName(group.Name) {
				continue
			}
			if choice, ok := group.MatchChoice(value); ok {
				resolved[group.ID] = choice
			}
		}
	}
	return resolved
}

// BetterRank reports whether popularity rank a outranks b. Rank 1 is the most popular
// item; zero means unranked and loses to any ranked item.
func BetterRank(a, b int) bool {
	switch {
	case a == b:
		return false
	case a == 0:
		return false
	case b == 0:
		return true
	default:
		return a < b
	}
}
