package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ExtractedLineItem is one item mention pulled out of an utterance by the
// extraction model, before it is resolved against the catalog.
type ExtractedLineItem struct {
	Options  map[string]string `json:"options,omitempty"`
	RawName  string            `json:"rawName"`
	Quantity int               `json:"quantity"`
}

// ResolvedLineItem is an order line bound to a catalog item.
type ResolvedLineItem struct {
	SelectedOptions map[string]string `json:"selectedOptions,omitempty"`
	CatalogItemID   string            `json:"catalogItemId"`
	DisplayName     string            `json:"displayName"`
	RawName         string            `json:"rawName,omitempty"`
	MissingOptions  []string          `json:"missingOptions,omitempty"`
	Quantity        int               `json:"quantity"`
	MatchConfidence float64           `json:"matchConfidence"`
}

// Validate checks the line is well-formed.
func (r *ResolvedLineItem) Validate() error {
	if r.CatalogItemID == "" {
		return fmt.Errorf("line item catalog id is required")
	}
	if r.Quantity <= 0 {
		return fmt.Errorf("line item %s: quantity must be positive, got %d", r.CatalogItemID, r.Quantity)
	}
	if r.MatchConfidence < 0 || r.MatchConfidence > 1 {
		return fmt.Errorf("line item %s: match confidence must be between 0 and 1, got %.2f", r.CatalogItemID, r.MatchConfidence)
	}
	return nil
}

// HasMissingOptions reports whether required option groups are still unanswered.
func (r ResolvedLineItem) HasMissingOptions() bool {
	return len(r.MissingOptions) > 0
}

// SetOption records a choice and drops the group from the missing list.
func (r *ResolvedLineItem) SetOption(groupID, choice string) {
	if r.SelectedOptions == nil {
		r.SelectedOptions = make(map[string]string)
	}
	r.SelectedOptions[groupID] = choice

	missing := r.MissingOptions[:0]
	for _, id := range r.MissingOptions {
		if id != groupID {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		missing = nil
	}
	r.MissingOptions = missing
}

// SameSelection reports whether two lines reference the same catalog item with the
// same chosen options, in which case they can be merged.
func (r ResolvedLineItem) SameSelection(other ResolvedLineItem) bool {
	if r.CatalogItemID != other.CatalogItemID || len(r.SelectedOptions) != len(other.SelectedOptions) {
		return false
	}
	for k, v := range r.SelectedOptions {
		if other.SelectedOptions[k] != v {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the line.
func (r ResolvedLineItem) Clone() ResolvedLineItem {
	out := r
	if r.SelectedOptions != nil {
		out.SelectedOptions = make(map[string]string, len(r.SelectedOptions))
		for k, v := range r.SelectedOptions {
			out.SelectedOptions[k] = v
		}
	}
	if r.MissingOptions != nil {
		out.MissingOptions = append([]string(nil), r.MissingOptions...)
	}
	return out
}

// Describe renders the line the way it is read back to a guest, e.g.
// "2 Tonkotsu Ramen (broth: spicy)".
func (r ResolvedLineItem) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %s", r.Quantity, r.DisplayName)

	if len(r.SelectedOptions) > 0 {
		keys := make([]string, 0, len(r.SelectedOptions))
		for k := range r.SelectedOptions {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+r.SelectedOptions[k])
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
	}

	return b.String()
}

// CloneLines deep-copies a slice of lines. A nil slice stays nil.
func CloneLines(lines []ResolvedLineItem) []ResolvedLineItem {
	if lines == nil {
		return nil
	}
	out := make([]ResolvedLineItem, len(lines))
	for i, line := range lines {
		out[i] = line.Clone()
	}
	return out
}

// Summarize joins line descriptions into a sentence fragment:
// "1 Miso Soup", "1 Miso Soup and 2 Iced Tea", "1 A, 1 B, and 1 C".
func Summarize(lines []ResolvedLineItem) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, line.Describe())
	}

	switch len(parts) {
	case 0:
		return "nothing yet"
	case 1:
		return parts[0]
	case 2:
		return parts[0] + " and " + parts[1]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + ", and " + parts[len(parts)-1]
	}
}

// FinalizedOrder is a confirmed order. It is written once and never updated.
type FinalizedOrder struct {
	CreatedAt time.Time          `json:"createdAt"`
	ID        string             `json:"id"`
	GuestID   string             `json:"guestId"`
	SessionID string             `json:"sessionId,omitempty"`
	Items     []ResolvedLineItem `json:"items"`
}

// Validate ensures the order can be persisted.
func (o *FinalizedOrder) Validate() error {
	if o.ID == "" {
		return fmt.Errorf("order id is required")
	}
	if strings.TrimSpace(o.GuestID) == "" {
		return fmt.Errorf("order %s: guest id is required", o.ID)
	}
	if o.CreatedAt.IsZero() {
		return fmt.Errorf("order %s: created at is required", o.ID)
	}
	if len(o.Items) == 0 {
		return fmt.Errorf("order %s: at least one item is required", o.ID)
	}
	for i := range o.Items {
		if err := o.Items[i].Validate(); err != nil {
			return fmt.Errorf("order %s: %w", o.ID, err)
		}
		if o.Items[i].HasMissingOptions() {
			return fmt.Errorf("order %s: item %s has unanswered options", o.ID, o.Items[i].CatalogItemID)
		}
	}
	return nil
}
