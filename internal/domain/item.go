package domain

import "time"

// SavedItem is one saved link inside one collection.
//
// DecisionGroupID, Chosen are written only by the decision engine.
// Shortlisted and Dismissed are written only by the flag mutator
// and archive-others.
type SavedItem struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is the opaque item identifier.
	ID string `json:"id"`

	// CollectionID is the owning collection.
	CollectionID string `json:"collection_id"`

	// ─────────────────────────────
	// Content
	// ─────────────────────────────

	// URL is the saved link as submitted.
	URL string `json:"url"`

	// Domain is the comparison axis, derived from URL when empty.
	// Example: hotelsite.com
	Domain string `json:"domain,omitempty"`

	// Title is the scraped or user supplied title.
	Title string `json:"title,omitempty"`

	// ─────────────────────────────
	// Engagement
	// ─────────────────────────────

	// AddedAt is the creation time.
	AddedAt time.Time `json:"added_at"`

	// LastOpenedAt is nil until the item is opened once.
	LastOpenedAt *time.Time `json:"last_opened_at,omitempty"`

	// OpenCount is the number of recorded opens.
	OpenCount int `json:"open_count"`

	// ─────────────────────────────
	// Decision state
	// ─────────────────────────────

	// DecisionGroupID is empty when the item belongs to no group.
	DecisionGroupID string `json:"decision_group_id,omitempty"`

	Shortlisted bool `json:"shortlisted"`
	Dismissed   bool `json:"dismissed"`
	Chosen      bool `json:"chosen"`
}

// HasGroup reports whether the item carries a decision group id.
func (it *SavedItem) HasGroup() bool {
	return it.DecisionGroupID != ""
}

// LastActive returns the most recent of AddedAt and LastOpenedAt.
func (it *SavedItem) LastActive() time.Time {
	if it.LastOpenedAt != nil && it.LastOpenedAt.After(it.AddedAt) {
		return *it.LastOpenedAt
	}
	return it.AddedAt
}

// Clone returns a deep copy so stores never hand out shared pointers.
func (it *SavedItem) Clone() *SavedItem {
	if it == nil {
		return nil
	}
	c := *it
	if it.LastOpenedAt != nil {
		t := *it.LastOpenedAt
		c.LastOpenedAt = &t
	}
	return &c
}

// Collection groups saved items and belongs to exactly one user.
type Collection struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ItemPatch is a partial update. Nil fields are left unchanged;
// a DecisionGroupID pointing to "" clears the group.
type ItemPatch struct {
	DecisionGroupID *string
	Shortlisted     *bool
	Dismissed       *bool
	Chosen          *bool
	OpenCount       *int
	LastOpenedAt    *time.Time
}

// IsEmpty reports whether the patch changes nothing.
func (p ItemPatch) IsEmpty() bool {
	return p.DecisionGroupID == nil &&
		p.Shortlisted == nil &&
		p.Dismissed == nil &&
		p.Chosen == nil &&
		p.OpenCount == nil &&
		p.LastOpenedAt == nil
}

// Apply mutates it in place. Stores call this so every backend
// interprets a patch the same way.
func (p ItemPatch) Apply(it *SavedItem) {
	if p.DecisionGroupID != nil {
		it.DecisionGroupID = *p.DecisionGroupID
	}
	if p.Shortlisted != nil {
		it.Shortlisted = *p.Shortlisted
	}
	if p.Dismissed != nil {
		it.Dismissed = *p.Dismissed
	}
	if p.Chosen != nil {
		it.Chosen = *p.Chosen
	}
	if p.OpenCount != nil {
		it.OpenCount = *p.OpenCount
	}
	if p.LastOpenedAt != nil {
		t := *p.LastOpenedAt
		it.LastOpenedAt = &t
	}
}

// Bool returns a pointer to b, for building patches.
func Bool(b bool) *bool { return &b }

// String returns a pointer to s, for building patches.
func String(s string) *string { return &s }
