package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/shortlist/internal/domain"
)

// Dataset is a seed file mapped onto domain entities.
type Dataset struct {
	Collections []*domain.Collection
	Items       []*domain.SavedItem
}

// Mapper converts seed files to domain entities
type Mapper struct {
	now func() time.Time
}

// NewMapper creates a new mapper instance. Relative ages are resolved
// against now.
func NewMapper(now func() time.Time) *Mapper {
	if now == nil {
		now = time.Now
	}
	return &Mapper{now: now}
}

// Map validates f and converts it. Collection and link ids must be unique
// across the whole file.
func (m *Mapper) Map(f *File) (*Dataset, error) {
	now := m.now().UTC()
	ds := &Dataset{}
	seenCollections := make(map[string]bool)
	seenLinks := make(map[string]bool)

	for i, c := range f.Collections {
		if c.ID == "" || c.Owner == "" {
			return nil, fmt.Errorf("collection #%d: id and owner are required", i+1)
		}
		if seenCollections[c.ID] {
			return nil, fmt.Errorf("collection %q: duplicate id", c.ID)
		}
		seenCollections[c.ID] = true

		ds.Collections = append(ds.Collections, &domain.Collection{
			ID:        c.ID,
			OwnerID:   c.Owner,
			Name:      c.Name,
			CreatedAt: now,
		})

		for j, l := range c.Links {
			if l.ID == "" || l.URL == "" {
				return nil, fmt.Errorf("collection %q link #%d: id and url are required", c.ID, j+1)
			}
			if seenLinks[l.ID] {
				return nil, fmt.Errorf("link %q: duplicate id", l.ID)
			}
			seenLinks[l.ID] = true

			ds.Items = append(ds.Items, mapLink(c.ID, l, now))
		}
	}

	return ds, nil
}

func mapLink(collectionID string, l LinkProps, now time.Time) *domain.SavedItem {
	added := now
	switch {
	case l.Age > 0:
		added = now.Add(-time.Duration(l.Age))
	case l.Added != nil:
		added = l.Added.UTC()
	}

	it := &domain.SavedItem{
		ID:           l.ID,
		CollectionID: collectionID,
		URL:          l.URL,
		Domain:       domain.ParseDomain(l.URL),
		Title:        l.Title,
		AddedAt:      added,
		OpenCount:    l.Opens,
		Shortlisted:  l.Shortlisted && !l.Dismissed,
		Dismissed:    l.Dismissed,
	}

	if l.Opens > 0 || l.OpenedAgo > 0 {
		opened := now.Add(-time.Duration(l.OpenedAgo))
		it.LastOpenedAt = &opened
		if it.OpenCount == 0 {
			it.OpenCount = 1
		}
	}
	return it
}

// Seeder is the write side of a store.
type Seeder interface {
	SaveCollection(ctx context.Context, c *domain.Collection) error
	SaveItem(ctx context.Context, it *domain.SavedItem) error
}

// Apply writes ds into s, collections first. Existing records with the same
// ids are overwritten. Returns the number of items written.
func Apply(ctx context.Context, s Seeder, ds *Dataset) (int, error) {
	for _, c := range ds.Collections {
		if err := s.SaveCollection(ctx, c); err != nil {
			return 0, fmt.Errorf("failed to save collection %s: %w", c.ID, err)
		}
	}
	for i, it := range ds.Items {
		if err := s.SaveItem(ctx, it); err != nil {
			return i, fmt.Errorf("failed to save item %s: %w", it.ID, err)
		}
	}
	return len(ds.Items), nil
}
