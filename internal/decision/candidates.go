package decision

import (
	"time"

	"github.com/MrSnakeDoc/shortlist/internal/domain"
)

// Candidate is a recently active item annotated with its comparison domain.
type Candidate struct {
	Item   *domain.SavedItem
	Domain string
}

// SelectCandidates keeps the items added or opened within window of now.
// Items whose domain cannot be derived are kept with an empty domain.
func SelectCandidates(items []*domain.SavedItem, now time.Time, window time.Duration) []Candidate {
	candidates := make([]Candidate, 0, len(items))
	for _, it := range items {
		if it == nil || !domain.IsRecent(it, now, window) {
			continue
		}
		candidates = append(candidates, Candidate{
			Item:   it,
			Domain: domain.DomainOf(it),
		})
	}
	return candidates
}
