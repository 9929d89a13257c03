package domain

import "time"

const (
	// DefaultRecencyWindow bounds both candidate selection and cluster span.
	DefaultRecencyWindow = 14 * 24 * time.Hour

	// DefaultCandidateLimit is how many of the most recently added items
	// of a collection are considered per recompute.
	DefaultCandidateLimit = 200

	// DefaultMaxClusterSize caps the members of one decision group.
	DefaultMaxClusterSize = 5
)

// Within reports whether a and b are at most window apart.
func Within(a, b time.Time, window time.Duration) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d <= window
}

// IsRecent reports whether the item was added or opened within window of now.
func IsRecent(it *SavedItem, now time.Time, window time.Duration) bool {
	cutoff := now.Add(-window)
	if !it.AddedAt.Before(cutoff) {
		return true
	}
	return it.LastOpenedAt != nil && !it.LastOpenedAt.Before(cutoff)
}
