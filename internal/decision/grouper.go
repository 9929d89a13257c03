package decision

import (
	"sort"
	"time"

	"github.com/MrSnakeDoc/shortlist/internal/domain"
)

const (
	// shortlistBonus is added to a group's reuse score per shortlisted member.
	shortlistBonus = 2
)

// GroupOptions tunes the clustering pass.
type GroupOptions struct {
	Window          time.Duration // max AddedAt distance between seed and member
	MaxClusterSize  int           // members per cluster, seed included
	TitleOverlapMin float64       // 0 disables the title gate
	NewID           func() string // mints ids for clusters that reuse nothing
}

// Cluster is a set of candidates that will share one decision group id.
type Cluster struct {
	GroupID string
	Domain  string
	Reused  bool // GroupID was carried over from a previous pass
	Members []*domain.SavedItem
}

// existingGroup summarizes a group id already present among candidates.
type existingGroup struct {
	id         string
	domain     string
	score      int
	lastActive time.Time
}

// GroupCandidates buckets candidates by domain and greedily clusters each
// bucket by AddedAt proximity to the cluster seed. Only clusters of two or
// more members are returned. At most one cluster per bucket inherits the
// best scoring existing group of that domain: the one holding most of that
// group's members, or the first cluster when none does. The others get
// fresh ids.
func GroupCandidates(candidates []Candidate, opts GroupOptions) []Cluster {
	opts = opts.withDefaults()

	buckets := make(map[string][]*domain.SavedItem)
	for _, c := range candidates {
		if c.Domain == "" {
			continue
		}
		buckets[c.Domain] = append(buckets[c.Domain], c.Item)
	}

	existing := indexExistingGroups(candidates)

	domains := make([]string, 0, len(buckets))
	for d := range buckets {
		domains = append(domains, d)
	}
	sort.Strings(domains)

	var clusters []Cluster
	for _, d := range domains {
		members := buckets[d]
		sortByAddedDesc(members)

		var formed [][]*domain.SavedItem
		for _, cl := range clusterBucket(members, opts) {
			if len(cl) >= 2 {
				formed = append(formed, cl)
			}
		}

		reuseID := bestExistingGroup(existing, d)
		heir := heirCluster(formed, reuseID)
		for i, members := range formed {
			cl := Cluster{Domain: d, Members: members}
			if i == heir {
				cl.GroupID = reuseID
				cl.Reused = true
			} else {
				cl.GroupID = opts.NewID()
			}
			clusters = append(clusters, cl)
		}
	}

	return clusters
}

// heirCluster returns the index of the cluster that keeps groupID: the one
// carrying the most members of that group, earliest on ties, and the first
// cluster when no member is carried over. -1 when groupID is empty.
func heirCluster(formed [][]*domain.SavedItem, groupID string) int {
	if groupID == "" || len(formed) == 0 {
		return -1
	}
	heir, most := 0, 0
	for i, members := range formed {
		n := 0
		for _, m := range members {
			if m.DecisionGroupID == groupID {
				n++
			}
		}
		if n > most {
			heir, most = i, n
		}
	}
	return heir
}

// indexExistingGroups scores every group id carried by a candidate with a domain.
func indexExistingGroups(candidates []Candidate) map[string]*existingGroup {
	groups := make(map[string]*existingGroup)
	for _, c := range candidates {
		it := c.Item
		if !it.HasGroup() || c.Domain == "" {
			continue
		}

		g, ok := groups[it.DecisionGroupID]
		if !ok {
			g = &existingGroup{id: it.DecisionGroupID, domain: c.Domain}
			groups[it.DecisionGroupID] = g
		}

		g.score += it.OpenCount
		if it.Shortlisted {
			g.score += shortlistBonus
		}
		if la := it.LastActive(); la.After(g.lastActive) {
			g.lastActive = la
		}
	}
	return groups
}

// bestExistingGroup picks the highest scoring group of a domain, ties going
// to the most recently active and then to the smallest id.
func bestExistingGroup(groups map[string]*existingGroup, d string) string {
	var best *existingGroup
	for _, g := range groups {
		if g.domain != d {
			continue
		}
		if best == nil || betterGroup(g, best) {
			best = g
		}
	}
	if best == nil {
		return ""
	}
	return best.id
}

func betterGroup(a, b *existingGroup) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	if !a.lastActive.Equal(b.lastActive) {
		return a.lastActive.After(b.lastActive)
	}
	return a.id < b.id
}

// clusterBucket walks items (sorted newest first) and forms windowed
// clusters around successive unconsumed seeds.
func clusterBucket(items []*domain.SavedItem, opts GroupOptions) [][]*domain.SavedItem {
	consumed := make([]bool, len(items))
	var out [][]*domain.SavedItem

	for i := range items {
		if consumed[i] {
			continue
		}
		seed := items[i]
		consumed[i] = true
		cluster := []*domain.SavedItem{seed}

		for j := i + 1; j < len(items) && len(cluster) < opts.MaxClusterSize; j++ {
			if consumed[j] {
				continue
			}
			next := items[j]
			if !domain.Within(seed.AddedAt, next.AddedAt, opts.Window) {
				break
			}
			if opts.TitleOverlapMin > 0 && domain.TitleOverlap(seed.Title, next.Title) < opts.TitleOverlapMin {
				continue
			}
			consumed[j] = true
			cluster = append(cluster, next)
		}

		out = append(out, cluster)
	}
	return out
}

func sortByAddedDesc(items []*domain.SavedItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].AddedAt.Equal(items[j].AddedAt) {
			return items[i].AddedAt.After(items[j].AddedAt)
		}
		return items[i].ID < items[j].ID
	})
}

func (o GroupOptions) withDefaults() GroupOptions {
	if o.Window <= 0 {
		o.Window = domain.DefaultRecencyWindow
	}
	if o.MaxClusterSize < 2 {
		o.MaxClusterSize = domain.DefaultMaxClusterSize
	}
	if o.NewID == nil {
		o.NewID = NewGroupID
	}
	return o
}
