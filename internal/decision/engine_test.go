package decision_test

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/shortlist/internal/decision"
	"github.com/MrSnakeDoc/shortlist/internal/domain"
	"github.com/MrSnakeDoc/shortlist/internal/logger"
	"github.com/MrSnakeDoc/shortlist/internal/store/memory"
)

const (
	owner      = "user-1"
	collection = "col-1"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	t     *testing.T
	store *memory.Store
	eng   *decision.Engine
}

func newFixture(t *testing.T, opts decision.Options) *fixture {
	t.Helper()
	s := memory.New()
	require.NoError(t, s.SaveCollection(context.Background(), &domain.Collection{ID: collection, OwnerID: owner}))
	require.NoError(t, s.SaveCollection(context.Background(), &domain.Collection{ID: "col-other", OwnerID: "user-2"}))

	n := 0
	eng := decision.NewEngine(s, logger.NewNop(), opts,
		decision.WithClock(func() time.Time { return now }),
		decision.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("group-%d", n)
		}),
	)
	return &fixture{t: t, store: s, eng: eng}
}

func (f *fixture) add(it domain.SavedItem) {
	f.t.Helper()
	if it.CollectionID == "" {
		it.CollectionID = collection
	}
	require.NoError(f.t, f.store.SaveItem(context.Background(), &it))
}

func (f *fixture) get(id string) *domain.SavedItem {
	f.t.Helper()
	it, err := f.store.GetItem(context.Background(), id)
	require.NoError(f.t, err)
	return it
}

func (f *fixture) recompute() decision.RecomputeResult {
	f.t.Helper()
	res, err := f.eng.Recompute(context.Background(), owner, collection)
	require.NoError(f.t, err)
	return res
}

// addHotelPair seeds X and Y on the same domain, one hour apart.
func (f *fixture) addHotelPair() {
	f.add(domain.SavedItem{ID: "X", URL: "https://www.hotelsite.com/rooms/1", AddedAt: now.Add(-2 * time.Hour)})
	f.add(domain.SavedItem{ID: "Y", URL: "https://hotelsite.com/rooms/2", AddedAt: now.Add(-time.Hour)})
}

func TestRecomputeGroupsSameDomainPair(t *testing.T) {
	f := newFixture(t, decision.Options{})
	f.addHotelPair()

	res := f.recompute()
	assert.Equal(t, decision.RecomputeResult{GroupsCreated: 1, LinksUpdated: 2}, res)

	x, y := f.get("X"), f.get("Y")
	assert.NotEmpty(t, x.DecisionGroupID)
	assert.Equal(t, x.DecisionGroupID, y.DecisionGroupID)
	assert.False(t, x.Chosen)
	assert.False(t, y.Chosen)
}

func TestDismissThenResolvePicksSurvivor(t *testing.T) {
	f := newFixture(t, decision.Options{})
	f.addHotelPair()
	f.recompute()
	ctx := context.Background()

	snap, err := f.eng.SetFlags(ctx, owner, "Y", decision.FlagUpdate{Dismissed: domain.Bool(true)})
	require.NoError(t, err)
	assert.True(t, snap.Dismissed)
	assert.False(t, snap.Shortlisted)

	res, err := f.eng.ResolveGroup(ctx, owner, collection, f.get("X").DecisionGroupID)
	require.NoError(t, err)
	assert.Equal(t, decision.StatusChosen, res.Status)
	require.NotNil(t, res.LinkID)
	assert.Equal(t, "X", *res.LinkID)
	assert.True(t, f.get("X").Chosen)
}

func TestRecomputeSkipsOldUnopenedItems(t *testing.T) {
	f := newFixture(t, decision.Options{})
	f.addHotelPair()
	f.add(domain.SavedItem{ID: "Z", URL: "https://hotelsite.com/rooms/3", AddedAt: now.Add(-20 * 24 * time.Hour)})

	res := f.recompute()
	assert.Equal(t, 2, res.LinksUpdated)
	assert.Empty(t, f.get("Z").DecisionGroupID)
}

func TestRecomputeIncludesRecentlyOpenedOldItem(t *testing.T) {
	f := newFixture(t, decision.Options{})
	opened := now.Add(-time.Hour)
	f.add(domain.SavedItem{ID: "A", URL: "https://shop.com/a", AddedAt: now.Add(-20 * 24 * time.Hour), LastOpenedAt: &opened})
	f.add(domain.SavedItem{ID: "B", URL: "https://shop.com/b", AddedAt: now.Add(-19 * 24 * time.Hour)})

	res := f.recompute()
	assert.Equal(t, 0, res.GroupsCreated, "B is outside the recency window, so A stands alone")

	f.add(domain.SavedItem{ID: "C", URL: "https://shop.com/c", AddedAt: now.Add(-18 * 24 * time.Hour), LastOpenedAt: &opened})
	res = f.recompute()
	assert.Equal(t, 1, res.GroupsCreated)
	assert.Equal(t, f.get("A").DecisionGroupID, f.get("C").DecisionGroupID)
	assert.Empty(t, f.get("B").DecisionGroupID)
}

func TestArchiveOthersLeavesWinnerUntouched(t *testing.T) {
	f := newFixture(t, decision.Options{})
	for i, id := range []string{"X", "Y", "W"} {
		f.add(domain.SavedItem{
			ID:              id,
			URL:             "https://hotelsite.com/" + id,
			AddedAt:         now.Add(-time.Duration(i) * time.Hour),
			DecisionGroupID: "g",
			Shortlisted:     true,
		})
	}
	before := f.get("X")

	res, err := f.eng.ArchiveOthers(context.Background(), owner, collection, "g", "X")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Updated)

	for _, id := range []string{"Y", "W"} {
		it := f.get(id)
		assert.True(t, it.Dismissed, id)
		assert.False(t, it.Shortlisted, id)
	}
	assert.Equal(t, before, f.get("X"))
}

func TestArchiveOthersUnknownGroup(t *testing.T) {
	f := newFixture(t, decision.Options{})

	res, err := f.eng.ArchiveOthers(context.Background(), owner, collection, "nope", "X")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Updated)
}

func TestRecomputeIsIdempotent(t *testing.T) {
	f := newFixture(t, decision.Options{})
	for i := 0; i < 7; i++ {
		f.add(domain.SavedItem{
			ID:      fmt.Sprintf("s%d", i),
			URL:     fmt.Sprintf("https://shop.com/%d", i),
			AddedAt: now.Add(-time.Duration(i) * time.Hour),
		})
	}
	f.add(domain.SavedItem{ID: "o1", URL: "https://other.org/1", AddedAt: now})
	f.add(domain.SavedItem{ID: "o2", URL: "https://other.org/2", AddedAt: now.Add(-time.Hour)})

	f.recompute()
	first := partition(t, f)
	keptShop, keptOther := f.get("s0").DecisionGroupID, f.get("o1").DecisionGroupID
	f.recompute()
	second := partition(t, f)

	assert.Equal(t, first, second)
	assert.Equal(t, [][]string{{"o1", "o2"}, {"s0", "s1", "s2", "s3", "s4"}, {"s5", "s6"}}, first)
	assert.Equal(t, keptShop, f.get("s0").DecisionGroupID, "first shop.com cluster keeps its id")
	assert.Equal(t, keptOther, f.get("o1").DecisionGroupID)
}

func TestRecomputeKeepsReusedIDOnItsMembers(t *testing.T) {
	f := newFixture(t, decision.Options{})
	opened := now.Add(-24 * time.Hour)
	f.add(domain.SavedItem{ID: "s0", URL: "https://shop.com/0", AddedAt: now})
	f.add(domain.SavedItem{ID: "s1", URL: "https://shop.com/1", AddedAt: now})
	for _, id := range []string{"s2", "s3"} {
		f.add(domain.SavedItem{
			ID:           id,
			URL:          "https://shop.com/" + id,
			AddedAt:      now.Add(-20 * 24 * time.Hour),
			LastOpenedAt: &opened,
			OpenCount:    3,
		})
	}

	f.recompute()
	kept := f.get("s2").DecisionGroupID
	require.NotEmpty(t, kept)

	for pass := 2; pass <= 4; pass++ {
		f.recompute()
		assert.Equal(t, kept, f.get("s2").DecisionGroupID, "pass %d", pass)
		assert.Equal(t, kept, f.get("s3").DecisionGroupID, "pass %d", pass)
		assert.NotEqual(t, kept, f.get("s0").DecisionGroupID, "pass %d", pass)
		assert.Equal(t, f.get("s0").DecisionGroupID, f.get("s1").DecisionGroupID, "pass %d", pass)
	}
}

// partition returns the sorted member lists of every group, ignoring ids.
func partition(t *testing.T, f *fixture) [][]string {
	t.Helper()
	items, err := f.store.ListGroupedItems(context.Background(), collection)
	require.NoError(t, err)
	byGroup := make(map[string][]string)
	for _, it := range items {
		byGroup[it.DecisionGroupID] = append(byGroup[it.DecisionGroupID], it.ID)
	}
	out := make([][]string, 0, len(byGroup))
	for _, ids := range byGroup {
		sort.Strings(ids)
		out = append(out, ids)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

func TestRecomputeNeverGroupsWithoutDomain(t *testing.T) {
	f := newFixture(t, decision.Options{})
	f.add(domain.SavedItem{ID: "a", URL: "not a url", AddedAt: now})
	f.add(domain.SavedItem{ID: "b", URL: "not a url", AddedAt: now})
	f.add(domain.SavedItem{ID: "c", URL: "http://localhost:8080/x", AddedAt: now})
	f.add(domain.SavedItem{ID: "d", URL: "https://solo.com/", AddedAt: now})

	res := f.recompute()
	assert.Equal(t, 0, res.GroupsCreated)
	for _, id := range []string{"a", "b", "c", "d"} {
		assert.Empty(t, f.get(id).DecisionGroupID, id)
	}
}

func TestRecomputeNormalizesChosenFlags(t *testing.T) {
	f := newFixture(t, decision.Options{})
	// an old singleton group and an old pair that was wrongly marked chosen
	old := now.Add(-40 * 24 * time.Hour)
	f.add(domain.SavedItem{ID: "solo", URL: "https://a.com/1", AddedAt: old, DecisionGroupID: "g-solo"})
	f.add(domain.SavedItem{ID: "p1", URL: "https://b.com/1", AddedAt: old, DecisionGroupID: "g-pair", Chosen: true})
	f.add(domain.SavedItem{ID: "p2", URL: "https://b.com/2", AddedAt: old, DecisionGroupID: "g-pair", Dismissed: true})

	f.recompute()

	assert.True(t, f.get("solo").Chosen)
	assert.False(t, f.get("p1").Chosen)
	assert.False(t, f.get("p2").Chosen)
	assert.Equal(t, "g-solo", f.get("solo").DecisionGroupID, "stale ids are kept")
}

func TestRecomputeReusesExistingGroupID(t *testing.T) {
	f := newFixture(t, decision.Options{})
	f.add(domain.SavedItem{ID: "a", URL: "https://shop.com/a", AddedAt: now.Add(-time.Hour), DecisionGroupID: "keep", Shortlisted: true})
	f.add(domain.SavedItem{ID: "b", URL: "https://shop.com/b", AddedAt: now})

	f.recompute()
	assert.Equal(t, "keep", f.get("a").DecisionGroupID)
	assert.Equal(t, "keep", f.get("b").DecisionGroupID)
}

func TestResolveGroupStatuses(t *testing.T) {
	f := newFixture(t, decision.Options{})
	f.add(domain.SavedItem{ID: "a", DecisionGroupID: "g", AddedAt: now, Shortlisted: true})
	f.add(domain.SavedItem{ID: "b", DecisionGroupID: "g", AddedAt: now})
	f.add(domain.SavedItem{ID: "c", DecisionGroupID: "g", AddedAt: now})
	ctx := context.Background()

	res, err := f.eng.ResolveGroup(ctx, owner, collection, "g")
	require.NoError(t, err)
	assert.Equal(t, decision.StatusCandidateChosen, res.Status)
	require.NotNil(t, res.LinkID)
	assert.Equal(t, "a", *res.LinkID)
	assert.False(t, f.get("a").Chosen, "advisory result writes nothing")

	_, err = f.eng.SetFlags(ctx, owner, "b", decision.FlagUpdate{Shortlisted: domain.Bool(true)})
	require.NoError(t, err)
	res, err = f.eng.ResolveGroup(ctx, owner, collection, "g")
	require.NoError(t, err)
	assert.Equal(t, decision.StatusNoResolution, res.Status)
	assert.Nil(t, res.LinkID)

	res, err = f.eng.ResolveGroup(ctx, owner, collection, "empty")
	require.NoError(t, err)
	assert.Equal(t, decision.StatusNoResolution, res.Status)
}

func TestSetFlagsKeepsDismissedUnshortlisted(t *testing.T) {
	f := newFixture(t, decision.Options{})
	f.add(domain.SavedItem{ID: "a", AddedAt: now, Shortlisted: true})
	ctx := context.Background()

	snap, err := f.eng.SetFlags(ctx, owner, "a", decision.FlagUpdate{Dismissed: domain.Bool(true)})
	require.NoError(t, err)
	assert.Equal(t, decision.FlagSnapshot{ID: "a", Dismissed: true}, snap)

	snap, err = f.eng.SetFlags(ctx, owner, "a", decision.FlagUpdate{Shortlisted: domain.Bool(true)})
	require.NoError(t, err)
	assert.False(t, snap.Shortlisted)

	snap, err = f.eng.SetFlags(ctx, owner, "a", decision.FlagUpdate{Dismissed: domain.Bool(false), Shortlisted: domain.Bool(true)})
	require.NoError(t, err)
	assert.True(t, snap.Shortlisted)
	assert.False(t, snap.Dismissed)
}

func TestOnlySetFlagsClearsDismissed(t *testing.T) {
	f := newFixture(t, decision.Options{})
	f.addHotelPair()
	ctx := context.Background()

	_, err := f.eng.SetFlags(ctx, owner, "Y", decision.FlagUpdate{Dismissed: domain.Bool(true)})
	require.NoError(t, err)
	f.recompute()
	f.recompute()
	assert.True(t, f.get("Y").Dismissed, "recompute never clears dismissed")

	snap, err := f.eng.SetFlags(ctx, owner, "Y", decision.FlagUpdate{Dismissed: domain.Bool(false)})
	require.NoError(t, err)
	assert.False(t, snap.Dismissed)
	assert.False(t, snap.Shortlisted)
}

func TestRecordOpen(t *testing.T) {
	f := newFixture(t, decision.Options{})
	f.add(domain.SavedItem{ID: "a", AddedAt: now.Add(-time.Hour), OpenCount: 2})

	eng, err := f.eng.RecordOpen(context.Background(), owner, "a")
	require.NoError(t, err)
	assert.Equal(t, 3, eng.OpenCount)
	assert.Equal(t, now, eng.LastOpenedAt)

	it := f.get("a")
	assert.Equal(t, 3, it.OpenCount)
	require.NotNil(t, it.LastOpenedAt)
	assert.True(t, it.LastOpenedAt.Equal(now))
}

func TestOwnershipIsEnforced(t *testing.T) {
	f := newFixture(t, decision.Options{})
	f.add(domain.SavedItem{ID: "theirs", CollectionID: "col-other", AddedAt: now})
	ctx := context.Background()

	_, err := f.eng.Recompute(ctx, owner, "col-other")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.eng.Recompute(ctx, owner, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.eng.ResolveGroup(ctx, owner, "col-other", "g")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.eng.ArchiveOthers(ctx, owner, "col-other", "g", "x")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.eng.SetFlags(ctx, owner, "theirs", decision.FlagUpdate{Dismissed: domain.Bool(true)})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, f.get("theirs").Dismissed)

	_, err = f.eng.RecordOpen(ctx, owner, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestValidationErrors(t *testing.T) {
	f := newFixture(t, decision.Options{})
	ctx := context.Background()

	tests := []struct {
		name  string
		field string
		call  func() error
	}{
		{"recompute without collection", "collectionId", func() error {
			_, err := f.eng.Recompute(ctx, owner, "")
			return err
		}},
		{"resolve without group", "decisionGroupId", func() error {
			_, err := f.eng.ResolveGroup(ctx, owner, collection, "")
			return err
		}},
		{"archive without winner", "chosenLinkId", func() error {
			_, err := f.eng.ArchiveOthers(ctx, owner, collection, "g", "")
			return err
		}},
		{"flags without any flag", "shortlisted", func() error {
			_, err := f.eng.SetFlags(ctx, owner, "a", decision.FlagUpdate{})
			return err
		}},
		{"open without link", "linkId", func() error {
			_, err := f.eng.RecordOpen(ctx, owner, "")
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var verr *domain.ValidationError
			require.ErrorAs(t, tt.call(), &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestRecomputeReturnsBusyWhileLeased(t *testing.T) {
	f := newFixture(t, decision.Options{})
	f.addHotelPair()
	ctx := context.Background()

	unlock, ok, err := f.store.TryLockCollection(ctx, collection, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.eng.Recompute(ctx, owner, collection)
	assert.ErrorIs(t, err, domain.ErrBusy)
	assert.Empty(t, f.get("X").DecisionGroupID)

	require.NoError(t, unlock(ctx))
	res := f.recompute()
	assert.Equal(t, 1, res.GroupsCreated)
}

func TestRecomputeWaitsForLease(t *testing.T) {
	f := newFixture(t, decision.Options{LockWait: time.Second})
	f.addHotelPair()
	ctx := context.Background()

	unlock, ok, err := f.store.TryLockCollection(ctx, collection, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = unlock(ctx)
	}()

	res, err := f.eng.Recompute(ctx, owner, collection)
	require.NoError(t, err)
	assert.Equal(t, 1, res.GroupsCreated)
}

func TestCollectStaleGroups(t *testing.T) {
	f := newFixture(t, decision.Options{})
	old := now.Add(-40 * 24 * time.Hour)
	recent := now.Add(-24 * time.Hour)
	f.add(domain.SavedItem{ID: "s1", AddedAt: old, DecisionGroupID: "stale"})
	f.add(domain.SavedItem{ID: "s2", AddedAt: old, DecisionGroupID: "stale"})
	f.add(domain.SavedItem{ID: "w1", AddedAt: old, DecisionGroupID: "won", Chosen: true})
	f.add(domain.SavedItem{ID: "a1", AddedAt: old, DecisionGroupID: "alive", LastOpenedAt: &recent})
	f.add(domain.SavedItem{ID: "a2", AddedAt: old, DecisionGroupID: "alive"})

	n, err := f.eng.CollectStaleGroups(context.Background(), collection, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Empty(t, f.get("s1").DecisionGroupID)
	assert.Empty(t, f.get("s2").DecisionGroupID)
	assert.Equal(t, "won", f.get("w1").DecisionGroupID)
	assert.Equal(t, "alive", f.get("a2").DecisionGroupID)
}
