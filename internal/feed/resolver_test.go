package feed

import (
	"context"
	"errors"
	"testing"

	"example.com/movierecs/internal/models"
	"example.com/movierecs/internal/store"
)

func newTestResolver(t *testing.T) (*Resolver, *Relationships, *store.MockStore) {
	t.Helper()
	st := store.NewMock()
	return NewResolver(st, st, st), NewRelationships(st), st
}

func mustRegister(t *testing.T, st *store.MockStore, username string) string {
	t.Helper()
	id, err := st.RegisterUser(context.Background(), username, "", "")
	if err != nil {
		t.Fatalf("register %s failed: %v", username, err)
	}
	return id
}

func mustRecommend(t *testing.T, st *store.MockStore, author, movieID, title string) models.Recommendation {
	t.Helper()
	rec, err := st.CreateRecommendation(context.Background(), models.Recommendation{
		AuthorID: author,
		MovieID:  movieID,
		Title:    title,
	})
	if err != nil {
		t.Fatalf("recommend %s failed: %v", movieID, err)
	}
	return rec
}

// A viewer with no follow edges has a valid, empty feed.
func TestFeed_EmptyWithoutEdges(t *testing.T) {
	resolver, _, st := newTestResolver(t)
	ctx := context.Background()

	viewer := mustRegister(t, st, "viewer")
	other := mustRegister(t, st, "other")
	mustRecommend(t, st, other, "42", "X")

	recs, err := resolver.Feed(ctx, viewer)
	if err != nil {
		t.Fatalf("feed failed: %v", err)
	}
	if recs == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(recs) != 0 {
		t.Fatalf("expected empty feed, got %d entries", len(recs))
	}
}

// follower=U1 follows U2; U2 posts {movieId: "42"}; U1's feed has exactly
// that entry.
func TestFeed_SingleFollowedAuthor(t *testing.T) {
	resolver, rels, st := newTestResolver(t)
	ctx := context.Background()

	u1 := mustRegister(t, st, "u1")
	u2 := mustRegister(t, st, "u2")

	if _, err := rels.Follow(ctx, u1, u2); err != nil {
		t.Fatalf("follow failed: %v", err)
	}
	mustRecommend(t, st, u2, "42", "X")

	recs, err := resolver.Feed(ctx, u1)
	if err != nil {
		t.Fatalf("feed failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected exactly one feed entry, got %d", len(recs))
	}
	if recs[0].MovieID != "42" || recs[0].Title != "X" {
		t.Fatalf("unexpected feed entry: %+v", recs[0])
	}
}

// A freshly computed feed reflects an unfollow: no caching anywhere.
func TestFeed_RecomputedAfterUnfollow(t *testing.T) {
	resolver, rels, st := newTestResolver(t)
	ctx := context.Background()

	viewer := mustRegister(t, st, "viewer")
	author := mustRegister(t, st, "author")

	if _, err := rels.Follow(ctx, viewer, author); err != nil {
		t.Fatalf("follow failed: %v", err)
	}
	rec := mustRecommend(t, st, author, "7", "Seven")

	recs, err := resolver.Feed(ctx, viewer)
	if err != nil {
		t.Fatalf("feed failed: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != rec.ID {
		t.Fatalf("expected the recommendation in the feed, got %+v", recs)
	}

	if err := rels.Unfollow(ctx, viewer, author); err != nil {
		t.Fatalf("unfollow failed: %v", err)
	}

	recs, err = resolver.Feed(ctx, viewer)
	if err != nil {
		t.Fatalf("feed failed after unfollow: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected empty feed after unfollow, got %d entries", len(recs))
	}
}

// Feed entries come back most recently updated first, across authors.
func TestFeed_OrderedByRecency(t *testing.T) {
	resolver, rels, st := newTestResolver(t)
	ctx := context.Background()

	viewer := mustRegister(t, st, "viewer")
	a := mustRegister(t, st, "a")
	b := mustRegister(t, st, "b")
	for _, author := range []string{a, b} {
		if _, err := rels.Follow(ctx, viewer, author); err != nil {
			t.Fatalf("follow failed: %v", err)
		}
	}

	first := mustRecommend(t, st, a, "1", "One")
	second := mustRecommend(t, st, b, "2", "Two")
	third := mustRecommend(t, st, a, "3", "Three")

	// Updating the oldest entry bumps it to the front.
	if _, err := st.UpdateRecommendation(ctx, first.ID, a, "rewatched"); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	recs, err := resolver.Feed(ctx, viewer)
	if err != nil {
		t.Fatalf("feed failed: %v", err)
	}

	want := []string{first.ID, third.ID, second.ID}
	if len(recs) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(recs))
	}
	for i, id := range want {
		if recs[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, recs[i].ID)
		}
	}
}

// First follow succeeds; the identical second follow conflicts.
func TestFollow_DuplicateConflicts(t *testing.T) {
	_, rels, st := newTestResolver(t)
	ctx := context.Background()

	u1 := mustRegister(t, st, "u1")
	u2 := mustRegister(t, st, "u2")

	if _, err := rels.Follow(ctx, u1, u2); err != nil {
		t.Fatalf("first follow failed: %v", err)
	}

	_, err := rels.Follow(ctx, u1, u2)
	if !errors.Is(err, ErrAlreadyFollowing) {
		t.Fatalf("expected ErrAlreadyFollowing, got %v", err)
	}
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected the conflict sentinel to be preserved, got %v", err)
	}
}

// Unfollowing a non-existent edge succeeds and leaves the store unchanged.
func TestUnfollow_Idempotent(t *testing.T) {
	_, rels, st := newTestResolver(t)
	ctx := context.Background()

	u1 := mustRegister(t, st, "u1")
	u2 := mustRegister(t, st, "u2")

	if err := rels.Unfollow(ctx, u1, u2); err != nil {
		t.Fatalf("unfollow of absent edge failed: %v", err)
	}
	if len(st.Edges) != 0 {
		t.Fatalf("expected no edges, got %d", len(st.Edges))
	}
}

// follow then unfollow round-trips: listFollowing excludes the followee.
func TestFollowUnfollow_RoundTrip(t *testing.T) {
	_, rels, st := newTestResolver(t)
	ctx := context.Background()

	a := mustRegister(t, st, "a")
	b := mustRegister(t, st, "b")

	if _, err := rels.Follow(ctx, a, b); err != nil {
		t.Fatalf("follow failed: %v", err)
	}
	if err := rels.Unfollow(ctx, a, b); err != nil {
		t.Fatalf("unfollow failed: %v", err)
	}

	ids, err := st.ListFollowing(ctx, a)
	if err != nil {
		t.Fatalf("list following failed: %v", err)
	}
	for _, id := range ids {
		if id == b {
			t.Fatal("unfollowed user still listed")
		}
	}
}

// Unresolvable profile ids are dropped from listings, never surfaced as
// errors.
func TestFollowingProfiles_DropsUnresolved(t *testing.T) {
	resolver, rels, st := newTestResolver(t)
	ctx := context.Background()

	viewer := mustRegister(t, st, "viewer")
	known := mustRegister(t, st, "known")

	if _, err := rels.Follow(ctx, viewer, known); err != nil {
		t.Fatalf("follow failed: %v", err)
	}
	// An edge to an account the directory no longer knows about.
	if _, err := rels.Follow(ctx, viewer, "ghost"); err != nil {
		t.Fatalf("follow failed: %v", err)
	}

	profiles, err := resolver.FollowingProfiles(ctx, viewer)
	if err != nil {
		t.Fatalf("following profiles failed: %v", err)
	}
	if len(profiles) != 1 || profiles[0].ID != known {
		t.Fatalf("expected only the resolvable profile, got %+v", profiles)
	}
}

func TestFollowerProfiles(t *testing.T) {
	resolver, rels, st := newTestResolver(t)
	ctx := context.Background()

	target := mustRegister(t, st, "target")
	fan1 := mustRegister(t, st, "fan1")
	fan2 := mustRegister(t, st, "fan2")

	for _, fan := range []string{fan1, fan2} {
		if _, err := rels.Follow(ctx, fan, target); err != nil {
			t.Fatalf("follow failed: %v", err)
		}
	}

	profiles, err := resolver.FollowerProfiles(ctx, target)
	if err != nil {
		t.Fatalf("follower profiles failed: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("expected 2 follower profiles, got %d", len(profiles))
	}
}

// Store failures propagate out of the resolver untouched.
func TestFeed_StoreError(t *testing.T) {
	failing := &store.MockStoreFail{}
	resolver := NewResolver(failing, failing, failing)

	if _, err := resolver.Feed(context.Background(), "anyone"); err == nil {
		t.Fatal("expected error from failing store")
	}
	if _, err := resolver.FollowingProfiles(context.Background(), "anyone"); err == nil {
		t.Fatal("expected error from failing store")
	}
}

func TestDedupe(t *testing.T) {
	got := dedupe([]string{"a", "b", "a", "c", "b"})
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
