// Package feed composes the follow graph and the recommendation store into
// personalized read views. The resolver holds no state of its own: every feed
// is recomputed from the stores on each call.
package feed

import (
	"context"

	"example.com/movierecs/internal/models"
)

// EdgeReader is the slice of the store the resolver needs from the follow
// graph.
type EdgeReader interface {
	ListFollowing(ctx context.Context, userID string) ([]string, error)
	ListFollowers(ctx context.Context, userID string) ([]string, error)
}

// RecommendationReader supplies the feed primitive.
type RecommendationReader interface {
	ListRecommendationsByAuthors(ctx context.Context, authorIDs []string) ([]models.Recommendation, error)
}

// ProfileDirectory resolves user ids into profile records in one batch.
// Implemented by the store's users table; treated as an external collaborator.
type ProfileDirectory interface {
	Profiles(ctx context.Context, ids []string) ([]models.UserProfile, error)
}

// Resolver derives read views for a viewer: the recommendation feed and the
// profile listings of both sides of the follow graph.
type Resolver struct {
	edges    EdgeReader
	recs     RecommendationReader
	profiles ProfileDirectory
}

func NewResolver(edges EdgeReader, recs RecommendationReader, profiles ProfileDirectory) *Resolver {
	return &Resolver{edges: edges, recs: recs, profiles: profiles}
}

// Feed returns the recommendations authored by everyone the viewer follows,
// most recently updated first. A viewer who follows nobody gets an empty
// feed, not an error.
func (r *Resolver) Feed(ctx context.Context, viewerID string) ([]models.Recommendation, error) {
	followed, err := r.edges.ListFollowing(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if len(followed) == 0 {
		return []models.Recommendation{}, nil
	}
	return r.recs.ListRecommendationsByAuthors(ctx, dedupe(followed))
}

// FollowingProfiles resolves the viewer's followed ids into profiles. Ids the
// directory cannot resolve are dropped rather than reported: a follow edge
// pointing at a vanished account is not the viewer's problem.
func (r *Resolver) FollowingProfiles(ctx context.Context, viewerID string) ([]models.UserProfile, error) {
	ids, err := r.edges.ListFollowing(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	return r.profiles.Profiles(ctx, dedupe(ids))
}

// FollowerProfiles is the symmetric listing of the viewer's followers.
func (r *Resolver) FollowerProfiles(ctx context.Context, viewerID string) ([]models.UserProfile, error) {
	ids, err := r.edges.ListFollowers(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	return r.profiles.Profiles(ctx, dedupe(ids))
}

// dedupe collapses duplicate ids while keeping first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	res := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		res = append(res, id)
	}
	return res
}
