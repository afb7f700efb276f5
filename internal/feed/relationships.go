package feed

import (
	"context"
	"errors"
	"fmt"

	"example.com/movierecs/internal/models"
	"example.com/movierecs/internal/store"
)

// ErrAlreadyFollowing is the user-facing form of a duplicate follow. It wraps
// store.ErrConflict so boundary code can keep matching on the sentinel.
var ErrAlreadyFollowing = fmt.Errorf("you already follow this user: %w", store.ErrConflict)

// EdgeWriter is the mutating slice of the follow graph.
type EdgeWriter interface {
	CreateEdge(ctx context.Context, follower, following string) (models.FollowEdge, error)
	DeleteEdge(ctx context.Context, follower, following string) (bool, error)
}

// Relationships applies follow and unfollow operations on top of the edge
// store, translating storage conflicts into domain terms.
type Relationships struct {
	edges EdgeWriter
}

func NewRelationships(edges EdgeWriter) *Relationships {
	return &Relationships{edges: edges}
}

// Follow creates a follow edge from follower to following. A duplicate follow
// is rejected with ErrAlreadyFollowing; following yourself is allowed but
// semantically void.
func (r *Relationships) Follow(ctx context.Context, followerID, followingID string) (models.FollowEdge, error) {
	edge, err := r.edges.CreateEdge(ctx, followerID, followingID)
	if errors.Is(err, store.ErrConflict) {
		return models.FollowEdge{}, ErrAlreadyFollowing
	}
	if err != nil {
		return models.FollowEdge{}, err
	}
	return edge, nil
}

// Unfollow removes the follow edge if it exists. Unfollowing someone you do
// not follow is a no-op, not an error.
func (r *Relationships) Unfollow(ctx context.Context, followerID, followingID string) error {
	_, err := r.edges.DeleteEdge(ctx, followerID, followingID)
	return err
}
