package store

import (
	"context"
	"fmt"

	"example.com/movierecs/internal/models"
)

// --- Follow edge operations ---
//
// Edges live in two denormalized tables: following_by_user (partitioned by the
// follower) and followers_by_user (partitioned by the followed user). The
// uniqueness invariant for the ordered pair is enforced with a lightweight
// transaction on following_by_user; the mirror row is written only once the
// CAS has been applied, so concurrent duplicate follows resolve to exactly
// one winner.

// CreateEdge inserts a follow edge. Returns ErrConflict when the ordered
// (follower, following) pair already exists.
func (s *Store) CreateEdge(ctx context.Context, follower, following string) (models.FollowEdge, error) {
	result := make(map[string]interface{})
	applied, err := s.Session.Query(`
		INSERT INTO following_by_user (follower, following)
		VALUES (?, ?) IF NOT EXISTS`,
		follower, following,
	).WithContext(ctx).MapScanCAS(result)
	if err != nil {
		logg.Error("store", "Failed to create follow edge", err)
		return models.FollowEdge{}, err
	}
	if !applied {
		return models.FollowEdge{}, fmt.Errorf("follow edge %w", ErrConflict)
	}

	if err := s.Session.Query(`
		INSERT INTO followers_by_user (following, follower)
		VALUES (?, ?)`,
		following, follower,
	).WithContext(ctx).Exec(); err != nil {
		logg.Error("store", "Failed to mirror follow edge", err)
		return models.FollowEdge{}, err
	}

	logg.Info("store", "Follow edge created (user IDs anonymized)")
	return models.FollowEdge{Follower: follower, Following: following}, nil
}

// DeleteEdge removes a follow edge and reports whether one existed. A missing
// edge is not an error: unfollow is idempotent.
func (s *Store) DeleteEdge(ctx context.Context, follower, following string) (bool, error) {
	result := make(map[string]interface{})
	applied, err := s.Session.Query(`
		DELETE FROM following_by_user
		WHERE follower = ? AND following = ? IF EXISTS`,
		follower, following,
	).WithContext(ctx).MapScanCAS(result)
	if err != nil {
		logg.Error("store", "Failed to delete follow edge", err)
		return false, err
	}
	if !applied {
		return false, nil
	}

	if err := s.Session.Query(`
		DELETE FROM followers_by_user
		WHERE following = ? AND follower = ?`,
		following, follower,
	).WithContext(ctx).Exec(); err != nil {
		logg.Error("store", "Failed to delete mirrored follow edge", err)
		return false, err
	}

	logg.Info("store", "Follow edge removed (user IDs anonymized)")
	return true, nil
}

// ListFollowing returns the ids of every user the given user follows.
// Ordering is not part of the contract.
func (s *Store) ListFollowing(ctx context.Context, userID string) ([]string, error) {
	iter := s.Session.Query(
		`SELECT following FROM following_by_user WHERE follower = ?`,
		userID,
	).WithContext(ctx).Iter()

	var id string
	var res []string
	for iter.Scan(&id) {
		res = append(res, id)
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to list following", err)
		return nil, err
	}
	return res, nil
}

// ListFollowers returns the ids of every user following the given user.
func (s *Store) ListFollowers(ctx context.Context, userID string) ([]string, error) {
	iter := s.Session.Query(
		`SELECT follower FROM followers_by_user WHERE following = ?`,
		userID,
	).WithContext(ctx).Iter()

	var id string
	var res []string
	for iter.Scan(&id) {
		res = append(res, id)
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to list followers", err)
		return nil, err
	}
	return res, nil
}
