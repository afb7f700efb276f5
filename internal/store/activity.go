package store

import (
	"context"

	"example.com/movierecs/internal/models"
	"github.com/gocql/gocql"
)

// --- Activity operations ---
//
// activity_by_user is the sink of the worker's fan-out: one row per follower
// per recommendation event, clustered by timeuuid descending so reads come
// back newest first without an application-side sort.

// AddActivity appends a notification row to a user's activity stream.
func (s *Store) AddActivity(ctx context.Context, act models.Activity) error {
	if err := s.Session.Query(`
		INSERT INTO activity_by_user (user_id, activity_id, rec_id, author_id, movie_id, title, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		act.UserID, gocql.TimeUUID(), act.RecID, act.AuthorID, act.MovieID, act.Title, act.CreatedAt,
	).WithContext(ctx).Exec(); err != nil {
		logg.Error("store", "Failed to add activity row", err)
		return err
	}
	return nil
}

// ListActivity returns a user's activity stream, newest first.
func (s *Store) ListActivity(ctx context.Context, userID string, limit int) ([]models.Activity, error) {
	iter := s.Session.Query(`
		SELECT activity_id, user_id, rec_id, author_id, movie_id, title, created_at
		FROM activity_by_user WHERE user_id = ? LIMIT ?`,
		userID, limit,
	).WithContext(ctx).Iter()

	res := []models.Activity{}
	var act models.Activity
	var actID gocql.UUID
	for iter.Scan(&actID, &act.UserID, &act.RecID, &act.AuthorID, &act.MovieID, &act.Title, &act.CreatedAt) {
		act.ID = actID.String()
		res = append(res, act)
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to list activity", err)
		return nil, err
	}
	return res, nil
}
