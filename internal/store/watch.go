package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"example.com/movierecs/internal/models"
	"github.com/gocql/gocql"
	"github.com/google/uuid"
)

// --- Watchlist operations ---
//
// Same layout as recommendations: watch_entries holds the row keyed by
// entry_id for ownership checks, watch_by_user is partitioned by the owner
// with movie_id as the clustering key. The (movie, user) uniqueness invariant
// is a lightweight transaction on watch_by_user.

const watchColumns = `entry_id, user_id, movie_id, title, poster_path, genres, overview, created_at, updated_at`

// CreateWatchEntry persists a new watchlist entry. Returns ErrConflict when
// the user already has the movie on their list.
func (s *Store) CreateWatchEntry(ctx context.Context, entry models.WatchEntry) (models.WatchEntry, error) {
	entry.ID = uuid.NewString()
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	result := make(map[string]interface{})
	applied, err := s.Session.Query(`
		INSERT INTO watch_by_user (user_id, movie_id, entry_id, title, poster_path, genres, overview, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) IF NOT EXISTS`,
		entry.UserID, entry.MovieID, entry.ID, entry.Title, entry.PosterPath, entry.Genres, entry.Overview, entry.CreatedAt, entry.UpdatedAt,
	).WithContext(ctx).MapScanCAS(result)
	if err != nil {
		logg.Error("store", "Failed to create watch entry", err)
		return models.WatchEntry{}, err
	}
	if !applied {
		return models.WatchEntry{}, fmt.Errorf("watch entry %w", ErrConflict)
	}

	if err := s.Session.Query(`
		INSERT INTO watch_entries (`+watchColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.UserID, entry.MovieID, entry.Title, entry.PosterPath, entry.Genres, entry.Overview, entry.CreatedAt, entry.UpdatedAt,
	).WithContext(ctx).Exec(); err != nil {
		logg.Error("store", "Failed to denormalize watch entry", err)
		return models.WatchEntry{}, err
	}

	logg.Info("store", "Watch entry created (IDs anonymized)")
	return entry, nil
}

// DeleteWatchEntry removes a watchlist entry. Only the owner may delete;
// a missing entry and someone else's entry both come back as ErrNotFound.
func (s *Store) DeleteWatchEntry(ctx context.Context, id, userID string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("watch entry id %q: %w", id, ErrInvalidID)
	}

	var entry models.WatchEntry
	err := s.Session.Query(`
		SELECT `+watchColumns+` FROM watch_entries WHERE entry_id = ?`,
		id,
	).WithContext(ctx).Scan(
		&entry.ID, &entry.UserID, &entry.MovieID, &entry.Title, &entry.PosterPath,
		&entry.Genres, &entry.Overview, &entry.CreatedAt, &entry.UpdatedAt,
	)
	if err == gocql.ErrNotFound {
		return fmt.Errorf("watch entry %w", ErrNotFound)
	}
	if err != nil {
		logg.Error("store", "Failed to load watch entry", err)
		return err
	}
	if entry.UserID != userID {
		return fmt.Errorf("watch entry %w", ErrNotFound)
	}

	batch := s.Session.NewBatch(gocql.LoggedBatch)
	batch.Query(`DELETE FROM watch_entries WHERE entry_id = ?`, entry.ID)
	batch.Query(`DELETE FROM watch_by_user WHERE user_id = ? AND movie_id = ?`, entry.UserID, entry.MovieID)

	if err := s.Session.ExecuteBatch(batch); err != nil {
		logg.Error("store", "Failed to delete watch entry", err)
		return err
	}

	logg.Info("store", "Watch entry deleted (IDs anonymized)")
	return nil
}

// ListWatchEntries returns a user's watchlist, oldest first.
func (s *Store) ListWatchEntries(ctx context.Context, userID string) ([]models.WatchEntry, error) {
	iter := s.Session.Query(`
		SELECT entry_id, user_id, movie_id, title, poster_path, genres, overview, created_at, updated_at
		FROM watch_by_user WHERE user_id = ?`,
		userID,
	).WithContext(ctx).Iter()

	res := []models.WatchEntry{}
	var entry models.WatchEntry
	for iter.Scan(
		&entry.ID, &entry.UserID, &entry.MovieID, &entry.Title, &entry.PosterPath,
		&entry.Genres, &entry.Overview, &entry.CreatedAt, &entry.UpdatedAt,
	) {
		res = append(res, entry)
		entry = models.WatchEntry{}
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to list watch entries", err)
		return nil, err
	}

	sort.SliceStable(res, func(i, j int) bool {
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res, nil
}
