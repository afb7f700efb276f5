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

// --- Recommendation operations ---
//
// Recommendations are denormalized across three tables: recommendations
// (lookup by rec_id, used for ownership checks), recommendations_by_author
// (partitioned by author, clustering key movie_id) and recommendations_by_movie
// (partitioned by movie). The (movie, author) uniqueness invariant rides on a
// lightweight transaction against recommendations_by_author; the other two
// rows are written only after the CAS is applied.

const recColumns = `rec_id, author_id, movie_id, title, poster_url, genre_ids, rec_desc, created_at, updated_at`

// CreateRecommendation persists a new recommendation. ID, CreatedAt and
// UpdatedAt are assigned here. Returns ErrConflict when the author has already
// recommended the movie.
func (s *Store) CreateRecommendation(ctx context.Context, rec models.Recommendation) (models.Recommendation, error) {
	rec.ID = uuid.NewString()
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	result := make(map[string]interface{})
	applied, err := s.Session.Query(`
		INSERT INTO recommendations_by_author (author_id, movie_id, rec_id, title, poster_url, genre_ids, rec_desc, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) IF NOT EXISTS`,
		rec.AuthorID, rec.MovieID, rec.ID, rec.Title, rec.PosterURL, rec.GenreIDs, rec.Description, rec.CreatedAt, rec.UpdatedAt,
	).WithContext(ctx).MapScanCAS(result)
	if err != nil {
		logg.Error("store", "Failed to create recommendation", err)
		return models.Recommendation{}, err
	}
	if !applied {
		return models.Recommendation{}, fmt.Errorf("recommendation %w", ErrConflict)
	}

	batch := s.Session.NewBatch(gocql.LoggedBatch)
	batch.Query(`
		INSERT INTO recommendations (`+recColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.AuthorID, rec.MovieID, rec.Title, rec.PosterURL, rec.GenreIDs, rec.Description, rec.CreatedAt, rec.UpdatedAt)
	batch.Query(`
		INSERT INTO recommendations_by_movie (movie_id, author_id, rec_id, title, poster_url, genre_ids, rec_desc, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.MovieID, rec.AuthorID, rec.ID, rec.Title, rec.PosterURL, rec.GenreIDs, rec.Description, rec.CreatedAt, rec.UpdatedAt)

	if err := s.Session.ExecuteBatch(batch); err != nil {
		logg.Error("store", "Failed to denormalize recommendation", err)
		return models.Recommendation{}, err
	}

	logg.Info("store", "Recommendation created (IDs anonymized)")
	return rec, nil
}

// getRecommendation loads a recommendation by primary id and enforces the
// ownership rule: a missing record and a record owned by another author both
// come back as ErrNotFound.
func (s *Store) getRecommendation(ctx context.Context, id, authorID string) (models.Recommendation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Recommendation{}, fmt.Errorf("recommendation id %q: %w", id, ErrInvalidID)
	}

	var rec models.Recommendation
	err := s.Session.Query(`
		SELECT `+recColumns+` FROM recommendations WHERE rec_id = ?`,
		id,
	).WithContext(ctx).Scan(
		&rec.ID, &rec.AuthorID, &rec.MovieID, &rec.Title, &rec.PosterURL,
		&rec.GenreIDs, &rec.Description, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err == gocql.ErrNotFound {
		return models.Recommendation{}, fmt.Errorf("recommendation %w", ErrNotFound)
	}
	if err != nil {
		logg.Error("store", "Failed to load recommendation", err)
		return models.Recommendation{}, err
	}
	if rec.AuthorID != authorID {
		return models.Recommendation{}, fmt.Errorf("recommendation %w", ErrNotFound)
	}
	return rec, nil
}

// UpdateRecommendation rewrites the description on every denormalized row and
// refreshes updated_at. Only the author may update; anyone else observes
// ErrNotFound.
func (s *Store) UpdateRecommendation(ctx context.Context, id, authorID, description string) (models.Recommendation, error) {
	rec, err := s.getRecommendation(ctx, id, authorID)
	if err != nil {
		return models.Recommendation{}, err
	}

	rec.Description = description
	rec.UpdatedAt = time.Now().UTC()

	batch := s.Session.NewBatch(gocql.LoggedBatch)
	batch.Query(`
		UPDATE recommendations SET rec_desc = ?, updated_at = ? WHERE rec_id = ?`,
		rec.Description, rec.UpdatedAt, rec.ID)
	batch.Query(`
		UPDATE recommendations_by_author SET rec_desc = ?, updated_at = ? WHERE author_id = ? AND movie_id = ?`,
		rec.Description, rec.UpdatedAt, rec.AuthorID, rec.MovieID)
	batch.Query(`
		UPDATE recommendations_by_movie SET rec_desc = ?, updated_at = ? WHERE movie_id = ? AND author_id = ?`,
		rec.Description, rec.UpdatedAt, rec.MovieID, rec.AuthorID)

	if err := s.Session.ExecuteBatch(batch); err != nil {
		logg.Error("store", "Failed to update recommendation", err)
		return models.Recommendation{}, err
	}

	logg.Info("store", "Recommendation updated (IDs anonymized)")
	return rec, nil
}

// DeleteRecommendation removes a recommendation from all three tables, with
// the same ownership rule as UpdateRecommendation.
func (s *Store) DeleteRecommendation(ctx context.Context, id, authorID string) error {
	rec, err := s.getRecommendation(ctx, id, authorID)
	if err != nil {
		return err
	}

	batch := s.Session.NewBatch(gocql.LoggedBatch)
	batch.Query(`DELETE FROM recommendations WHERE rec_id = ?`, rec.ID)
	batch.Query(`DELETE FROM recommendations_by_author WHERE author_id = ? AND movie_id = ?`, rec.AuthorID, rec.MovieID)
	batch.Query(`DELETE FROM recommendations_by_movie WHERE movie_id = ? AND author_id = ?`, rec.MovieID, rec.AuthorID)

	if err := s.Session.ExecuteBatch(batch); err != nil {
		logg.Error("store", "Failed to delete recommendation", err)
		return err
	}

	logg.Info("store", "Recommendation deleted (IDs anonymized)")
	return nil
}

// ListRecommendations returns every recommendation, most recently updated
// first.
func (s *Store) ListRecommendations(ctx context.Context) ([]models.Recommendation, error) {
	return s.scanRecommendations(ctx, `SELECT `+recColumns+` FROM recommendations`)
}

// ListRecommendationsByAuthor returns one author's recommendations, most
// recently updated first.
func (s *Store) ListRecommendationsByAuthor(ctx context.Context, authorID string) ([]models.Recommendation, error) {
	return s.scanRecommendations(ctx, `
		SELECT rec_id, author_id, movie_id, title, poster_url, genre_ids, rec_desc, created_at, updated_at
		FROM recommendations_by_author WHERE author_id = ?`, authorID)
}

// ListRecommendationsByMovie returns every recommendation for a movie, most
// recently updated first.
func (s *Store) ListRecommendationsByMovie(ctx context.Context, movieID string) ([]models.Recommendation, error) {
	return s.scanRecommendations(ctx, `
		SELECT rec_id, author_id, movie_id, title, poster_url, genre_ids, rec_desc, created_at, updated_at
		FROM recommendations_by_movie WHERE movie_id = ?`, movieID)
}

// ListRecommendationsByAuthors is the feed primitive: recommendations from a
// set of authors, most recently updated first.
func (s *Store) ListRecommendationsByAuthors(ctx context.Context, authorIDs []string) ([]models.Recommendation, error) {
	if len(authorIDs) == 0 {
		return []models.Recommendation{}, nil
	}
	return s.scanRecommendations(ctx, `
		SELECT rec_id, author_id, movie_id, title, poster_url, genre_ids, rec_desc, created_at, updated_at
		FROM recommendations_by_author WHERE author_id IN ?`, authorIDs)
}

func (s *Store) scanRecommendations(ctx context.Context, stmt string, values ...interface{}) ([]models.Recommendation, error) {
	iter := s.Session.Query(stmt, values...).WithContext(ctx).Iter()

	res := []models.Recommendation{}
	var rec models.Recommendation
	for iter.Scan(
		&rec.ID, &rec.AuthorID, &rec.MovieID, &rec.Title, &rec.PosterURL,
		&rec.GenreIDs, &rec.Description, &rec.CreatedAt, &rec.UpdatedAt,
	) {
		res = append(res, rec)
		rec = models.Recommendation{}
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to scan recommendations", err)
		return nil, err
	}

	sortByUpdatedDesc(res)
	return res, nil
}

// sortByUpdatedDesc orders recommendations by updated_at descending. The sort
// is stable: rows with equal timestamps keep their retrieval order.
func sortByUpdatedDesc(recs []models.Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].UpdatedAt.After(recs[j].UpdatedAt)
	})
}
