package store

import (
	"context"

	"example.com/movierecs/internal/models"
	"github.com/gocql/gocql"
)

// --- User directory operations ---

// GetUserIDByUsername returns the existing user_id by username.
// If the user does not exist, it returns empty string without an error.
func (s *Store) GetUserIDByUsername(ctx context.Context, username string) (string, error) {
	var id string
	err := s.Session.Query(
		`SELECT user_id FROM users_by_username WHERE username = ?`,
		username,
	).WithContext(ctx).Scan(&id)
	if err != nil {
		if err == gocql.ErrNotFound {
			return "", nil
		}
		logg.Error("store", "Failed to query user by username", err)
		return "", err
	}
	return id, nil
}

// RegisterUser creates a new user if the username does not exist.
// Returns the existing user_id if the username is already taken; the
// username claim itself is a lightweight transaction so concurrent
// registrations of the same name resolve to a single id.
func (s *Store) RegisterUser(ctx context.Context, username, firstName, lastName string) (string, error) {
	existingID, err := s.GetUserIDByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if existingID != "" {
		return existingID, nil
	}

	id := gocql.TimeUUID().String()

	result := make(map[string]interface{})
	applied, err := s.Session.Query(`
		INSERT INTO users_by_username (username, user_id)
		VALUES (?, ?) IF NOT EXISTS`,
		username, id,
	).WithContext(ctx).MapScanCAS(result)
	if err != nil {
		logg.Error("store", "Failed to claim username", err)
		return "", err
	}

	if !applied {
		// Another process already registered this username
		return s.GetUserIDByUsername(ctx, username)
	}

	err = s.Session.Query(`
		INSERT INTO users (user_id, username, first_name, last_name)
		VALUES (?, ?, ?, ?)`,
		id, username, firstName, lastName,
	).WithContext(ctx).Exec()
	if err != nil {
		logg.Error("store", "Failed to create user profile row", err)
		return "", err
	}

	logg.Info("store", "User registered successfully (username anonymized)")
	return id, nil
}

// Profiles resolves a batch of user ids into profile records. Ids with no
// matching row are silently omitted from the result; a partially resolvable
// batch is not an error.
func (s *Store) Profiles(ctx context.Context, ids []string) ([]models.UserProfile, error) {
	if len(ids) == 0 {
		return []models.UserProfile{}, nil
	}

	iter := s.Session.Query(`
		SELECT user_id, username, first_name, last_name
		FROM users WHERE user_id IN ?`,
		ids,
	).WithContext(ctx).Iter()

	res := []models.UserProfile{}
	var p models.UserProfile
	for iter.Scan(&p.ID, &p.Username, &p.FirstName, &p.LastName) {
		res = append(res, p)
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to resolve user profiles", err)
		return nil, err
	}
	return res, nil
}
