package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"example.com/movierecs/internal/models"
	"github.com/google/uuid"
)

// MockStore simulates the Cassandra store for testing. It enforces the same
// uniqueness and ownership invariants as the real store, including the
// conflated not-found/not-yours outcome.
type MockStore struct {
	mu          sync.Mutex
	userCounter int
	tick        int64

	Users     map[string]models.UserProfile // user_id -> profile
	Usernames map[string]string             // username -> user_id
	Edges     map[string]models.FollowEdge  // follower|following -> edge
	Recs      []models.Recommendation       // insertion order preserved
	Watch     []models.WatchEntry
	Activity  map[string][]models.Activity

	ShouldFail bool // flag to simulate failures
}

// NewMock initializes a new mock store
func NewMock() *MockStore {
	return &MockStore{
		Users:     make(map[string]models.UserProfile),
		Usernames: make(map[string]string),
		Edges:     make(map[string]models.FollowEdge),
		Activity:  make(map[string][]models.Activity),
	}
}

func (m *MockStore) Close() {}

// nextTime returns a strictly increasing timestamp so recency ordering is
// deterministic in tests.
func (m *MockStore) nextTime() time.Time {
	m.tick++
	return time.Unix(m.tick, 0).UTC()
}

func edgeKey(follower, following string) string {
	return follower + "|" + following
}

// --- users ---

func (m *MockStore) RegisterUser(ctx context.Context, username, firstName, lastName string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return "", errors.New("mock: register user failed")
	}
	if id, ok := m.Usernames[username]; ok {
		return id, nil
	}
	m.userCounter++
	id := fmt.Sprintf("user_%d", m.userCounter)
	m.Usernames[username] = id
	m.Users[id] = models.UserProfile{ID: id, Username: username, FirstName: firstName, LastName: lastName}
	return id, nil
}

func (m *MockStore) GetUserIDByUsername(ctx context.Context, username string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return "", errors.New("mock: get user by username failed")
	}
	return m.Usernames[username], nil
}

func (m *MockStore) Profiles(ctx context.Context, ids []string) ([]models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, errors.New("mock: profiles failed")
	}
	res := []models.UserProfile{}
	for _, id := range ids {
		if p, ok := m.Users[id]; ok {
			res = append(res, p)
		}
	}
	return res, nil
}

// --- follow edges ---

func (m *MockStore) CreateEdge(ctx context.Context, follower, following string) (models.FollowEdge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return models.FollowEdge{}, errors.New("mock: create edge failed")
	}
	key := edgeKey(follower, following)
	if _, ok := m.Edges[key]; ok {
		return models.FollowEdge{}, fmt.Errorf("follow edge %w", ErrConflict)
	}
	edge := models.FollowEdge{Follower: follower, Following: following}
	m.Edges[key] = edge
	return edge, nil
}

func (m *MockStore) DeleteEdge(ctx context.Context, follower, following string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return false, errors.New("mock: delete edge failed")
	}
	key := edgeKey(follower, following)
	if _, ok := m.Edges[key]; !ok {
		return false, nil
	}
	delete(m.Edges, key)
	return true, nil
}

func (m *MockStore) ListFollowing(ctx context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, errors.New("mock: list following failed")
	}
	var res []string
	for _, e := range m.Edges {
		if e.Follower == userID {
			res = append(res, e.Following)
		}
	}
	return res, nil
}

func (m *MockStore) ListFollowers(ctx context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, errors.New("mock: list followers failed")
	}
	var res []string
	for _, e := range m.Edges {
		if e.Following == userID {
			res = append(res, e.Follower)
		}
	}
	return res, nil
}

// --- recommendations ---

func (m *MockStore) CreateRecommendation(ctx context.Context, rec models.Recommendation) (models.Recommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return models.Recommendation{}, errors.New("mock: create recommendation failed")
	}
	for _, r := range m.Recs {
		if r.AuthorID == rec.AuthorID && r.MovieID == rec.MovieID {
			return models.Recommendation{}, fmt.Errorf("recommendation %w", ErrConflict)
		}
	}
	rec.ID = uuid.NewString()
	now := m.nextTime()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	m.Recs = append(m.Recs, rec)
	return rec, nil
}

func (m *MockStore) UpdateRecommendation(ctx context.Context, id, authorID, description string) (models.Recommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return models.Recommendation{}, errors.New("mock: update recommendation failed")
	}
	if _, err := uuid.Parse(id); err != nil {
		return models.Recommendation{}, fmt.Errorf("recommendation id %q: %w", id, ErrInvalidID)
	}
	for i, r := range m.Recs {
		if r.ID == id {
			if r.AuthorID != authorID {
				return models.Recommendation{}, fmt.Errorf("recommendation %w", ErrNotFound)
			}
			m.Recs[i].Description = description
			m.Recs[i].UpdatedAt = m.nextTime()
			return m.Recs[i], nil
		}
	}
	return models.Recommendation{}, fmt.Errorf("recommendation %w", ErrNotFound)
}

func (m *MockStore) DeleteRecommendation(ctx context.Context, id, authorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return errors.New("mock: delete recommendation failed")
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("recommendation id %q: %w", id, ErrInvalidID)
	}
	for i, r := range m.Recs {
		if r.ID == id {
			if r.AuthorID != authorID {
				return fmt.Errorf("recommendation %w", ErrNotFound)
			}
			m.Recs = append(m.Recs[:i], m.Recs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("recommendation %w", ErrNotFound)
}

func (m *MockStore) ListRecommendations(ctx context.Context) ([]models.Recommendation, error) {
	return m.filterRecs(func(models.Recommendation) bool { return true })
}

func (m *MockStore) ListRecommendationsByAuthor(ctx context.Context, authorID string) ([]models.Recommendation, error) {
	return m.filterRecs(func(r models.Recommendation) bool { return r.AuthorID == authorID })
}

func (m *MockStore) ListRecommendationsByMovie(ctx context.Context, movieID string) ([]models.Recommendation, error) {
	return m.filterRecs(func(r models.Recommendation) bool { return r.MovieID == movieID })
}

func (m *MockStore) ListRecommendationsByAuthors(ctx context.Context, authorIDs []string) ([]models.Recommendation, error) {
	set := make(map[string]struct{}, len(authorIDs))
	for _, id := range authorIDs {
		set[id] = struct{}{}
	}
	return m.filterRecs(func(r models.Recommendation) bool {
		_, ok := set[r.AuthorID]
		return ok
	})
}

func (m *MockStore) filterRecs(keep func(models.Recommendation) bool) ([]models.Recommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, errors.New("mock: list recommendations failed")
	}
	res := []models.Recommendation{}
	for _, r := range m.Recs {
		if keep(r) {
			res = append(res, r)
		}
	}
	sortByUpdatedDesc(res)
	return res, nil
}

// --- watchlist ---

func (m *MockStore) CreateWatchEntry(ctx context.Context, entry models.WatchEntry) (models.WatchEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return models.WatchEntry{}, errors.New("mock: create watch entry failed")
	}
	for _, e := range m.Watch {
		if e.UserID == entry.UserID && e.MovieID == entry.MovieID {
			return models.WatchEntry{}, fmt.Errorf("watch entry %w", ErrConflict)
		}
	}
	entry.ID = uuid.NewString()
	now := m.nextTime()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	m.Watch = append(m.Watch, entry)
	return entry, nil
}

func (m *MockStore) DeleteWatchEntry(ctx context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return errors.New("mock: delete watch entry failed")
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("watch entry id %q: %w", id, ErrInvalidID)
	}
	for i, e := range m.Watch {
		if e.ID == id {
			if e.UserID != userID {
				return fmt.Errorf("watch entry %w", ErrNotFound)
			}
			m.Watch = append(m.Watch[:i], m.Watch[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("watch entry %w", ErrNotFound)
}

func (m *MockStore) ListWatchEntries(ctx context.Context, userID string) ([]models.WatchEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, errors.New("mock: list watch entries failed")
	}
	res := []models.WatchEntry{}
	for _, e := range m.Watch {
		if e.UserID == userID {
			res = append(res, e)
		}
	}
	// insertion order already matches created_at ascending
	return res, nil
}

// --- activity ---

func (m *MockStore) AddActivity(ctx context.Context, act models.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return errors.New("mock: add activity failed")
	}
	act.ID = uuid.NewString()
	m.Activity[act.UserID] = append(m.Activity[act.UserID], act)
	return nil
}

func (m *MockStore) ListActivity(ctx context.Context, userID string, limit int) ([]models.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, errors.New("mock: list activity failed")
	}
	acts := m.Activity[userID]
	// newest first, like the clustering order of the real table
	res := []models.Activity{}
	for i := len(acts) - 1; i >= 0 && len(res) < limit; i-- {
		res = append(res, acts[i])
	}
	return res, nil
}

// ---------------------------------------------
// MockStoreFail always returns errors for negative tests
type MockStoreFail struct{}

func (m *MockStoreFail) Close() {}

func (m *MockStoreFail) RegisterUser(ctx context.Context, username, firstName, lastName string) (string, error) {
	return "", errors.New("mock store register user failed")
}

func (m *MockStoreFail) GetUserIDByUsername(ctx context.Context, username string) (string, error) {
	return "", errors.New("mock store get user by username failed")
}

func (m *MockStoreFail) Profiles(ctx context.Context, ids []string) ([]models.UserProfile, error) {
	return nil, errors.New("mock store profiles failed")
}

func (m *MockStoreFail) CreateEdge(ctx context.Context, follower, following string) (models.FollowEdge, error) {
	return models.FollowEdge{}, errors.New("mock store create edge failed")
}

func (m *MockStoreFail) DeleteEdge(ctx context.Context, follower, following string) (bool, error) {
	return false, errors.New("mock store delete edge failed")
}

func (m *MockStoreFail) ListFollowing(ctx context.Context, userID string) ([]string, error) {
	return nil, errors.New("mock store list following failed")
}

func (m *MockStoreFail) ListFollowers(ctx context.Context, userID string) ([]string, error) {
	return nil, errors.New("mock store list followers failed")
}

func (m *MockStoreFail) CreateRecommendation(ctx context.Context, rec models.Recommendation) (models.Recommendation, error) {
	return models.Recommendation{}, errors.New("mock store create recommendation failed")
}

func (m *MockStoreFail) UpdateRecommendation(ctx context.Context, id, authorID, description string) (models.Recommendation, error) {
	return models.Recommendation{}, errors.New("mock store update recommendation failed")
}

func (m *MockStoreFail) DeleteRecommendation(ctx context.Context, id, authorID string) error {
	return errors.New("mock store delete recommendation failed")
}

func (m *MockStoreFail) ListRecommendations(ctx context.Context) ([]models.Recommendation, error) {
	return nil, errors.New("mock store list recommendations failed")
}

func (m *MockStoreFail) ListRecommendationsByAuthor(ctx context.Context, authorID string) ([]models.Recommendation, error) {
	return nil, errors.New("mock store list recommendations by author failed")
}

func (m *MockStoreFail) ListRecommendationsByMovie(ctx context.Context, movieID string) ([]models.Recommendation, error) {
	return nil, errors.New("mock store list recommendations by movie failed")
}

func (m *MockStoreFail) ListRecommendationsByAuthors(ctx context.Context, authorIDs []string) ([]models.Recommendation, error) {
	return nil, errors.New("mock store list recommendations by authors failed")
}

func (m *MockStoreFail) CreateWatchEntry(ctx context.Context, entry models.WatchEntry) (models.WatchEntry, error) {
	return models.WatchEntry{}, errors.New("mock store create watch entry failed")
}

func (m *MockStoreFail) DeleteWatchEntry(ctx context.Context, id, userID string) error {
	return errors.New("mock store delete watch entry failed")
}

func (m *MockStoreFail) ListWatchEntries(ctx context.Context, userID string) ([]models.WatchEntry, error) {
	return nil, errors.New("mock store list watch entries failed")
}

func (m *MockStoreFail) AddActivity(ctx context.Context, act models.Activity) error {
	return errors.New("mock store add activity failed")
}

func (m *MockStoreFail) ListActivity(ctx context.Context, userID string, limit int) ([]models.Activity, error) {
	return nil, errors.New("mock store list activity failed")
}
