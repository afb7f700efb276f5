package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	appkafka "example.com/movierecs/internal/broker"
	"example.com/movierecs/internal/models"
	"example.com/movierecs/internal/store"
	"github.com/golang-jwt/jwt/v5"
)

//
// --- Helpers ---
//

// generate JWT token for test user
func makeTestJWT(userID string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	tokenStr, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		panic(err)
	}
	return tokenStr
}

// create HTTP request with JWT token
func sendJSONRequest(t *testing.T, method, url string, body any, token string, expectedStatus int) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json.Marshal failed: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if resp.StatusCode != expectedStatus {
		b, _ := io.ReadAll(resp.Body)
		defer resp.Body.Close()
		t.Fatalf("expected %d, got %d: %s", expectedStatus, resp.StatusCode, string(b))
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return v
}

//
// --- Setup test server ---
//

func setupTestServer(t *testing.T) (*Server, *store.MockStore, *httptest.Server) {
	t.Helper()
	os.Setenv("JWT_SECRET", "test-secret")

	mockStore := store.NewMock()
	s := newServer(mockStore, &appkafka.MockKafka{Store: mockStore}, 50)
	ts := httptest.NewServer(s.routes())
	t.Cleanup(ts.Close)

	return s, mockStore, ts
}

func registerUser(t *testing.T, st *store.MockStore, username string) (string, string) {
	t.Helper()
	id, err := st.RegisterUser(context.Background(), username, "", "")
	if err != nil {
		t.Fatalf("register %s failed: %v", username, err)
	}
	return id, makeTestJWT(id)
}

//
// --- Tests ---
//

// register a new user over HTTP
func TestRegisterUser(t *testing.T) {
	_, _, ts := setupTestServer(t)

	resp := sendJSONRequest(t, http.MethodPost, ts.URL+"/api/users",
		map[string]any{"username": "almaz", "first_name": "Al", "last_name": "Maz"},
		"", http.StatusOK)

	body := decodeBody[map[string]any](t, resp)
	if body["user_id"] == "" || body["token"] == "" {
		t.Fatalf("expected user_id and token, got %v", body)
	}
}

// full flow: follow -> recommend -> feed -> unfollow -> empty feed
func TestFollowAndFeedFlow(t *testing.T) {
	_, st, ts := setupTestServer(t)

	_, almazToken := registerUser(t, st, "almaz")
	nurID, nurToken := registerUser(t, st, "nur")

	// Almaz -> follow Nur
	sendJSONRequest(t, http.MethodPost, ts.URL+"/api/follow",
		map[string]any{"following": nurID}, almazToken, http.StatusCreated)

	// Nur -> recommend movie 42
	sendJSONRequest(t, http.MethodPost, ts.URL+"/api/recs",
		map[string]any{"movie_id": "42", "title": "X", "description": "go see this"},
		nurToken, http.StatusCreated)

	// Almaz -> feed contains exactly the one entry
	resp := sendJSONRequest(t, http.MethodGet, ts.URL+"/api/feed", nil, almazToken, http.StatusOK)
	feed := decodeBody[[]models.Recommendation](t, resp)
	if len(feed) != 1 || feed[0].MovieID != "42" {
		t.Fatalf("expected single feed entry for movie 42, got %+v", feed)
	}

	// Almaz -> unfollow Nur; a fresh feed is empty
	sendJSONRequest(t, http.MethodDelete, ts.URL+"/api/unfollow",
		map[string]any{"following": nurID}, almazToken, http.StatusNoContent)

	resp = sendJSONRequest(t, http.MethodGet, ts.URL+"/api/feed", nil, almazToken, http.StatusOK)
	feed = decodeBody[[]models.Recommendation](t, resp)
	if len(feed) != 0 {
		t.Fatalf("expected empty feed after unfollow, got %+v", feed)
	}
}

// duplicate follow is rejected, not silently accepted
func TestFollow_Duplicate(t *testing.T) {
	_, st, ts := setupTestServer(t)

	_, almazToken := registerUser(t, st, "almaz")
	nurID, _ := registerUser(t, st, "nur")

	body := map[string]any{"following": nurID}
	sendJSONRequest(t, http.MethodPost, ts.URL+"/api/follow", body, almazToken, http.StatusCreated)
	sendJSONRequest(t, http.MethodPost, ts.URL+"/api/follow", body, almazToken, http.StatusBadRequest)
}

// following and followers listings resolve profiles
func TestFollowingAndFollowers(t *testing.T) {
	_, st, ts := setupTestServer(t)

	_, almazToken := registerUser(t, st, "almaz")
	nurID, nurToken := registerUser(t, st, "nur")

	sendJSONRequest(t, http.MethodPost, ts.URL+"/api/follow",
		map[string]any{"following": nurID}, almazToken, http.StatusCreated)

	resp := sendJSONRequest(t, http.MethodGet, ts.URL+"/api/following", nil, almazToken, http.StatusOK)
	following := decodeBody[[]models.UserProfile](t, resp)
	if len(following) != 1 || following[0].Username != "nur" {
		t.Fatalf("expected nur in following, got %+v", following)
	}

	resp = sendJSONRequest(t, http.MethodGet, ts.URL+"/api/followers", nil, nurToken, http.StatusOK)
	followers := decodeBody[[]models.UserProfile](t, resp)
	if len(followers) != 1 || followers[0].Username != "almaz" {
		t.Fatalf("expected almaz in followers, got %+v", followers)
	}
}

// one recommendation per (movie, author)
func TestCreateRec_Duplicate(t *testing.T) {
	_, st, ts := setupTestServer(t)

	_, token := registerUser(t, st, "almaz")
	_, otherToken := registerUser(t, st, "nur")

	body := map[string]any{"movie_id": "42", "title": "X"}
	sendJSONRequest(t, http.MethodPost, ts.URL+"/api/recs", body, token, http.StatusCreated)
	sendJSONRequest(t, http.MethodPost, ts.URL+"/api/recs", body, token, http.StatusBadRequest)

	// A different author may recommend the same movie.
	sendJSONRequest(t, http.MethodPost, ts.URL+"/api/recs", body, otherToken, http.StatusCreated)
}

// non-author update is indistinguishable from a missing record
func TestUpdateRec_NonAuthor(t *testing.T) {
	_, st, ts := setupTestServer(t)

	_, authorToken := registerUser(t, st, "author")
	_, intruderToken := registerUser(t, st, "intruder")

	resp := sendJSONRequest(t, http.MethodPost, ts.URL+"/api/recs",
		map[string]any{"movie_id": "42", "title": "X", "description": "original"},
		authorToken, http.StatusCreated)
	rec := decodeBody[models.Recommendation](t, resp)

	sendJSONRequest(t, http.MethodPut, ts.URL+"/api/recs/"+rec.ID,
		map[string]any{"description": "tampered"}, intruderToken, http.StatusNotFound)

	// The record is unchanged for everyone else.
	resp = sendJSONRequest(t, http.MethodGet, ts.URL+"/api/recs", nil, "", http.StatusOK)
	recs := decodeBody[[]models.Recommendation](t, resp)
	if len(recs) != 1 || recs[0].Description != "original" {
		t.Fatalf("record modified by non-author: %+v", recs)
	}

	// The author may update.
	resp = sendJSONRequest(t, http.MethodPut, ts.URL+"/api/recs/"+rec.ID,
		map[string]any{"description": "edited"}, authorToken, http.StatusOK)
	updated := decodeBody[models.Recommendation](t, resp)
	if updated.Description != "edited" {
		t.Fatalf("expected edited description, got %q", updated.Description)
	}
}

// malformed ids are a 400, missing records a 404
func TestDeleteRec_InvalidAndMissing(t *testing.T) {
	_, st, ts := setupTestServer(t)
	_, token := registerUser(t, st, "almaz")

	sendJSONRequest(t, http.MethodDelete, ts.URL+"/api/recs/not-a-uuid", nil, token, http.StatusBadRequest)
	sendJSONRequest(t, http.MethodDelete, ts.URL+"/api/recs/00000000-0000-0000-0000-000000000000", nil, token, http.StatusNotFound)
}

// recommendation listings by author and by movie
func TestListRecs_Filters(t *testing.T) {
	_, st, ts := setupTestServer(t)

	almazID, almazToken := registerUser(t, st, "almaz")
	_, nurToken := registerUser(t, st, "nur")

	sendJSONRequest(t, http.MethodPost, ts.URL+"/api/recs",
		map[string]any{"movie_id": "42", "title": "X"}, almazToken, http.StatusCreated)
	sendJSONRequest(t, http.MethodPost, ts.URL+"/api/recs",
		map[string]any{"movie_id": "42", "title": "X"}, nurToken, http.StatusCreated)
	sendJSONRequest(t, http.MethodPost, ts.URL+"/api/recs",
		map[string]any{"movie_id": "7", "title": "Seven"}, almazToken, http.StatusCreated)

	resp := sendJSONRequest(t, http.MethodGet, ts.URL+"/api/recs/author/"+almazID, nil, "", http.StatusOK)
	byAuthor := decodeBody[[]models.Recommendation](t, resp)
	if len(byAuthor) != 2 {
		t.Fatalf("expected 2 recs by author, got %d", len(byAuthor))
	}

	resp = sendJSONRequest(t, http.MethodGet, ts.URL+"/api/recs/movie/42", nil, "", http.StatusOK)
	byMovie := decodeBody[[]models.Recommendation](t, resp)
	if len(byMovie) != 2 {
		t.Fatalf("expected 2 recs for movie 42, got %d", len(byMovie))
	}
}

// watchlist: duplicate per user conflicts, another user succeeds
func TestWatchFlow(t *testing.T) {
	_, st, ts := setupTestServer(t)

	u1ID, u1Token := registerUser(t, st, "u1")
	_, u2Token := registerUser(t, st, "u2")

	body := map[string]any{"movie_id": "100", "title": "Hundred"}
	resp := sendJSONRequest(t, http.MethodPost, ts.URL+"/api/watch", body, u1Token, http.StatusCreated)
	entry := decodeBody[models.WatchEntry](t, resp)

	sendJSONRequest(t, http.MethodPost, ts.URL+"/api/watch", body, u1Token, http.StatusBadRequest)
	sendJSONRequest(t, http.MethodPost, ts.URL+"/api/watch", body, u2Token, http.StatusCreated)

	resp = sendJSONRequest(t, http.MethodGet, ts.URL+"/api/watch/"+u1ID, nil, "", http.StatusOK)
	entries := decodeBody[[]models.WatchEntry](t, resp)
	if len(entries) != 1 || entries[0].MovieID != "100" {
		t.Fatalf("expected one watch entry for movie 100, got %+v", entries)
	}

	sendJSONRequest(t, http.MethodDelete, ts.URL+"/api/watch/"+entry.ID, nil, u2Token, http.StatusNotFound)
	sendJSONRequest(t, http.MethodDelete, ts.URL+"/api/watch/"+entry.ID, nil, u1Token, http.StatusNoContent)
}

// recommendation events land in followers' activity streams
func TestActivityDelivery(t *testing.T) {
	_, st, ts := setupTestServer(t)

	_, fanToken := registerUser(t, st, "fan")
	authorID, authorToken := registerUser(t, st, "author")

	sendJSONRequest(t, http.MethodPost, ts.URL+"/api/follow",
		map[string]any{"following": authorID}, fanToken, http.StatusCreated)
	sendJSONRequest(t, http.MethodPost, ts.URL+"/api/recs",
		map[string]any{"movie_id": "42", "title": "X"}, authorToken, http.StatusCreated)

	resp := sendJSONRequest(t, http.MethodGet, ts.URL+"/api/activity", nil, fanToken, http.StatusOK)
	acts := decodeBody[[]models.Activity](t, resp)
	if len(acts) != 1 || acts[0].MovieID != "42" {
		t.Fatalf("expected one activity row for movie 42, got %+v", acts)
	}
}

// a broker failure must not fail recommendation creation
func TestCreateRec_KafkaFailureIsBestEffort(t *testing.T) {
	s, st, _ := setupTestServer(t)
	s.kafkaWriter = &appkafka.MockKafkaFail{}

	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	_, token := registerUser(t, st, "almaz")
	sendJSONRequest(t, http.MethodPost, ts.URL+"/api/recs",
		map[string]any{"movie_id": "42", "title": "X"}, token, http.StatusCreated)
}

// invalid JSON for follow
func TestFollow_InvalidJSON(t *testing.T) {
	_, st, ts := setupTestServer(t)
	_, token := registerUser(t, st, "almaz")

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/follow", bytes.NewBufferString(`{"following":1}`))
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// missing token is rejected by the middleware
func TestProtectedRoutes_RequireAuth(t *testing.T) {
	_, _, ts := setupTestServer(t)

	for _, route := range []string{"/api/feed", "/api/following", "/api/followers", "/api/activity"} {
		resp, err := http.Get(ts.URL + route)
		if err != nil {
			t.Fatalf("GET %s failed: %v", route, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %s, got %d", route, resp.StatusCode)
		}
	}
}

// store failure surfaces as 500
func TestFeed_StoreFailure(t *testing.T) {
	os.Setenv("JWT_SECRET", "test-secret")
	s := newServer(&store.MockStoreFail{}, &appkafka.MockKafkaFail{}, 50)
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	token := makeTestJWT("anyone")
	sendJSONRequest(t, http.MethodGet, ts.URL+"/api/feed", nil, token, http.StatusInternalServerError)
}
