package server

import (
	"encoding/json"
	"net/http"

	"example.com/movierecs/internal/middleware"
)

// followHandler handles POST /api/follow.
// Expects JSON body: {"following": "<user id>"}
// The follower is the authenticated caller. A duplicate follow is a 400, not
// a silent success.
func (s *Server) followHandler(w http.ResponseWriter, r *http.Request) {
	type req struct {
		Following string `json:"following"`
	}
	var body req

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logg.Error("http/follow", "Invalid request body", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if body.Following == "" {
		http.Error(w, "missing 'following' in request body", http.StatusBadRequest)
		return
	}

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		logg.Info("http/follow", "Unauthorized follow attempt")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	edge, err := s.relationships.Follow(r.Context(), userID, body.Following)
	if err != nil {
		respondStoreError(w, "http/follow", err)
		return
	}

	logg.Info("http/follow", "User "+userID+" followed "+body.Following)
	writeJSON(w, http.StatusCreated, edge)
}

// unfollowHandler handles DELETE /api/unfollow.
// Expects JSON body: {"following": "<user id>"}
// Unfollowing someone the caller does not follow still returns 204.
func (s *Server) unfollowHandler(w http.ResponseWriter, r *http.Request) {
	type req struct {
		Following string `json:"following"`
	}
	var body req

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logg.Error("http/follow", "Invalid request body", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := s.relationships.Unfollow(r.Context(), userID, body.Following); err != nil {
		respondStoreError(w, "http/follow", err)
		return
	}

	logg.Info("http/follow", "User "+userID+" unfollowed "+body.Following)
	w.WriteHeader(http.StatusNoContent)
}

// followingHandler handles GET /api/following: profiles of everyone the
// caller follows.
func (s *Server) followingHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	profiles, err := s.resolver.FollowingProfiles(r.Context(), userID)
	if err != nil {
		respondStoreError(w, "http/follow", err)
		return
	}

	writeJSON(w, http.StatusOK, profiles)
}

// followersHandler handles GET /api/followers: profiles of everyone following
// the caller.
func (s *Server) followersHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	profiles, err := s.resolver.FollowerProfiles(r.Context(), userID)
	if err != nil {
		respondStoreError(w, "http/follow", err)
		return
	}

	writeJSON(w, http.StatusOK, profiles)
}

// feedHandler handles GET /api/feed: recommendations from followed authors,
// most recently updated first, recomputed on every request.
func (s *Server) feedHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		logg.Info("http/feed", "Unauthorized feed access attempt")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	recs, err := s.resolver.Feed(r.Context(), userID)
	if err != nil {
		respondStoreError(w, "http/feed", err)
		return
	}

	logg.Info("http/feed", "Feed retrieved for user_id="+userID)
	writeJSON(w, http.StatusOK, recs)
}
