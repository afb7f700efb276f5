package server

import (
	"encoding/json"
	"net/http"

	"example.com/movierecs/internal/middleware"
	"example.com/movierecs/internal/models"
	"github.com/go-chi/chi/v5"
)

// createWatchHandler handles POST /api/watch.
// Expects JSON body: {"movie_id", "title", "poster_path", "genres", "overview"}
// One entry per (movie, user); a duplicate is a 400.
func (s *Server) createWatchHandler(w http.ResponseWriter, r *http.Request) {
	type req struct {
		MovieID    string   `json:"movie_id"`
		Title      string   `json:"title"`
		PosterPath string   `json:"poster_path"`
		Genres     []string `json:"genres"`
		Overview   string   `json:"overview"`
	}
	var body req

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logg.Error("http/watch", "Invalid request body", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		logg.Info("http/watch", "Unauthorized watchlist attempt")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if body.MovieID == "" || body.Title == "" {
		http.Error(w, "movie_id and title are required", http.StatusBadRequest)
		return
	}

	entry, err := s.store.CreateWatchEntry(r.Context(), models.WatchEntry{
		UserID:     userID,
		MovieID:    body.MovieID,
		Title:      body.Title,
		PosterPath: body.PosterPath,
		Genres:     body.Genres,
		Overview:   body.Overview,
	})
	if err != nil {
		respondStoreError(w, "http/watch", err)
		return
	}

	logg.Info("http/watch", "Watch entry created by user_id="+userID)
	writeJSON(w, http.StatusCreated, entry)
}

// deleteWatchHandler handles DELETE /api/watch/{id}. Only the owner may
// delete; anyone else sees a plain 404.
func (s *Server) deleteWatchHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := s.store.DeleteWatchEntry(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		respondStoreError(w, "http/watch", err)
		return
	}

	logg.Info("http/watch", "Watch entry deleted by user_id="+userID)
	w.WriteHeader(http.StatusNoContent)
}

// listWatchHandler handles GET /api/watch/{userId}: a user's watchlist,
// oldest first.
func (s *Server) listWatchHandler(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.ListWatchEntries(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		respondStoreError(w, "http/watch", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
