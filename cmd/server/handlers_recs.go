package server

import (
	"encoding/json"
	"net/http"

	appkafka "example.com/movierecs/internal/broker"
	"example.com/movierecs/internal/middleware"
	"example.com/movierecs/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/segmentio/kafka-go"
)

// createRecHandler handles POST /api/recs.
// Expects JSON body: {"movie_id", "title", "poster_url", "genre_ids", "description"}
// One recommendation per (movie, author); a duplicate is a 400.
func (s *Server) createRecHandler(w http.ResponseWriter, r *http.Request) {
	type req struct {
		MovieID     string `json:"movie_id"`
		Title       string `json:"title"`
		PosterURL   string `json:"poster_url"`
		GenreIDs    []int  `json:"genre_ids"`
		Description string `json:"description"`
	}
	var body req

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logg.Error("http/recs", "Invalid request body", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		logg.Info("http/recs", "Unauthorized recommendation attempt")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if body.MovieID == "" || body.Title == "" {
		http.Error(w, "movie_id and title are required", http.StatusBadRequest)
		return
	}
	if len(body.Description) > 1000 {
		logg.Info("http/recs", "Description too long for user_id="+userID)
		http.Error(w, "description must be at most 1000 characters", http.StatusBadRequest)
		return
	}

	rec, err := s.store.CreateRecommendation(r.Context(), models.Recommendation{
		AuthorID:    userID,
		MovieID:     body.MovieID,
		Title:       body.Title,
		PosterURL:   body.PosterURL,
		GenreIDs:    body.GenreIDs,
		Description: body.Description,
	})
	if err != nil {
		respondStoreError(w, "http/recs", err)
		return
	}

	// Activity fan-out is best effort: the recommendation is already durable,
	// so a broker hiccup must not fail the request.
	if data, err := json.Marshal(rec); err == nil {
		msg := kafka.Message{
			Key:   []byte(appkafka.EventRecCreated),
			Value: data,
		}
		if err := s.kafkaWriter.WriteMessages(msg); err != nil {
			logg.Error("http/recs", "Failed to publish recommendation event", err)
		}
	}

	logg.Info("http/recs", "Recommendation created by user_id="+userID)
	writeJSON(w, http.StatusCreated, rec)
}

// updateRecHandler handles PUT /api/recs/{id}.
// Expects JSON body: {"description": "..."}
// Only the author may update; anyone else sees a plain 404.
func (s *Server) updateRecHandler(w http.ResponseWriter, r *http.Request) {
	type req struct {
		Description string `json:"description"`
	}
	var body req

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logg.Error("http/recs", "Invalid request body", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	rec, err := s.store.UpdateRecommendation(r.Context(), chi.URLParam(r, "id"), userID, body.Description)
	if err != nil {
		respondStoreError(w, "http/recs", err)
		return
	}

	logg.Info("http/recs", "Recommendation updated by user_id="+userID)
	writeJSON(w, http.StatusOK, rec)
}

// deleteRecHandler handles DELETE /api/recs/{id} with the same ownership rule
// as update.
func (s *Server) deleteRecHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := s.store.DeleteRecommendation(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		respondStoreError(w, "http/recs", err)
		return
	}

	logg.Info("http/recs", "Recommendation deleted by user_id="+userID)
	w.WriteHeader(http.StatusNoContent)
}

// listRecsHandler handles GET /api/recs: every recommendation, most recently
// updated first.
func (s *Server) listRecsHandler(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.ListRecommendations(r.Context())
	if err != nil {
		respondStoreError(w, "http/recs", err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// recsByAuthorHandler handles GET /api/recs/author/{id}.
func (s *Server) recsByAuthorHandler(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.ListRecommendationsByAuthor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, "http/recs", err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// recsByMovieHandler handles GET /api/recs/movie/{movieId}.
func (s *Server) recsByMovieHandler(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.ListRecommendationsByMovie(r.Context(), chi.URLParam(r, "movieId"))
	if err != nil {
		respondStoreError(w, "http/recs", err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}
