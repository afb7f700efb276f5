package server

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"

	"example.com/movierecs/internal/middleware"
	"github.com/golang-jwt/jwt/v5"
)

// registerUserHandler handles POST /api/users.
// Expects JSON body: {"username": "...", "first_name": "...", "last_name": "..."}
// Returns JSON response: {"user_id": <id>, "token": <jwt>}
func (s *Server) registerUserHandler(w http.ResponseWriter, r *http.Request) {
	type req struct {
		Username  string `json:"username"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	var body req

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logg.Error("http/users", "Invalid request body", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if len(body.Username) == 0 || len(body.Username) > 50 {
		logg.Info("http/users", "Invalid username length")
		http.Error(w, "username must be 1-50 characters", http.StatusBadRequest)
		return
	}

	userID, err := s.store.RegisterUser(r.Context(), body.Username, body.FirstName, body.LastName)
	if err != nil {
		logg.Error("http/users", "Failed to register user", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	logg.Info("http/users", "User registered with user_id="+userID)

	secret := []byte(os.Getenv("JWT_SECRET"))
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour * 24).Unix(),
	})
	tokenStr, err := token.SignedString(secret)
	if err != nil {
		http.Error(w, "failed to generate token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"token":   tokenStr,
	})
}

// activityHandler handles GET /api/activity.
// Query parameters: ?limit=50
// Returns the caller's notification stream, newest first.
func (s *Server) activityHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	limit := s.activityLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	acts, err := s.store.ListActivity(r.Context(), userID, limit)
	if err != nil {
		respondStoreError(w, "http/activity", err)
		return
	}

	writeJSON(w, http.StatusOK, acts)
}
