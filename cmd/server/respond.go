package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"example.com/movierecs/internal/feed"
	"example.com/movierecs/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// respondStoreError maps the store's error taxonomy onto HTTP statuses:
// conflicts and malformed ids are the caller's fault (400), the conflated
// missing/not-owned outcome is 404, anything else is a 500.
func respondStoreError(w http.ResponseWriter, module string, err error) {
	switch {
	case errors.Is(err, feed.ErrAlreadyFollowing):
		http.Error(w, "you already follow this user", http.StatusBadRequest)
	case errors.Is(err, store.ErrConflict):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, store.ErrInvalidID):
		http.Error(w, "the id is not valid", http.StatusBadRequest)
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		logg.Error(module, "Store operation failed", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
