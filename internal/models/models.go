package models

import "time"

type UserProfile struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// FollowEdge is a directed follow relationship. Edges are immutable: the only
// mutation after creation is deletion.
type FollowEdge struct {
	Follower  string `json:"follower"`
	Following string `json:"following"`
}

// Recommendation is unique per (movie_id, author_id). Only the description is
// mutable, and only by the author.
type Recommendation struct {
	ID          string    `json:"id"`
	AuthorID    string    `json:"author_id"`
	MovieID     string    `json:"movie_id"`
	Title       string    `json:"title"`
	PosterURL   string    `json:"poster_url"`
	GenreIDs    []int     `json:"genre_ids"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// WatchEntry is unique per (movie_id, user_id).
type WatchEntry struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	MovieID    string    `json:"movie_id"`
	Title      string    `json:"title"`
	PosterPath string    `json:"poster_path"`
	Genres     []string  `json:"genres"`
	Overview   string    `json:"overview"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Activity is a per-follower notification row written by the worker when a
// followed user posts a recommendation.
type Activity struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	RecID     string    `json:"rec_id"`
	AuthorID  string    `json:"author_id"`
	MovieID   string    `json:"movie_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}
