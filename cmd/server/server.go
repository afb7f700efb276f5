package server

import (
	"context"
	"net/http"
	"time"

	appkafka "example.com/movierecs/internal/broker"
	"example.com/movierecs/internal/feed"
	config "example.com/movierecs/internal/init"
	"example.com/movierecs/internal/logger"
	"example.com/movierecs/internal/middleware"
	"example.com/movierecs/internal/store"
	"github.com/go-chi/chi/v5"
)

type Server struct {
	store         store.StoreInterface
	resolver      *feed.Resolver
	relationships *feed.Relationships
	kafkaWriter   appkafka.KafkaWriter
	activityLimit int
}

var logg = logger.New()

func newServer(st store.StoreInterface, writer appkafka.KafkaWriter, activityLimit int) *Server {
	if activityLimit <= 0 {
		activityLimit = 50
	}
	return &Server{
		store:         st,
		resolver:      feed.NewResolver(st, st, st),
		relationships: feed.NewRelationships(st),
		kafkaWriter:   writer,
		activityLimit: activityLimit,
	}
}

// routes builds the chi router. Mutating and viewer-scoped endpoints sit
// behind the JWT middleware; registration and public listings do not.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Post("/users", s.registerUserHandler)
		r.Get("/recs", s.listRecsHandler)
		r.Get("/recs/author/{id}", s.recsByAuthorHandler)
		r.Get("/recs/movie/{movieId}", s.recsByMovieHandler)
		r.Get("/watch/{userId}", s.listWatchHandler)

		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth)
			r.Post("/follow", s.followHandler)
			r.Delete("/unfollow", s.unfollowHandler)
			r.Get("/following", s.followingHandler)
			r.Get("/followers", s.followersHandler)
			r.Get("/feed", s.feedHandler)
			r.Post("/recs", s.createRecHandler)
			r.Put("/recs/{id}", s.updateRecHandler)
			r.Delete("/recs/{id}", s.deleteRecHandler)
			r.Post("/watch", s.createWatchHandler)
			r.Delete("/watch/{id}", s.deleteWatchHandler)
			r.Get("/activity", s.activityHandler)
		})
	})

	return r
}

// Run starts the HTTP server with JWT-protected routes and graceful shutdown.
// TLS is enabled when cert/key paths are configured.
func Run(ctx context.Context, st store.StoreInterface, writer appkafka.KafkaWriter, cfg *config.Config) {
	s := newServer(st, writer, cfg.ActivityLimit)

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second, // prevent slowloris attacks
		WriteTimeout: 10 * time.Second,
	}

	// --- Start server in a goroutine ---
	go func() {
		var err error
		if cfg.TLSCert != "" && cfg.TLSKey != "" {
			logg.Info("server", "Starting HTTPS server on "+cfg.ServerAddr)
			err = srv.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
		} else {
			logg.Info("server", "Starting HTTP server on "+cfg.ServerAddr)
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logg.Error("server", "Server stopped unexpectedly", err)
		}
	}()

	// --- Graceful shutdown ---
	<-ctx.Done()
	logg.Info("server", "Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("server", "Error during server shutdown", err)
	} else {
		logg.Info("server", "Server stopped gracefully")
	}
}
