// Package api exposes batch ingestion and snapshot operations over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"dataforge/internal/batch"
	"dataforge/internal/snapshot"
)

// Processor is the ingestion write path.
type Processor interface {
	Process(ctx context.Context, table string, raws []map[string]any) (*batch.Outcome, error)
}

// Snapshotter drives table backup and restore.
type Snapshotter interface {
	Backup(ctx context.Context, table string) (string, error)
	Restore(ctx context.Context, table, path string) (*snapshot.RestoreOutcome, error)
}

// Pinger reports store liveness for the health endpoint.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Server routes HTTP requests onto the processor and snapshot manager. It
// never validates records itself; everything funnels through the same batch
// path the migration driver uses.
type Server struct {
	proc  Processor
	snaps Snapshotter
	db    Pinger

	requestTimeout time.Duration
}

func NewServer(proc Processor, snaps Snapshotter, db Pinger) *Server {
	return &Server{
		proc:           proc,
		snaps:          snaps,
		db:             db,
		requestTimeout: 60 * time.Second,
	}
}

func withTimeout(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), d)
}

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/v1/tables/{table}", func(r chi.Router) {
		r.Post("/records", s.handleIngest)
		r.Post("/backup", s.handleBackup)
		r.Post("/restore", s.handleRestore)
	})
	return r
}
