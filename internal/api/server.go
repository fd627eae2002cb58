// Package api exposes the detector's read model over HTTP: current top
// movers, recent spike alerts, and the collected video feed. All endpoints
// are read-only; detection and delivery stay in the daemon cycle.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/earlyshift/earlyshift/internal/config"
	"github.com/earlyshift/earlyshift/internal/storage"
)

// Server wires the store into the HTTP handlers.
type Server struct {
	store     storage.Store
	window    time.Duration // trailing comparison window for /api/movers
	threshold float64       // growth percent at which a universe counts as spiking
	cooldown  time.Duration // ledger recency window for the mover state field

	now func() time.Time
}

// NewServer creates an API server reading from the given store, using the
// detector's window and thresholds to compute movers and their alert state.
func NewServer(store storage.Store, cfg config.DetectorConfig) *Server {
	return &Server{
		store:     store,
		window:    cfg.TrailingWindow(),
		threshold: cfg.GrowthThresholdPercent,
		cooldown:  cfg.Cooldown(),
		now:       time.Now,
	}
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/movers", s.handleMovers)
		r.Get("/spikes", s.handleSpikes)
		r.Get("/videos", s.handleVideos)
	})

	return r
}
