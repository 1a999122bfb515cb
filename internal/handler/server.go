// Package handler implements the HTTP handlers for the trip planner API.
// All handlers are methods on Server. Methods are split into resource files
// (health.go, trip.go, export.go) but share the same Server struct so they can
// access its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

// TripServicer defines the business operations the trip handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching the database or service layer.
type TripServicer interface {
	List(ctx context.Context) ([]domain.Trip, error)
	FilterByStatus(ctx context.Context, status domain.TripStatus) ([]domain.Trip, error)
	Search(ctx context.Context, keyword string) ([]domain.Trip, error)
	GetByID(ctx context.Context, id string) (domain.Trip, error)
	Create(ctx context.Context, in domain.NewTrip) (string, error)
	Update(ctx context.Context, id string, patch domain.TripPatch) error
	Delete(ctx context.Context, id string) error
}

// Exporter produces the flat itinerary export.
type Exporter interface {
	Export(ctx context.Context) ([]domain.ExportRow, error)
}

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server serves every API endpoint. Wire it in main.go via Routes.
type Server struct {
	trips  TripServicer
	export Exporter
	db     Pinger
	logger *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
// export and db may be nil: the export route then answers 500 and the
// health check skips the storage ping. A nil logger means slog.Default().
func NewServer(trips TripServicer, export Exporter, db Pinger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{trips: trips, export: export, db: db, logger: logger}
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(nil, nil, nil, nil)
}

// Routes returns the API router. Static /trips sub-paths are registered
// before /trips/{id}; chi also prefers static segments over parameters.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	r.Route("/trips", func(r chi.Router) {
		r.Get("/", s.ListTrips)
		r.Post("/", s.CreateTrip)
		r.Get("/search", s.SearchTrips)
		r.Get("/export", s.GetExport)
		r.Get("/{id}", s.GetTrip)
		r.Put("/{id}", s.UpdateTrip)
		r.Delete("/{id}", s.DeleteTrip)
	})

	return r
}
