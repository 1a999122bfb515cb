// Package facade keeps a caller-side view of trips (the full list and one
// "current" trip) in sync with a TripStore. Every successful write is
// followed by a full reload instead of an optimistic cache update.
package facade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

// TripStore is the backend the facade reads and writes through.
// *service.TripService and *client.Client both satisfy it.
type TripStore interface {
	List(ctx context.Context) ([]domain.Trip, error)
	GetByID(ctx context.Context, id string) (domain.Trip, error)
	Create(ctx context.Context, in domain.NewTrip) (string, error)
	Update(ctx context.Context, id string, patch domain.TripPatch) error
	Delete(ctx context.Context, id string) error
}

// TripFacade caches the trip list and the current trip. It is safe for
// concurrent use.
type TripFacade struct {
	store  TripStore
	logger *slog.Logger

	mu      sync.Mutex
	trips   []domain.Trip
	current *domain.Trip
	keyword string
	loading int
}

// New returns a facade over store with an empty cache. A nil logger means
// slog.Default().
func New(store TripStore, logger *slog.Logger) *TripFacade {
	if logger == nil {
		logger = slog.Default()
	}
	return &TripFacade{store: store, logger: logger, trips: []domain.Trip{}}
}

// LoadAll replaces the cached list with a fresh one. On failure the previous
// list is kept and the error is returned.
func (f *TripFacade) LoadAll(ctx context.Context) error {
	f.begin()
	defer f.end()

	trips, err := f.store.List(ctx)
	if err != nil {
		f.logger.ErrorContext(ctx, "failed to load trips", "error", err)
		return fmt.Errorf("facade.TripFacade.LoadAll: %w", err)
	}
	if trips == nil {
		trips = []domain.Trip{}
	}

	f.mu.Lock()
	f.trips = trips
	f.mu.Unlock()
	return nil
}

// LoadOne replaces the current trip with a fresh copy of id. A missing or
// deleted trip clears the current trip and is not an error.
func (f *TripFacade) LoadOne(ctx context.Context, id string) error {
	f.begin()
	defer f.end()

	t, err := f.store.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		f.mu.Lock()
		f.current = nil
		f.mu.Unlock()
		return nil
	}
	if err != nil {
		f.logger.ErrorContext(ctx, "failed to load trip", "error", err, "trip_id", id)
		return fmt.Errorf("facade.TripFacade.LoadOne: %w", err)
	}

	f.mu.Lock()
	f.current = &t
	f.mu.Unlock()
	return nil
}

// Create stores a new trip and reloads the list. It returns the new id.
func (f *TripFacade) Create(ctx context.Context, in domain.NewTrip) (string, error) {
	id, err := f.store.Create(ctx, in)
	if err != nil {
		f.logger.ErrorContext(ctx, "failed to create trip", "error", err)
		return "", fmt.Errorf("facade.TripFacade.Create: %w", err)
	}
	f.refreshAll(ctx)
	return id, nil
}

// Update applies patch, reloads the list, and reloads the current trip if it
// is the one that changed.
func (f *TripFacade) Update(ctx context.Context, id string, patch domain.TripPatch) error {
	if err := f.store.Update(ctx, id, patch); err != nil {
		f.logger.ErrorContext(ctx, "failed to update trip", "error", err, "trip_id", id)
		return fmt.Errorf("facade.TripFacade.Update: %w", err)
	}
	f.refreshAll(ctx)
	if f.isCurrent(id) {
		// LoadOne already logs its failures.
		_ = f.LoadOne(ctx, id)
	}
	return nil
}

// Delete soft-deletes id, reloads the list, and clears the current trip if
// it was the one deleted.
func (f *TripFacade) Delete(ctx context.Context, id string) error {
	if err := f.store.Delete(ctx, id); err != nil {
		f.logger.ErrorContext(ctx, "failed to delete trip", "error", err, "trip_id", id)
		return fmt.Errorf("facade.TripFacade.Delete: %w", err)
	}
	f.refreshAll(ctx)

	f.mu.Lock()
	if f.current != nil && f.current.ID == id {
		f.current = nil
	}
	f.mu.Unlock()
	return nil
}

// refreshAll reloads the list after a write that already succeeded.
// A reload failure is logged by LoadAll and does not fail the write.
func (f *TripFacade) refreshAll(ctx context.Context) {
	_ = f.LoadAll(ctx)
}

func (f *TripFacade) isCurrent(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current != nil && f.current.ID == id
}

// Loading reports whether a LoadAll or LoadOne is in flight.
func (f *TripFacade) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading > 0
}

// Trips returns a copy of the cached list.
func (f *TripFacade) Trips() []domain.Trip {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Trip, len(f.trips))
	copy(out, f.trips)
	return out
}

// Current returns the cached current trip, if any.
func (f *TripFacade) Current() (domain.Trip, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return domain.Trip{}, false
	}
	return *f.current, true
}

// SetSearchKeyword sets the keyword Filtered applies to the cached list.
func (f *TripFacade) SetSearchKeyword(keyword string) {
	f.mu.Lock()
	f.keyword = keyword
	f.mu.Unlock()
}

// ClearSearch removes the search keyword.
func (f *TripFacade) ClearSearch() {
	f.SetSearchKeyword("")
}

// SearchKeyword returns the current search keyword.
func (f *TripFacade) SearchKeyword() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keyword
}

// Filtered returns the cached trips whose title contains the search keyword,
// ignoring case. With no keyword it returns the whole cached list.
func (f *TripFacade) Filtered() []domain.Trip {
	f.mu.Lock()
	defer f.mu.Unlock()

	kw := strings.ToLower(strings.TrimSpace(f.keyword))
	out := make([]domain.Trip, 0, len(f.trips))
	for _, t := range f.trips {
		if kw == "" || strings.Contains(strings.ToLower(t.Title), kw) {
			out = append(out, t)
		}
	}
	return out
}

func (f *TripFacade) begin() {
	f.mu.Lock()
	f.loading++
	f.mu.Unlock()
}

func (f *TripFacade) end() {
	f.mu.Lock()
	f.loading--
	f.mu.Unlock()
}
