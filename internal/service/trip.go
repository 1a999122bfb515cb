// Package service contains the business logic for the trip planner API.
// Services validate inputs, enforce business rules, and orchestrate repo calls.
// No SQL lives here; services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/repo"
)

// TripService implements business logic for Trip operations.
type TripService struct {
	repo repo.TripRepo
	now  func() time.Time
}

// NewTripService constructs a TripService backed by the provided TripRepo.
func NewTripService(r repo.TripRepo) *TripService {
	return &TripService{repo: r, now: time.Now}
}

// WithClock returns a copy of s that reads the current time from now.
// Status filtering uses it to decide what "today" is.
func (s *TripService) WithClock(now func() time.Time) *TripService {
	cp := *s
	cp.now = now
	return &cp
}

// Create validates and persists a new trip, returning its id.
func (s *TripService) Create(ctx context.Context, in domain.NewTrip) (string, error) {
	if err := checkTitle(in.Title); err != nil {
		return "", fmt.Errorf("service.TripService.Create: %w", err)
	}
	if err := validate.StructCtx(ctx, in); err != nil {
		return "", fmt.Errorf("service.TripService.Create: %w", validationError(err))
	}
	if err := checkRange(in.StartAt, in.EndAt); err != nil {
		return "", fmt.Errorf("service.TripService.Create: %w", err)
	}

	created, err := s.repo.Create(ctx, in)
	if err != nil {
		return "", fmt.Errorf("service.TripService.Create: %w", err)
	}
	return created.ID, nil
}

// GetByID returns a single live trip by id.
func (s *TripService) GetByID(ctx context.Context, id string) (domain.Trip, error) {
	if err := checkID(id); err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.GetByID: %w", err)
	}
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.GetByID: %w", err)
	}
	return t, nil
}

// List returns all live trips, most recently updated first.
// The result is never nil.
func (s *TripService) List(ctx context.Context) ([]domain.Trip, error) {
	trips, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.TripService.List: %w", err)
	}
	if trips == nil {
		trips = []domain.Trip{}
	}
	return trips, nil
}

// Update validates and applies a partial update.
// When the patch moves either end of the date range, the merged range is
// checked against the stored trip.
func (s *TripService) Update(ctx context.Context, id string, patch domain.TripPatch) error {
	if err := checkID(id); err != nil {
		return fmt.Errorf("service.TripService.Update: %w", err)
	}
	if patch.Title != nil {
		if err := checkTitle(*patch.Title); err != nil {
			return fmt.Errorf("service.TripService.Update: %w", err)
		}
	}
	if err := validate.StructCtx(ctx, patch); err != nil {
		return fmt.Errorf("service.TripService.Update: %w", validationError(err))
	}
	if patch.Days != nil {
		if err := validate.StructCtx(ctx, daysPayload{Days: *patch.Days}); err != nil {
			return fmt.Errorf("service.TripService.Update: %w", validationError(err))
		}
	}

	if patch.StartAt != nil || patch.EndAt != nil {
		startAt, endAt, err := s.mergedRange(ctx, id, patch)
		if err != nil {
			return fmt.Errorf("service.TripService.Update: %w", err)
		}
		if err := checkRange(startAt, endAt); err != nil {
			return fmt.Errorf("service.TripService.Update: %w", err)
		}
	}

	if err := s.repo.Update(ctx, id, patch); err != nil {
		return fmt.Errorf("service.TripService.Update: %w", err)
	}
	return nil
}

// mergedRange returns the date range the trip would have after patch.
// The stored trip is only read when the patch supplies one side.
func (s *TripService) mergedRange(ctx context.Context, id string, patch domain.TripPatch) (string, string, error) {
	if patch.StartAt != nil && patch.EndAt != nil {
		return *patch.StartAt, *patch.EndAt, nil
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", "", err
	}
	startAt, endAt := current.StartAt, current.EndAt
	if patch.StartAt != nil {
		startAt = *patch.StartAt
	}
	if patch.EndAt != nil {
		endAt = *patch.EndAt
	}
	return startAt, endAt, nil
}

// Delete soft-deletes a trip by id.
func (s *TripService) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return fmt.Errorf("service.TripService.Delete: %w", err)
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("service.TripService.Delete: %w", err)
	}
	return nil
}

// Search returns live trips whose title contains keyword.
// A blank keyword is rejected rather than treated as "match everything".
func (s *TripService) Search(ctx context.Context, keyword string) ([]domain.Trip, error) {
	if strings.TrimSpace(keyword) == "" {
		return nil, fmt.Errorf("service.TripService.Search: %w: search keyword is required", domain.ErrValidation)
	}
	trips, err := s.repo.Search(ctx, keyword)
	if err != nil {
		return nil, fmt.Errorf("service.TripService.Search: %w", err)
	}
	if trips == nil {
		trips = []domain.Trip{}
	}
	return trips, nil
}

// FilterByStatus returns the live trips matching status as of today (UTC).
// StatusAll returns the full list.
func (s *TripService) FilterByStatus(ctx context.Context, status domain.TripStatus) ([]domain.Trip, error) {
	if _, ok := domain.ParseTripStatus(string(status)); !ok {
		return nil, fmt.Errorf("service.TripService.FilterByStatus: %w: unknown status %q", domain.ErrValidation, status)
	}

	trips, err := s.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.TripService.FilterByStatus: %w", err)
	}
	if status == domain.StatusAll || status == "" {
		return trips, nil
	}

	today := domain.Today(s.now())
	out := []domain.Trip{}
	for _, t := range trips {
		if t.Matches(status, today) {
			out = append(out, t)
		}
	}
	return out, nil
}

func checkID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: trip id is required", domain.ErrValidation)
	}
	return nil
}
