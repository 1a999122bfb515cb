// Package repo contains all database access logic for the trip planner.
// TripRepo has a SQLite implementation (database/sql) and a Postgres
// implementation (pgx). No business logic lives here, only SQL and type
// mapping.
package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

// TripRepo defines the persistence operations for Trips.
// Every read skips soft-deleted rows; no operation removes a row.
// The service layer depends on this interface, not on a concrete backend.
type TripRepo interface {
	// List returns all live trips ordered by updatedAt descending.
	List(ctx context.Context) ([]domain.Trip, error)

	// GetByID returns the live trip with the given id.
	// Returns domain.ErrNotFound if it is absent or soft-deleted.
	GetByID(ctx context.Context, id string) (domain.Trip, error)

	// Create assigns a fresh id and timestamps, inserts the trip and returns
	// the persisted record.
	Create(ctx context.Context, in domain.NewTrip) (domain.Trip, error)

	// Update applies the non-nil fields of patch and always bumps updatedAt.
	// Returns domain.ErrNotFound if no live trip has the given id.
	Update(ctx context.Context, id string, patch domain.TripPatch) error

	// SoftDelete sets deletedAt and bumps updatedAt.
	// Returns domain.ErrNotFound if no live trip has the given id, including
	// a trip that was already deleted.
	SoftDelete(ctx context.Context, id string) error

	// Search returns live trips whose title contains keyword, ordered by
	// updatedAt descending. Matching is ASCII case-insensitive and the
	// keyword is taken literally (no wildcards).
	Search(ctx context.Context, keyword string) ([]domain.Trip, error)
}

// Option configures a TripRepo.
type Option func(*options)

type options struct {
	now   func() time.Time
	newID func() string
}

// WithClock overrides the time source used for createdAt, updatedAt and
// deletedAt. Tests use this to get deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator overrides the id source used by Create.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

// newTripID returns a random UUID v4 string. Ids are never reused because
// rows are never removed.
func newTripID() string {
	return uuid.NewString()
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, newID: newTripID}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) nowMillis() int64 {
	return o.now().UnixMilli()
}

// newTrip builds the row that Create inserts.
func (o options) newTrip(in domain.NewTrip) domain.Trip {
	now := o.nowMillis()
	var cover *string
	if in.Cover != nil && *in.Cover != "" {
		c := *in.Cover
		cover = &c
	}
	return domain.Trip{
		ID:        o.newID(),
		Title:     in.Title,
		Cover:     cover,
		StartAt:   in.StartAt,
		EndAt:     in.EndAt,
		Days:      normalizeDays(in.Days),
		CreatedAt: now,
		UpdatedAt: now,
		DeletedAt: 0,
	}
}

// tripColumns is the column list shared by every SELECT; scanTrip reads the
// columns in this order.
const tripColumns = `id, title, cover, start_at, end_at, days, created_at, updated_at, deleted_at`

// scanner is satisfied by *sql.Row, *sql.Rows, pgx.Row and pgx.Rows, allowing
// scanTrip to be shared by both backends.
type scanner interface {
	Scan(dest ...any) error
}

// scanTrip maps a single database row into a domain.Trip, decoding the days
// column. A missing row becomes domain.ErrNotFound; a corrupt days column
// becomes domain.ErrStorage.
func scanTrip(s scanner) (domain.Trip, error) {
	var (
		t     domain.Trip
		cover *string
		days  *string
	)

	err := s.Scan(&t.ID, &t.Title, &cover, &t.StartAt, &t.EndAt, &days, &t.CreatedAt, &t.UpdatedAt, &t.DeletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
			return domain.Trip{}, domain.ErrNotFound
		}
		return domain.Trip{}, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}

	t.Cover = cover
	raw := ""
	if days != nil {
		raw = *days
	}
	if t.Days, err = decodeDays(raw); err != nil {
		return domain.Trip{}, fmt.Errorf("trip %s: %w", t.ID, err)
	}
	return t, nil
}

// encodeDays serializes days for the days column. The whole list is always
// rewritten; there is no partial update of nested items.
func encodeDays(days []domain.Day) (string, error) {
	b, err := json.Marshal(normalizeDays(days))
	if err != nil {
		return "", fmt.Errorf("%w: encode days: %w", domain.ErrStorage, err)
	}
	return string(b), nil
}

// decodeDays parses the days column. Empty and null values decode to an empty
// list; anything else that is not a JSON array of days is a storage failure.
func decodeDays(raw string) ([]domain.Day, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return []domain.Day{}, nil
	}
	var days []domain.Day
	if err := json.Unmarshal([]byte(raw), &days); err != nil {
		return nil, fmt.Errorf("%w: decode days: %w", domain.ErrStorage, err)
	}
	return normalizeDays(days), nil
}

// normalizeDays replaces nil slices with empty ones so the wire format always
// carries arrays, never null.
func normalizeDays(days []domain.Day) []domain.Day {
	if days == nil {
		return []domain.Day{}
	}
	for i := range days {
		if days[i].Items == nil {
			days[i].Items = []domain.Item{}
		}
		for j := range days[i].Items {
			if n := days[i].Items[j].Note; n != nil && n.Attachments == nil {
				n.Attachments = []domain.Attachment{}
			}
		}
	}
	return days
}

// coverValue maps a patch cover to the column value: "" clears it.
func coverValue(cover *string) any {
	if cover == nil || *cover == "" {
		return nil
	}
	return *cover
}

// likePattern escapes LIKE metacharacters in keyword and wraps it for a
// substring match. Both backends use backslash as the escape character.
func likePattern(keyword string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(keyword) + "%"
}

// storageErr wraps a driver error so callers can match domain.ErrStorage.
func storageErr(op string, err error) error {
	if errors.Is(err, domain.ErrStorage) || errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
}

// tripRows is the subset of *sql.Rows and pgx.Rows that collectTrips needs.
type tripRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func collectTrips(op string, rows tripRows) ([]domain.Trip, error) {
	trips := []domain.Trip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, storageErr(op+": scan", err)
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(op+": rows", err)
	}
	return trips, nil
}
