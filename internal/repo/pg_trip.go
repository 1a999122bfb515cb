package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgTripRepo is the Postgres implementation of TripRepo.
type pgTripRepo struct {
	db   db
	opts options
}

// NewPostgresTripRepo constructs a TripRepo backed by the provided pgx handle.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewPostgresTripRepo(db db, opts ...Option) TripRepo {
	return &pgTripRepo{db: db, opts: buildOptions(opts)}
}

// List returns all live trips, most recently updated first.
func (r *pgTripRepo) List(ctx context.Context) ([]domain.Trip, error) {
	const q = `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE deleted_at = 0
		ORDER BY updated_at DESC, created_at DESC`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, storageErr("repo.pgTripRepo.List", err)
	}
	defer rows.Close()

	return collectTrips("repo.pgTripRepo.List", rows)
}

// GetByID retrieves a live trip by primary key.
func (r *pgTripRepo) GetByID(ctx context.Context, id string) (domain.Trip, error) {
	const q = `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE id = @id AND deleted_at = 0`

	t, err := scanTrip(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Trip{}, storageErr("repo.pgTripRepo.GetByID", err)
	}
	return t, nil
}

// Create inserts a new trip row and returns the full persisted record.
func (r *pgTripRepo) Create(ctx context.Context, in domain.NewTrip) (domain.Trip, error) {
	const q = `
		INSERT INTO trips (id, title, cover, start_at, end_at, days, created_at, updated_at, deleted_at)
		VALUES (@id, @title, @cover, @start_at, @end_at, @days, @created_at, @updated_at, @deleted_at)`

	t := r.opts.newTrip(in)
	days, err := encodeDays(t.Days)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.pgTripRepo.Create: %w", err)
	}

	args := pgx.NamedArgs{
		"id":         t.ID,
		"title":      t.Title,
		"cover":      coverValue(t.Cover), // nil becomes NULL
		"start_at":   t.StartAt,
		"end_at":     t.EndAt,
		"days":       days,
		"created_at": t.CreatedAt,
		"updated_at": t.UpdatedAt,
		"deleted_at": t.DeletedAt,
	}
	if _, err := r.db.Exec(ctx, q, args); err != nil {
		return domain.Trip{}, storageErr("repo.pgTripRepo.Create", err)
	}
	return t, nil
}

// Update rewrites the supplied columns in a single statement.
func (r *pgTripRepo) Update(ctx context.Context, id string, patch domain.TripPatch) error {
	sets := []string{}
	args := pgx.NamedArgs{"id": id, "now": r.opts.nowMillis()}

	if patch.Title != nil {
		sets = append(sets, "title = @title")
		args["title"] = *patch.Title
	}
	if patch.Cover != nil {
		sets = append(sets, "cover = @cover")
		args["cover"] = coverValue(patch.Cover)
	}
	if patch.StartAt != nil {
		sets = append(sets, "start_at = @start_at")
		args["start_at"] = *patch.StartAt
	}
	if patch.EndAt != nil {
		sets = append(sets, "end_at = @end_at")
		args["end_at"] = *patch.EndAt
	}
	if patch.Days != nil {
		days, err := encodeDays(*patch.Days)
		if err != nil {
			return fmt.Errorf("repo.pgTripRepo.Update: %w", err)
		}
		sets = append(sets, "days = @days")
		args["days"] = days
	}
	sets = append(sets, "updated_at = GREATEST(@now, updated_at + 1)")

	q := "UPDATE trips SET " + strings.Join(sets, ", ") + " WHERE id = @id AND deleted_at = 0"

	tag, err := r.db.Exec(ctx, q, args)
	if err != nil {
		return storageErr("repo.pgTripRepo.Update", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.pgTripRepo.Update: %w", domain.ErrNotFound)
	}
	return nil
}

// SoftDelete marks a live trip as deleted.
func (r *pgTripRepo) SoftDelete(ctx context.Context, id string) error {
	const q = `
		UPDATE trips
		SET deleted_at = @now,
		    updated_at = GREATEST(@now, updated_at + 1)
		WHERE id = @id AND deleted_at = 0`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id, "now": r.opts.nowMillis()})
	if err != nil {
		return storageErr("repo.pgTripRepo.SoftDelete", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.pgTripRepo.SoftDelete: %w", domain.ErrNotFound)
	}
	return nil
}

// Search matches keyword anywhere in the title. ILIKE keeps the collation in
// line with SQLite's case-insensitive LIKE.
func (r *pgTripRepo) Search(ctx context.Context, keyword string) ([]domain.Trip, error) {
	const q = `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE deleted_at = 0 AND title ILIKE @pattern
		ORDER BY updated_at DESC, created_at DESC`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"pattern": likePattern(keyword)})
	if err != nil {
		return nil, storageErr("repo.pgTripRepo.Search", err)
	}
	defer rows.Close()

	return collectTrips("repo.pgTripRepo.Search", rows)
}
