package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

// sqlDB is the minimal interface satisfied by *sql.DB, *sql.Conn and *sql.Tx.
// Tests pass a go-sqlmock *sql.DB to exercise driver failures.
type sqlDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// sqliteTripRepo is the SQLite implementation of TripRepo.
type sqliteTripRepo struct {
	db   sqlDB
	opts options
}

// NewSQLiteTripRepo constructs a TripRepo backed by a database/sql handle
// opened with the "sqlite" driver.
func NewSQLiteTripRepo(db sqlDB, opts ...Option) TripRepo {
	return &sqliteTripRepo{db: db, opts: buildOptions(opts)}
}

// List returns all live trips, most recently updated first.
func (r *sqliteTripRepo) List(ctx context.Context) ([]domain.Trip, error) {
	const q = `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE deleted_at = 0
		ORDER BY updated_at DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, storageErr("repo.sqliteTripRepo.List", err)
	}
	defer rows.Close()

	return collectTrips("repo.sqliteTripRepo.List", rows)
}

// GetByID retrieves a live trip by primary key.
func (r *sqliteTripRepo) GetByID(ctx context.Context, id string) (domain.Trip, error) {
	const q = `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE id = ? AND deleted_at = 0`

	t, err := scanTrip(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return domain.Trip{}, storageErr("repo.sqliteTripRepo.GetByID", err)
	}
	return t, nil
}

// Create inserts a new trip row and returns the full persisted record.
func (r *sqliteTripRepo) Create(ctx context.Context, in domain.NewTrip) (domain.Trip, error) {
	const q = `
		INSERT INTO trips (id, title, cover, start_at, end_at, days, created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	t := r.opts.newTrip(in)
	days, err := encodeDays(t.Days)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.sqliteTripRepo.Create: %w", err)
	}

	_, err = r.db.ExecContext(ctx, q,
		t.ID, t.Title, coverValue(t.Cover), t.StartAt, t.EndAt, days,
		t.CreatedAt, t.UpdatedAt, t.DeletedAt,
	)
	if err != nil {
		return domain.Trip{}, storageErr("repo.sqliteTripRepo.Create", err)
	}
	return t, nil
}

// Update rewrites the supplied columns in a single statement, so a
// concurrent SoftDelete either sees the whole update or none of it.
func (r *sqliteTripRepo) Update(ctx context.Context, id string, patch domain.TripPatch) error {
	var (
		sets []string
		args []any
	)
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Cover != nil {
		sets = append(sets, "cover = ?")
		args = append(args, coverValue(patch.Cover))
	}
	if patch.StartAt != nil {
		sets = append(sets, "start_at = ?")
		args = append(args, *patch.StartAt)
	}
	if patch.EndAt != nil {
		sets = append(sets, "end_at = ?")
		args = append(args, *patch.EndAt)
	}
	if patch.Days != nil {
		days, err := encodeDays(*patch.Days)
		if err != nil {
			return fmt.Errorf("repo.sqliteTripRepo.Update: %w", err)
		}
		sets = append(sets, "days = ?")
		args = append(args, days)
	}
	// updated_at must move forward even if two writes land in one millisecond.
	sets = append(sets, "updated_at = MAX(?, updated_at + 1)")
	args = append(args, r.opts.nowMillis(), id)

	q := "UPDATE trips SET " + strings.Join(sets, ", ") + " WHERE id = ? AND deleted_at = 0"

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return storageErr("repo.sqliteTripRepo.Update", err)
	}
	return checkAffected("repo.sqliteTripRepo.Update", res)
}

// SoftDelete marks a live trip as deleted.
func (r *sqliteTripRepo) SoftDelete(ctx context.Context, id string) error {
	const q = `
		UPDATE trips
		SET deleted_at = ?,
		    updated_at = MAX(?, updated_at + 1)
		WHERE id = ? AND deleted_at = 0`

	now := r.opts.nowMillis()
	res, err := r.db.ExecContext(ctx, q, now, now, id)
	if err != nil {
		return storageErr("repo.sqliteTripRepo.SoftDelete", err)
	}
	return checkAffected("repo.sqliteTripRepo.SoftDelete", res)
}

// Search matches keyword anywhere in the title. SQLite's LIKE folds ASCII
// letters only.
func (r *sqliteTripRepo) Search(ctx context.Context, keyword string) ([]domain.Trip, error) {
	const q = `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE deleted_at = 0 AND title LIKE ? ESCAPE '\'
		ORDER BY updated_at DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, q, likePattern(keyword))
	if err != nil {
		return nil, storageErr("repo.sqliteTripRepo.Search", err)
	}
	defer rows.Close()

	return collectTrips("repo.sqliteTripRepo.Search", rows)
}

func checkAffected(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return nil
}
