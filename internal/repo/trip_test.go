package repo_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/trip-planner/backend/internal/domain"
	"github.com/pkordes/trip-planner/backend/internal/repo"
	"github.com/pkordes/trip-planner/backend/testutil"
)

// backend builds a fresh TripRepo for one test. Postgres runs inside a
// transaction that is rolled back when the test finishes, so rows from other
// tests may be visible there but never leak between runs.
type backend struct {
	name    string
	newRepo func(t *testing.T, opts ...repo.Option) repo.TripRepo
}

var backends = []backend{
	{
		name: "sqlite",
		newRepo: func(t *testing.T, opts ...repo.Option) repo.TripRepo {
			return repo.NewSQLiteTripRepo(testutil.NewSQLiteDB(t), opts...)
		},
	},
	{
		name: "postgres",
		newRepo: func(t *testing.T, opts ...repo.Option) repo.TripRepo {
			pool := testutil.NewPool(t)
			tx, err := pool.Begin(context.Background())
			require.NoError(t, err, "begin transaction")
			t.Cleanup(func() { _ = tx.Rollback(context.Background()) })
			return repo.NewPostgresTripRepo(tx, opts...)
		},
	},
}

// forEachBackend runs fn once per storage backend as a subtest.
func forEachBackend(t *testing.T, fn func(t *testing.T, newRepo func(t *testing.T, opts ...repo.Option) repo.TripRepo)) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			fn(t, b.newRepo)
		})
	}
}

// stepClock returns a clock that advances by one second on every call,
// starting at start.
func stepClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

// frozenClock always returns the same instant.
func frozenClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func tripFixture() domain.NewTrip {
	return domain.NewTrip{
		Title:   "Kyoto in Autumn",
		StartAt: "2025-11-01",
		EndAt:   "2025-11-05",
	}
}

func ptr[T any](v T) *T { return &v }

// idsOf returns trip ids in order, keeping only those in want so that
// Postgres tests ignore rows committed by other runs.
func idsOf(trips []domain.Trip, want ...string) []string {
	keep := map[string]bool{}
	for _, id := range want {
		keep[id] = true
	}
	var out []string
	for _, tr := range trips {
		if keep[tr.ID] {
			out = append(out, tr.ID)
		}
	}
	return out
}

func TestTripRepo_Create(t *testing.T) {
	forEachBackend(t, func(t *testing.T, newRepo func(*testing.T, ...repo.Option) repo.TripRepo) {
		at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		r := newRepo(t, repo.WithClock(frozenClock(at)))
		ctx := context.Background()

		got, err := r.Create(ctx, tripFixture())

		require.NoError(t, err)
		_, err = uuid.Parse(got.ID)
		assert.NoError(t, err, "id should be a UUID")
		assert.Equal(t, "Kyoto in Autumn", got.Title)
		assert.Nil(t, got.Cover)
		assert.Equal(t, at.UnixMilli(), got.CreatedAt)
		assert.Equal(t, at.UnixMilli(), got.UpdatedAt)
		assert.Zero(t, got.DeletedAt)
		assert.NotNil(t, got.Days, "days should default to an empty list")
		assert.Empty(t, got.Days)
	})
}

func TestTripRepo_Create_RoundTripDays(t *testing.T) {
	forEachBackend(t, func(t *testing.T, newRepo func(*testing.T, ...repo.Option) repo.TripRepo) {
		r := newRepo(t)
		ctx := context.Background()

		in := domain.NewTrip{
			Title:   "T",
			Cover:   ptr("data:image/png;base64,AAAA"),
			StartAt: "2025-01-01",
			EndAt:   "2025-01-03",
			Days: []domain.Day{{
				Date: "2025-01-01",
				Items: []domain.Item{{
					ID:       "i1",
					Type:     domain.ItemFlight,
					FlightNo: "MU5101",
					Coordinates: &domain.Coordinates{
						From: &domain.LatLng{Lat: 31.19, Lng: 121.33},
						To:   &domain.LatLng{Lat: 40.08, Lng: 116.58},
					},
					Note: &domain.Note{
						Text:        "gate closes 30 min early",
						Attachments: []domain.Attachment{{ID: "a1", Type: "pdf", Data: "JVBERi0=", Name: "ticket.pdf"}},
					},
				}},
			}},
		}
		created, err := r.Create(ctx, in)
		require.NoError(t, err)

		got, err := r.GetByID(ctx, created.ID)

		require.NoError(t, err)
		require.Len(t, got.Days, 1)
		assert.Equal(t, "2025-01-01", got.Days[0].Date)
		require.Len(t, got.Days[0].Items, 1)
		item := got.Days[0].Items[0]
		assert.Equal(t, domain.ItemFlight, item.Type)
		assert.Equal(t, "MU5101", item.FlightNo)
		require.NotNil(t, item.Coordinates)
		assert.InDelta(t, 116.58, item.Coordinates.To.Lng, 1e-9)
		require.NotNil(t, item.Note)
		require.Len(t, item.Note.Attachments, 1)
		assert.Equal(t, "ticket.pdf", item.Note.Attachments[0].Name)
		require.NotNil(t, got.Cover)
		assert.Equal(t, "data:image/png;base64,AAAA", *got.Cover)
	})
}

func TestTripRepo_Create_UniqueIDs(t *testing.T) {
	forEachBackend(t, func(t *testing.T, newRepo func(*testing.T, ...repo.Option) repo.TripRepo) {
		r := newRepo(t)
		ctx := context.Background()

		seen := map[string]bool{}
		for i := 0; i < 20; i++ {
			tr, err := r.Create(ctx, tripFixture())
			require.NoError(t, err)
			assert.False(t, seen[tr.ID], "duplicate id %s", tr.ID)
			seen[tr.ID] = true
			if i%2 == 0 {
				require.NoError(t, r.SoftDelete(ctx, tr.ID))
			}
		}
	})
}

// TestTripRepo_Create_IDCollision checks that the primary key covers
// soft-deleted rows: an id can never be handed out twice.
func TestTripRepo_Create_IDCollision(t *testing.T) {
	forEachBackend(t, func(t *testing.T, newRepo func(*testing.T, ...repo.Option) repo.TripRepo) {
		fixed := uuid.NewString()
		r := newRepo(t, repo.WithIDGenerator(func() string { return fixed }))
		ctx := context.Background()

		_, err := r.Create(ctx, tripFixture())
		require.NoError(t, err)
		require.NoError(t, r.SoftDelete(ctx, fixed))

		_, err = r.Create(ctx, tripFixture())

		assert.ErrorIs(t, err, domain.ErrStorage)
	})
}

func TestTripRepo_GetByID_NotFound(t *testing.T) {
	forEachBackend(t, func(t *testing.T, newRepo func(*testing.T, ...repo.Option) repo.TripRepo) {
		r := newRepo(t)

		_, err := r.GetByID(context.Background(), uuid.NewString())

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestTripRepo_List_OrderedByUpdatedAtDesc(t *testing.T) {
	forEachBackend(t, func(t *testing.T, newRepo func(*testing.T, ...repo.Option) repo.TripRepo) {
		r := newRepo(t, repo.WithClock(stepClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))))
		ctx := context.Background()

		first, err := r.Create(ctx, tripFixture())
		require.NoError(t, err)
		second, err := r.Create(ctx, tripFixture())
		require.NoError(t, err)
		third, err := r.Create(ctx, tripFixture())
		require.NoError(t, err)

		// Touching the first trip moves it to the front.
		require.NoError(t, r.Update(ctx, first.ID, domain.TripPatch{Title: ptr("Renamed")}))

		trips, err := r.List(ctx)

		require.NoError(t, err)
		assert.Equal(t, []string{first.ID, third.ID, second.ID}, idsOf(trips, first.ID, second.ID, third.ID))
	})
}

func TestTripRepo_List_ExcludesDeleted(t *testing.T) {
	forEachBackend(t, func(t *testing.T, newRepo func(*testing.T, ...repo.Option) repo.TripRepo) {
		r := newRepo(t)
		ctx := context.Background()

		kept, err := r.Create(ctx, tripFixture())
		require.NoError(t, err)
		gone, err := r.Create(ctx, tripFixture())
		require.NoError(t, err)
		require.NoError(t, r.SoftDelete(ctx, gone.ID))

		trips, err := r.List(ctx)

		require.NoError(t, err)
		assert.Equal(t, []string{kept.ID}, idsOf(trips, kept.ID, gone.ID))
		for _, tr := range trips {
			assert.Zero(t, tr.DeletedAt, "list must never include deleted trips")
		}
	})
}

func TestTripRepo_Update_Partial(t *testing.T) {
	forEachBackend(t, func(t *testing.T, newRepo func(*testing.T, ...repo.Option) repo.TripRepo) {
		r := newRepo(t)
		ctx := context.Background()

		in := tripFixture()
		in.Cover = ptr("cover-bytes")
		created, err := r.Create(ctx, in)
		require.NoError(t, err)

		err = r.Update(ctx, created.ID, domain.TripPatch{Title: ptr("X")})
		require.NoError(t, err)

		got, err := r.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "X", got.Title)
		assert.Greater(t, got.UpdatedAt, created.UpdatedAt)
		// Untouched fields keep their values.
		assert.Equal(t, created.StartAt, got.StartAt)
		assert.Equal(t, created.EndAt, got.EndAt)
		require.NotNil(t, got.Cover)
		assert.Equal(t, "cover-bytes", *got.Cover)
		assert.Equal(t, created.CreatedAt, got.CreatedAt)
	})
}

func TestTripRepo_Update_AllFields(t *testing.T) {
	forEachBackend(t, func(t *testing.T, newRepo func(*testing.T, ...repo.Option) repo.TripRepo) {
		r := newRepo(t)
		ctx := context.Background()

		in := tripFixture()
		in.Cover = ptr("old-cover")
		created, err := r.Create(ctx, in)
		require.NoError(t, err)

		days := []domain.Day{{Date: "2025-12-01"}, {Date: "2025-12-02"}}
		err = r.Update(ctx, created.ID, domain.TripPatch{
			Title:   ptr("Winter"),
			Cover:   ptr(""), // clears the cover
			StartAt: ptr("2025-12-01"),
			EndAt:   ptr("2025-12-02"),
			Days:    &days,
		})
		require.NoError(t, err)

		got, err := r.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Winter", got.Title)
		assert.Nil(t, got.Cover)
		assert.Equal(t, "2025-12-01", got.StartAt)
		assert.Equal(t, "2025-12-02", got.EndAt)
		require.Len(t, got.Days, 2)
		assert.NotNil(t, got.Days[1].Items, "items should decode as an empty list")
	})
}

// TestTripRepo_Update_UpdatedAtStrictlyIncreases runs with a frozen clock:
// every mutation must still move updatedAt forward.
func TestTripRepo_Update_UpdatedAtStrictlyIncreases(t *testing.T) {
	forEachBackend(t, func(t *testing.T, newRepo func(*testing.T, ...repo.Option) repo.TripRepo) {
		r := newRepo(t, repo.WithClock(frozenClock(time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC))))
		ctx := context.Background()

		created, err := r.Create(ctx, tripFixture())
		require.NoError(t, err)

		prev := created.UpdatedAt
		for i := 0; i < 3; i++ {
			require.NoError(t, r.Update(ctx, created.ID, domain.TripPatch{}))
			got, err := r.GetByID(ctx, created.ID)
			require.NoError(t, err)
			assert.Greater(t, got.UpdatedAt, prev)
			prev = got.UpdatedAt
		}
	})
}

func TestTripRepo_Update_NotFound(t *testing.T) {
	forEachBackend(t, func(t *testing.T, newRepo func(*testing.T, ...repo.Option) repo.TripRepo) {
		r := newRepo(t)
		ctx := context.Background()

		err := r.Update(ctx, uuid.NewString(), domain.TripPatch{Title: ptr("ghost")})
		assert.ErrorIs(t, err, domain.ErrNotFound)

		deleted, err := r.Create(ctx, tripFixture())
		require.NoError(t, err)
		require.NoError(t, r.SoftDelete(ctx, deleted.ID))

		err = r.Update(ctx, deleted.ID, domain.TripPatch{Title: ptr("zombie")})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestTripRepo_SoftDelete(t *testing.T) {
	forEachBackend(t, func(t *testing.T, newRepo func(*testing.T, ...repo.Option) repo.TripRepo) {
		r := newRepo(t)
		ctx := context.Background()

		created, err := r.Create(ctx, tripFixture())
		require.NoError(t, err)

		require.NoError(t, r.SoftDelete(ctx, created.ID))

		_, err = r.GetByID(ctx, created.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound, "deleted trip should be hidden")

		// A second delete is a NotFound, not a crash.
		err = r.SoftDelete(ctx, created.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestTripRepo_SoftDelete_NotFound(t *testing.T) {
	forEachBackend(t, func(t *testing.T, newRepo func(*testing.T, ...repo.Option) repo.TripRepo) {
		r := newRepo(t)

		err := r.SoftDelete(context.Background(), uuid.NewString())

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestTripRepo_Search(t *testing.T) {
	forEachBackend(t, func(t *testing.T, newRepo func(*testing.T, ...repo.Option) repo.TripRepo) {
		r := newRepo(t, repo.WithClock(stepClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))))
		ctx := context.Background()

		create := func(title string) string {
			in := tripFixture()
			in.Title = title
			tr, err := r.Create(ctx, in)
			require.NoError(t, err)
			return tr.ID
		}
		tokyo := create("Tokyo Food Tour")
		osaka := create("Osaka")
		tokyoAgain := create("Back to TOKYO")
		deleted := create("Tokyo (cancelled)")
		require.NoError(t, r.SoftDelete(ctx, deleted))

		got, err := r.Search(ctx, "tokyo")

		require.NoError(t, err)
		assert.Equal(t, []string{tokyoAgain, tokyo}, idsOf(got, tokyo, osaka, tokyoAgain, deleted))
	})
}

// TestTripRepo_Search_LiteralWildcards checks that % and _ in the keyword
// match themselves instead of acting as LIKE wildcards.
func TestTripRepo_Search_LiteralWildcards(t *testing.T) {
	forEachBackend(t, func(t *testing.T, newRepo func(*testing.T, ...repo.Option) repo.TripRepo) {
		r := newRepo(t)
		ctx := context.Background()

		in := tripFixture()
		in.Title = "100% Iceland"
		pct, err := r.Create(ctx, in)
		require.NoError(t, err)

		in.Title = "Iceland_2025"
		under, err := r.Create(ctx, in)
		require.NoError(t, err)

		in.Title = "Iceland 2025"
		plain, err := r.Create(ctx, in)
		require.NoError(t, err)

		got, err := r.Search(ctx, "%")
		require.NoError(t, err)
		assert.Equal(t, []string{pct.ID}, idsOf(got, pct.ID, under.ID, plain.ID))

		got, err = r.Search(ctx, "d_2")
		require.NoError(t, err)
		assert.Equal(t, []string{under.ID}, idsOf(got, pct.ID, under.ID, plain.ID))
	})
}

func TestTripRepo_Search_NoMatch(t *testing.T) {
	forEachBackend(t, func(t *testing.T, newRepo func(*testing.T, ...repo.Option) repo.TripRepo) {
		r := newRepo(t)

		got, err := r.Search(context.Background(), uuid.NewString())

		require.NoError(t, err)
		assert.NotNil(t, got, "should return an empty slice, not nil")
		assert.Empty(t, got)
	})
}

// TestTripRepo_ConcurrentUpdateAndDelete races an update against a soft
// delete on the same row. Whatever order they commit in, the row must hold
// the full effect of each committed statement.
func TestTripRepo_ConcurrentUpdateAndDelete(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	r := repo.NewSQLiteTripRepo(db)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		created, err := r.Create(ctx, tripFixture())
		require.NoError(t, err)

		days := []domain.Day{{Date: "2025-11-02", Items: []domain.Item{{ID: "x", Type: domain.ItemSpot, SpotName: "Fushimi Inari"}}}}
		patch := domain.TripPatch{Title: ptr("Updated"), EndAt: ptr("2025-11-09"), Days: &days}

		var (
			wg                   sync.WaitGroup
			updateErr, deleteErr error
		)
		wg.Add(2)
		go func() { defer wg.Done(); updateErr = r.Update(ctx, created.ID, patch) }()
		go func() { defer wg.Done(); deleteErr = r.SoftDelete(ctx, created.ID) }()
		wg.Wait()

		require.NoError(t, deleteErr, "delete targets a live row and must win or follow the update")

		row := rawRow(t, db, created.ID)
		assert.NotZero(t, row.deletedAt)
		if updateErr == nil {
			// Update committed first: all of its columns are present.
			assert.Equal(t, "Updated", row.title)
			assert.Equal(t, "2025-11-09", row.endAt)
			assert.Contains(t, row.days, "Fushimi Inari")
		} else {
			// Delete committed first: the update saw no live row and wrote nothing.
			assert.ErrorIs(t, updateErr, domain.ErrNotFound)
			assert.Equal(t, created.Title, row.title)
			assert.Equal(t, created.EndAt, row.endAt)
			assert.Equal(t, "[]", row.days)
		}
	}
}

type tripRow struct {
	title, endAt, days string
	deletedAt          int64
}

// rawRow reads a row directly, bypassing the soft-delete filter.
func rawRow(t *testing.T, db *sql.DB, id string) tripRow {
	t.Helper()
	var row tripRow
	err := db.QueryRowContext(context.Background(),
		`SELECT title, end_at, days, deleted_at FROM trips WHERE id = ?`, id).
		Scan(&row.title, &row.endAt, &row.days, &row.deletedAt)
	require.NoError(t, err)
	return row
}

// TestTripRepo_MalformedDays corrupts the days column and checks that reads
// report a storage failure instead of panicking or returning partial data.
func TestTripRepo_MalformedDays(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	r := repo.NewSQLiteTripRepo(db)
	ctx := context.Background()

	created, err := r.Create(ctx, tripFixture())
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `UPDATE trips SET days = '[{"date": ' WHERE id = ?`, created.ID)
	require.NoError(t, err)

	_, err = r.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.NotErrorIs(t, err, domain.ErrNotFound)

	_, err = r.List(ctx)
	assert.ErrorIs(t, err, domain.ErrStorage)
}

// TestTripRepo_EmptyDaysColumn checks the lenient path: an empty or null
// days value reads back as an empty list.
func TestTripRepo_EmptyDaysColumn(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	r := repo.NewSQLiteTripRepo(db)
	ctx := context.Background()

	for _, raw := range []string{"", "null", "  "} {
		created, err := r.Create(ctx, tripFixture())
		require.NoError(t, err)
		_, err = db.ExecContext(ctx, `UPDATE trips SET days = ? WHERE id = ?`, raw, created.ID)
		require.NoError(t, err)

		got, err := r.GetByID(ctx, created.ID)

		require.NoError(t, err, "raw=%q", raw)
		assert.NotNil(t, got.Days)
		assert.Empty(t, got.Days)
	}
}
