//go:build integration || !unit

package mysql_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/domain"
	mysqlrepo "github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/storage/mysql"
)

// ---------- small helpers ----------

func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/sql)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func mustStay(t *testing.T, in, out string) domain.StayInterval {
	t.Helper()
	ci, _ := time.Parse("2006-01-02", in)
	co, _ := time.Parse("2006-01-02", out)
	stay, err := domain.NewStayInterval(ci, co)
	if err != nil {
		t.Fatalf("stay %s..%s: %v", in, out, err)
	}
	return stay
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}

	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=ledger",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "ledger")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

// ---------- the tests ----------

func TestRepo_MySQL_LedgerLifecycle(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	exp := now.Add(10 * time.Minute)
	stay := mustStay(t, "2026-07-10", "2026-07-12")

	hold := domain.LedgerEntry{
		ID:         "h-1",
		RoomID:     "mixto_7",
		Beds:       []int{1, 2, 3},
		Stay:       stay,
		Origin:     domain.OriginHold,
		Status:     domain.StatusHold,
		GuestLabel: "Ana",
		GuestCount: 3,
		ExpiresAt:  &exp,
		Pricing: &domain.PriceSnapshot{
			SubtotalCents: 28800,
			Season:        "low",
			TotalCents:    28800,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Insert(ctx, hold); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := repo.Get(ctx, "h-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != domain.StatusHold || len(got.Beds) != 3 || got.Beds[2] != 3 {
		t.Fatalf("unexpected entry: %+v", got)
	}
	if got.Pricing == nil || got.Pricing.TotalCents != 28800 {
		t.Fatalf("pricing snapshot not round-tripped: %+v", got.Pricing)
	}
	if got.ExpiresAt == nil || !got.ExpiresAt.Equal(exp) {
		t.Fatalf("expires_at not round-tripped: %v", got.ExpiresAt)
	}

	overlapping, err := repo.ListOverlapping(ctx, "mixto_7", mustStay(t, "2026-07-11", "2026-07-14"))
	if err != nil {
		t.Fatalf("ListOverlapping: %v", err)
	}
	if len(overlapping) != 1 || overlapping[0].ID != "h-1" {
		t.Fatalf("expected the hold to overlap, got %+v", overlapping)
	}
	disjoint, err := repo.ListOverlapping(ctx, "mixto_7", mustStay(t, "2026-07-12", "2026-07-14"))
	if err != nil {
		t.Fatalf("ListOverlapping disjoint: %v", err)
	}
	if len(disjoint) != 0 {
		t.Fatalf("checkout-day back-to-back must not overlap, got %+v", disjoint)
	}

	// Confirm before expiry succeeds exactly once.
	ok, err := repo.UpdateStatusIf(ctx, "h-1", domain.StatusHold, domain.StatusConfirmed, now.Add(time.Minute))
	if err != nil || !ok {
		t.Fatalf("UpdateStatusIf confirm: ok=%v err=%v", ok, err)
	}
	ok, err = repo.UpdateStatusIf(ctx, "h-1", domain.StatusHold, domain.StatusConfirmed, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("UpdateStatusIf repeat: %v", err)
	}
	if ok {
		t.Fatal("second conditional transition must not match")
	}
}

func TestRepo_MySQL_ExpireDue(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(10 * time.Minute)
	stay := mustStay(t, "2026-07-10", "2026-07-12")

	for _, e := range []domain.LedgerEntry{
		{ID: "stale", RoomID: "mixto_12a", Beds: []int{1}, Stay: stay, Origin: domain.OriginHold, Status: domain.StatusHold, ExpiresAt: &past, CreatedAt: now, UpdatedAt: now},
		{ID: "fresh", RoomID: "mixto_12a", Beds: []int{2}, Stay: stay, Origin: domain.OriginHold, Status: domain.StatusHold, ExpiresAt: &future, CreatedAt: now, UpdatedAt: now},
	} {
		if err := repo.Insert(ctx, e); err != nil {
			t.Fatalf("Insert %s: %v", e.ID, err)
		}
	}

	n, err := repo.ExpireDue(ctx, now)
	if err != nil {
		t.Fatalf("ExpireDue: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 expiry, got %d", n)
	}
	n, err = repo.ExpireDue(ctx, now)
	if err != nil || n != 0 {
		t.Fatalf("repeat sweep must be a no-op: n=%d err=%v", n, err)
	}

	stale, _ := repo.Get(ctx, "stale")
	fresh, _ := repo.Get(ctx, "fresh")
	if stale.Status != domain.StatusExpired || fresh.Status != domain.StatusHold {
		t.Fatalf("stale=%s fresh=%s", stale.Status, fresh.Status)
	}

	// An expired hold must stop matching the hold-guarded transition.
	ok, err := repo.UpdateStatusIf(ctx, "stale", domain.StatusHold, domain.StatusConfirmed, now)
	if err != nil || ok {
		t.Fatalf("expired hold confirmed: ok=%v err=%v", ok, err)
	}
}

func TestRepo_MySQL_ExternalRef(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	stay := mustStay(t, "2026-08-01", "2026-08-04")
	ref := domain.ExternalRef{Platform: "airbnb", BookingID: "ABC123"}

	e := domain.LedgerEntry{
		ID:        "imp-1",
		RoomID:    "mixto_12b",
		Beds:      []int{1, 2},
		Stay:      stay,
		Origin:    domain.OriginPlatform,
		Status:    domain.StatusConfirmed,
		External:  &ref,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Insert(ctx, e); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	found, err := repo.FindByExternalRef(ctx, "mixto_12b", ref)
	if err != nil {
		t.Fatalf("FindByExternalRef: %v", err)
	}
	if found == nil || found.ID != "imp-1" || found.External == nil || found.External.BookingID != "ABC123" {
		t.Fatalf("unexpected match: %+v", found)
	}

	miss, err := repo.FindByExternalRef(ctx, "mixto_12b", domain.ExternalRef{Platform: "airbnb", BookingID: "nope"})
	if err != nil {
		t.Fatalf("FindByExternalRef miss: %v", err)
	}
	if miss != nil {
		t.Fatalf("expected nil on miss, got %+v", miss)
	}

	// Update moves the stay in place.
	e.Stay = mustStay(t, "2026-08-02", "2026-08-05")
	e.UpdatedAt = now.Add(time.Hour)
	if err := repo.Update(ctx, e); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := repo.Get(ctx, "imp-1")
	if !got.Stay.CheckIn.Equal(e.Stay.CheckIn) {
		t.Fatalf("stay not moved: %+v", got.Stay)
	}
}

func TestRepo_MySQL_WithRoomLockSerializes(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	stay := mustStay(t, "2026-09-01", "2026-09-03")

	// Both writers want bed 1; the lock makes the loser see the winner's row.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.WithRoomLock(ctx, "flexible_7", func(ctx context.Context) error {
				existing, err := repo.ListOverlapping(ctx, "flexible_7", stay)
				if err != nil {
					return err
				}
				if len(existing) > 0 {
					return domain.ErrHoldConflict
				}
				return repo.Insert(ctx, domain.LedgerEntry{
					ID:        fmt.Sprintf("race-%d", i),
					RoomID:    "flexible_7",
					Beds:      []int{1},
					Stay:      stay,
					Origin:    domain.OriginDirect,
					Status:    domain.StatusConfirmed,
					CreatedAt: now,
					UpdatedAt: now,
				})
			})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else if err != domain.ErrHoldConflict {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d (errs=%v)", wins, errs)
	}

	rows, err := repo.ListOverlapping(ctx, "flexible_7", stay)
	if err != nil {
		t.Fatalf("ListOverlapping: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one ledger row, got %d", len(rows))
	}
}

func TestRepo_MySQL_Feeds(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	f := domain.CalendarFeed{
		ID:       "feed-1",
		RoomID:   "mixto_7",
		Platform: "airbnb",
		URL:      "https://example.com/cal.ics",
		IsActive: true,
	}
	if err := repo.Save(ctx, f); err != nil {
		t.Fatalf("Save: %v", err)
	}
	f.URL = "https://example.com/cal2.ics"
	if err := repo.Save(ctx, f); err != nil {
		t.Fatalf("Save upsert: %v", err)
	}

	at := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.MarkSynced(ctx, "feed-1", at, fmt.Errorf("fetch: boom")); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}

	feeds, err := repo.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(feeds) != 1 {
		t.Fatalf("expected 1 feed, got %d", len(feeds))
	}
	got := feeds[0]
	if got.URL != "https://example.com/cal2.ics" || got.LastError != "fetch: boom" {
		t.Fatalf("unexpected feed: %+v", got)
	}
	if got.LastSyncedAt == nil || !got.LastSyncedAt.Equal(at) {
		t.Fatalf("last_synced_at not recorded: %v", got.LastSyncedAt)
	}

	if err := repo.MarkSynced(ctx, "feed-1", at.Add(time.Minute), nil); err != nil {
		t.Fatalf("MarkSynced clear: %v", err)
	}
	feeds, _ = repo.ListActive(ctx)
	if feeds[0].LastError != "" {
		t.Fatalf("success must clear last_error, got %q", feeds[0].LastError)
	}
}
