package app_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/domain"
)

// ---- fakes ----

// fakeLedger is an in-memory LedgerRepository. lockMu plays the role of the
// per-room critical section (coarse: one lock for all rooms); mu guards the
// map itself.
type fakeLedger struct {
	lockMu    sync.Mutex
	mu        sync.Mutex
	entries   map[string]domain.LedgerEntry
	insertErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{entries: map[string]domain.LedgerEntry{}}
}

func (f *fakeLedger) WithRoomLock(ctx context.Context, roomID string, fn func(ctx context.Context) error) error {
	f.lockMu.Lock()
	defer f.lockMu.Unlock()
	return fn(ctx)
}

func (f *fakeLedger) Insert(ctx context.Context, e domain.LedgerEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.entries[e.ID] = e
	return nil
}

func (f *fakeLedger) Update(ctx context.Context, e domain.LedgerEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.entries[e.ID]; !ok {
		return domain.ErrNotFound
	}
	f.entries[e.ID] = e
	return nil
}

func (f *fakeLedger) UpdateStatusIf(ctx context.Context, id string, from, to domain.EntryStatus, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok || e.Status != from {
		return false, nil
	}
	if from == domain.StatusHold && e.ExpiresAt != nil && !e.ExpiresAt.After(now) {
		return false, nil
	}
	e.Status = to
	e.UpdatedAt = now
	f.entries[id] = e
	return true, nil
}

func (f *fakeLedger) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, e := range f.entries {
		if e.Status == domain.StatusHold && e.ExpiresAt != nil && !e.ExpiresAt.After(now) {
			e.Status = domain.StatusExpired
			e.UpdatedAt = now
			f.entries[id] = e
			n++
		}
	}
	return n, nil
}

func (f *fakeLedger) Get(ctx context.Context, id string) (domain.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok {
		return domain.LedgerEntry{}, domain.ErrNotFound
	}
	return e, nil
}

func (f *fakeLedger) ListOverlapping(ctx context.Context, roomID string, stay domain.StayInterval) ([]domain.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.LedgerEntry
	for _, e := range f.entries {
		if e.RoomID != roomID || !e.Stay.Overlaps(stay) {
			continue
		}
		if e.Status == domain.StatusHold || e.Status == domain.StatusConfirmed {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeLedger) FindByExternalRef(ctx context.Context, roomID string, ref domain.ExternalRef) (*domain.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.RoomID == roomID && e.External != nil && *e.External == ref {
			cp := e
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeLedger) statusOf(t *testing.T, id string) domain.EntryStatus {
	t.Helper()
	e, err := f.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("entry %s: %v", id, err)
	}
	return e.Status
}

type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
	gens  map[string]int64
	sets  int
}

func newFakeCache() *fakeCache {
	return &fakeCache{store: map[string][]byte{}, gens: map[string]int64{}}
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	c.sets++
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	return nil
}

func (c *fakeCache) Bump(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[key]++
	return c.gens[key], nil
}

func (c *fakeCache) Gen(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[key], nil
}

type fakeFeedRepo struct {
	mu     sync.Mutex
	feeds  []domain.CalendarFeed
	synced map[string]error
}

func newFakeFeedRepo(feeds ...domain.CalendarFeed) *fakeFeedRepo {
	return &fakeFeedRepo{feeds: feeds, synced: map[string]error{}}
}

func (f *fakeFeedRepo) ListActive(ctx context.Context) ([]domain.CalendarFeed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.CalendarFeed
	for _, fd := range f.feeds {
		if fd.IsActive {
			out = append(out, fd)
		}
	}
	return out, nil
}

func (f *fakeFeedRepo) Save(ctx context.Context, fd domain.CalendarFeed) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feeds = append(f.feeds, fd)
	return nil
}

func (f *fakeFeedRepo) MarkSynced(ctx context.Context, id string, at time.Time, syncErr error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synced[id] = syncErr
	return nil
}

type fakeFetcher struct {
	mu    sync.Mutex
	docs  map[string]string
	errs  map[string]error
	calls int
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if err, ok := f.errs[url]; ok {
		return "", err
	}
	return f.docs[url], nil
}

// ---- shared helpers ----

func mustStay(t *testing.T, ci, co string) domain.StayInterval {
	t.Helper()
	a, err := time.Parse("2006-01-02", ci)
	if err != nil {
		t.Fatalf("parse %s: %v", ci, err)
	}
	b, _ := time.Parse("2006-01-02", co)
	s, err := domain.NewStayInterval(a, b)
	if err != nil {
		t.Fatalf("interval %s..%s: %v", ci, co, err)
	}
	return s
}
