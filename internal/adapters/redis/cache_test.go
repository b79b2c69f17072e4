package redisad_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	redisad "github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/adapters/redis"
)

func newCache(t *testing.T) *redisad.Cache {
	t.Helper()
	srv := miniredis.RunT(t)
	return redisad.New(srv.Addr(), "", 0)
}

func TestCache_GetSetDel(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	var got map[string]int
	ok, err := c.Get(ctx, "k", &got)
	if err != nil {
		t.Fatalf("Get miss: %v", err)
	}
	if ok {
		t.Fatal("expected miss on empty cache")
	}

	want := map[string]int{"beds": 7}
	if err := c.Set(ctx, "k", want, 30); err != nil {
		t.Fatalf("Set: %v", err)
	}
	ok, err = c.Get(ctx, "k", &got)
	if err != nil || !ok {
		t.Fatalf("Get hit: ok=%v err=%v", ok, err)
	}
	if got["beds"] != 7 {
		t.Fatalf("round trip: %+v", got)
	}

	if err := c.Del(ctx, "k"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	ok, _ = c.Get(ctx, "k", &got)
	if ok {
		t.Fatal("expected miss after Del")
	}
}

func TestCache_Generations(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	n, err := c.Gen(ctx, "availgen:mixto_7")
	if err != nil || n != 0 {
		t.Fatalf("fresh counter: n=%d err=%v", n, err)
	}

	for want := int64(1); want <= 3; want++ {
		n, err = c.Bump(ctx, "availgen:mixto_7")
		if err != nil || n != want {
			t.Fatalf("Bump #%d: n=%d err=%v", want, n, err)
		}
	}

	n, err = c.Gen(ctx, "availgen:mixto_7")
	if err != nil || n != 3 {
		t.Fatalf("Gen after bumps: n=%d err=%v", n, err)
	}

	// Counters are independent per room.
	n, _ = c.Gen(ctx, "availgen:mixto_12a")
	if n != 0 {
		t.Fatalf("unrelated counter moved: %d", n)
	}
}
