package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

type payload struct {
	Total int `json:"total"`
}

func TestNilCacheLoadsThrough(t *testing.T) {
	var c *Cache
	calls := 0
	load := func(context.Context) (*payload, error) {
		calls++
		return &payload{Total: 3}, nil
	}
	for i := 0; i < 2; i++ {
		got, err := GetOrLoadJSON(c, context.Background(), "members:all", 0, load)
		if err != nil {
			t.Fatal(err)
		}
		if got.Total != 3 {
			t.Fatalf("total = %d", got.Total)
		}
	}
	if calls != 2 {
		t.Fatalf("loader calls = %d, want 2 without redis", calls)
	}
	if err := c.Invalidate(context.Background(), "members:"); err != nil {
		t.Fatalf("invalidate on nil cache: %v", err)
	}
}

func TestLoaderErrorPropagates(t *testing.T) {
	c := &Cache{}
	boom := errors.New("db down")
	_, err := GetOrLoadJSON(c, context.Background(), "k", 0, func(context.Context) (*payload, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func newRedisCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := New(mr.Addr(), "", 0, time.Minute)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestGetOrLoadServesFromRedis(t *testing.T) {
	c, mr := newRedisCache(t)
	ctx := context.Background()
	calls := 0
	load := func(context.Context) (*payload, error) {
		calls++
		return &payload{Total: calls}, nil
	}
	for i := 0; i < 3; i++ {
		got, err := GetOrLoadJSON(c, ctx, "members:0", 0, load)
		if err != nil {
			t.Fatal(err)
		}
		if got.Total != 1 {
			t.Fatalf("total = %d, want cached 1", got.Total)
		}
	}
	if calls != 1 {
		t.Fatalf("loader calls = %d", calls)
	}
	if !mr.Exists("members:0") {
		t.Fatal("key not stored")
	}
	if ttl := mr.TTL("members:0"); ttl != time.Minute {
		t.Fatalf("ttl = %v", ttl)
	}
}

func TestInvalidateByPrefix(t *testing.T) {
	c, mr := newRedisCache(t)
	ctx := context.Background()
	for _, k := range []string{"members:0", "members:2024", "stats:7", "other:1"} {
		if err := mr.Set(k, "{}"); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.Invalidate(ctx, "members:", "stats:"); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"members:0", "members:2024", "stats:7"} {
		if mr.Exists(k) {
			t.Fatalf("%s survived invalidation", k)
		}
	}
	if !mr.Exists("other:1") {
		t.Fatal("unrelated key removed")
	}

	calls := 0
	got, err := GetOrLoadJSON(c, ctx, "members:0", 0, func(context.Context) (*payload, error) {
		calls++
		return &payload{Total: 9}, nil
	})
	if err != nil || got.Total != 9 || calls != 1 {
		t.Fatalf("reload = %+v, %v, calls %d", got, err, calls)
	}
}
