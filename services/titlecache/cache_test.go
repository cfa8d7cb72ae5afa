package titlecache

import (
	"sync"
	"testing"
	"time"

	"jfresolve/models"
	"jfresolve/services/identity"
)

func testTitle(id int64) models.ExternalTitle {
	return models.ExternalTitle{
		ID:          id,
		Kind:        models.KindMovie,
		Name:        "Foo",
		Year:        2020,
		ProviderIDs: map[string]string{models.ProviderTMDB: "42"},
	}
}

func TestPutGet(t *testing.T) {
	c := New(0)
	id := identity.Identify(models.KindMovie, "42")

	if _, ok := c.Get(id); ok {
		t.Fatal("empty cache should miss")
	}

	c.Put(id, testTitle(42))
	got, ok := c.Get(id)
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Name != "Foo" || got.Year != 2020 {
		t.Fatalf("unexpected title: %+v", got)
	}
}

func TestGetExpiry(t *testing.T) {
	c := New(5 * time.Minute)
	id := identity.Identify(models.KindMovie, "42")
	c.Put(id, testTitle(42))

	base := time.Now()

	// Just under the TTL: still served.
	c.now = func() time.Time { return base.Add(5*time.Minute - time.Second) }
	if _, ok := c.Get(id); !ok {
		t.Fatal("entry younger than TTL should be served")
	}

	// Past the TTL: absent, but the entry itself survives.
	c.now = func() time.Time { return base.Add(5*time.Minute + time.Second) }
	if _, ok := c.Get(id); ok {
		t.Fatal("entry older than TTL should behave as absent")
	}
	if c.Len() != 1 {
		t.Fatalf("stale entry must not be deleted on read, len=%d", c.Len())
	}
}

func TestPutOverwritesTimestamp(t *testing.T) {
	c := New(time.Minute)
	id := identity.Identify(models.KindMovie, "42")

	base := time.Now()
	c.now = func() time.Time { return base }
	c.Put(id, testTitle(42))

	// Re-put later restarts the clock for the entry.
	c.now = func() time.Time { return base.Add(50 * time.Second) }
	c.Put(id, testTitle(42))

	c.now = func() time.Time { return base.Add(100 * time.Second) }
	if _, ok := c.Get(id); !ok {
		t.Fatal("overwritten entry should be fresh relative to second put")
	}
}

func TestRemoveAndClear(t *testing.T) {
	c := New(0)
	a := identity.Identify(models.KindMovie, "1")
	b := identity.Identify(models.KindSeries, "2")
	c.Put(a, testTitle(1))
	c.Put(b, testTitle(2))

	c.Remove(a)
	if _, ok := c.Get(a); ok {
		t.Fatal("removed entry should miss")
	}
	if _, ok := c.Get(b); !ok {
		t.Fatal("unrelated entry should survive remove")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("clear should drop everything, len=%d", c.Len())
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New(time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := identity.Identify(models.KindMovie, string(rune('a'+n%8)))
			for j := 0; j < 200; j++ {
				c.Put(id, testTitle(int64(n)))
				c.Get(id)
				if j%50 == 0 {
					c.Remove(id)
				}
			}
		}(i)
	}
	wg.Wait()
}
