package cache

import (
	"errors"
	"testing"
	"time"
)

func TestGetCachesUntilTTL(t *testing.T) {
	c := New[int](time.Minute)
	calls := 0
	load := func() (int, error) {
		calls++
		return 42, nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.Get("k", load)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if v != 42 {
			t.Fatalf("Get = %d, want 42", v)
		}
	}
	if calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}
}

func TestExpiryReloads(t *testing.T) {
	c := New[string](time.Minute)
	base := time.Now()
	c.now = func() time.Time { return base }

	calls := 0
	load := func() (string, error) {
		calls++
		return "v", nil
	}
	if _, err := c.Get("k", load); err != nil {
		t.Fatalf("Get: %v", err)
	}

	// Within TTL: cached.
	base = base.Add(30 * time.Second)
	if _, err := c.Get("k", load); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if calls != 1 {
		t.Fatalf("loader called %d times before expiry, want 1", calls)
	}

	// Past TTL: reloaded.
	base = base.Add(time.Minute)
	if _, err := c.Get("k", load); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if calls != 2 {
		t.Errorf("loader called %d times after expiry, want 2", calls)
	}
}

func TestInvalidateForcesReload(t *testing.T) {
	c := New[int](time.Hour)
	calls := 0
	load := func() (int, error) {
		calls++
		return calls, nil
	}

	v, _ := c.Get("k", load)
	if v != 1 {
		t.Fatalf("first Get = %d, want 1", v)
	}
	c.Invalidate("k")
	v, _ = c.Get("k", load)
	if v != 2 {
		t.Errorf("Get after Invalidate = %d, want fresh value 2", v)
	}

	// Invalidating one key leaves others alone.
	if _, err := c.Get("other", load); err != nil {
		t.Fatalf("Get: %v", err)
	}
	c.Invalidate("k")
	v, _ = c.Get("other", load)
	if v != 3 {
		t.Errorf("unrelated key reloaded after Invalidate, got %d", v)
	}
}

func TestLoadErrorNotCached(t *testing.T) {
	c := New[int](time.Hour)
	boom := errors.New("boom")
	calls := 0
	load := func() (int, error) {
		calls++
		if calls == 1 {
			return 0, boom
		}
		return 7, nil
	}

	if _, err := c.Get("k", load); err != boom {
		t.Fatalf("expected load error, got %v", err)
	}
	v, err := c.Get("k", load)
	if err != nil {
		t.Fatalf("Get after error: %v", err)
	}
	if v != 7 {
		t.Errorf("Get = %d, want 7 (error must not be cached)", v)
	}
}

func TestZeroTTLDisables(t *testing.T) {
	c := New[int](0)
	calls := 0
	load := func() (int, error) {
		calls++
		return calls, nil
	}
	c.Get("k", load)
	c.Get("k", load)
	if calls != 2 {
		t.Errorf("loader called %d times with zero TTL, want 2", calls)
	}
}
