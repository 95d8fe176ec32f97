package cache

import (
	"errors"
	"testing"
	"time"
)

func TestReadThrough(t *testing.T) {
	t.Run("Miss Then Fetch", func(t *testing.T) {
		c := New[[]string](time.Minute, 10)
		defer c.Stop()

		if _, _, ok := c.Get("user-1"); ok {
			t.Fatal("expected a miss on an empty cache")
		}

		calls := 0
		fetch := func() ([]string, error) {
			calls++
			return []string{"a", "b"}, nil
		}
		for range 3 {
			got, err := c.Fetch("user-1", fetch)
			if err != nil || len(got) != 2 {
				t.Fatalf("unexpected fetch result %v (%v)", got, err)
			}
		}
		if calls != 1 {
			t.Errorf("expected one load, got %d", calls)
		}

		value, stale, ok := c.Get("user-1")
		if !ok || stale || len(value) != 2 {
			t.Errorf("expected a live hit, got %v stale=%v ok=%v", value, stale, ok)
		}
	})

	t.Run("Fetch Error Is Not Cached", func(t *testing.T) {
		c := New[int](time.Minute, 10)
		defer c.Stop()

		boom := errors.New("store down")
		if _, err := c.Fetch("k", func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
			t.Errorf("expected fetch error, got %v", err)
		}
		if _, _, ok := c.Get("k"); ok {
			t.Error("expected nothing cached after a failed fetch")
		}
	})

	t.Run("Stale Entries", func(t *testing.T) {
		c := New[string](time.Minute, 10)
		defer c.Stop()

		c.SetWithTTL("k", "old", -time.Second)
		value, stale, ok := c.Get("k")
		if !ok || !stale || value != "old" {
			t.Errorf("expected stale hit, got %q stale=%v ok=%v", value, stale, ok)
		}

		got, _ := c.Fetch("k", func() (string, error) { return "new", nil })
		if got != "new" {
			t.Errorf("expected fetch to replace the stale entry, got %q", got)
		}
	})

	t.Run("Invalidate", func(t *testing.T) {
		c := New[string](0, 0)
		defer c.Stop()

		if c.TTL() != DefaultTTL {
			t.Errorf("expected default ttl, got %v", c.TTL())
		}
		c.Set("k", "v")
		if !c.Invalidate("k") {
			t.Error("expected Invalidate to report a present key")
		}
		if c.Invalidate("k") {
			t.Error("expected Invalidate to report a missing key")
		}
	})

	t.Run("Reconcile", func(t *testing.T) {
		c := New[[]string](time.Minute, 10)
		defer c.Stop()

		c.Set("user-1", []string{"a"})
		if err := c.Reconcile("user-1", func() ([]string, error) { return []string{"b", "a"}, nil }); err != nil {
			t.Fatalf("reconcile failed: %v", err)
		}
		value, _, _ := c.Get("user-1")
		if len(value) != 2 || value[0] != "b" {
			t.Errorf("expected store state, got %v", value)
		}

		boom := errors.New("store down")
		if err := c.Reconcile("user-1", func() ([]string, error) { return nil, boom }); !errors.Is(err, boom) {
			t.Errorf("expected reconcile error, got %v", err)
		}
		if _, _, ok := c.Get("user-1"); ok {
			t.Error("expected entry dropped after a failed reconcile")
		}
	})
}
