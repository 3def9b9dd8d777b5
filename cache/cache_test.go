package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/use-agent/complyscan/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func target(t *testing.T, raw string) models.ScanTarget {
	t.Helper()
	tg, err := models.ParseTarget(raw)
	if err != nil {
		t.Fatalf("ParseTarget(%q): %v", raw, err)
	}
	return tg
}

func result(id string) *models.ScanResult {
	return &models.ScanResult{ID: id}
}

func TestCache_PutGet(t *testing.T) {
	c := New(time.Hour, 10)
	a := target(t, "example.com")

	if _, ok := c.Get(a); ok {
		t.Fatal("empty cache should miss")
	}
	c.Put(a, result("1"))

	got, ok := c.Get(target(t, "https://EXAMPLE.com/"))
	if !ok || got.ID != "1" {
		t.Fatalf("Get = %v, %v; want hit with ID 1", got, ok)
	}

	c.Put(a, result("2"))
	if got, _ := c.Get(a); got.ID != "2" {
		t.Errorf("Put should overwrite, got ID %s", got.ID)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}

	s := c.Stats()
	if s.Hits != 2 || s.Misses != 1 {
		t.Errorf("Stats = %+v", s)
	}
}

func TestCache_Expiry(t *testing.T) {
	clk := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New(24*time.Hour, 10, WithClock(clk.Now))
	a := target(t, "example.com")
	c.Put(a, result("1"))

	clk.Advance(23 * time.Hour)
	if _, ok := c.Get(a); !ok {
		t.Fatal("entry should still be fresh")
	}

	clk.Advance(time.Hour)
	if _, ok := c.Get(a); !ok {
		t.Fatal("entry should still be valid exactly at its expiry time")
	}

	clk.Advance(time.Nanosecond)
	if _, ok := c.Get(a); ok {
		t.Fatal("entry should have expired after TTL")
	}
	if c.Len() != 0 {
		t.Error("expired entry should be removed on access")
	}
}

func TestCache_PutRestartsTTL(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	c := New(time.Hour, 10, WithClock(clk.Now))
	a := target(t, "example.com")

	c.Put(a, result("1"))
	clk.Advance(50 * time.Minute)
	c.Put(a, result("2"))
	clk.Advance(50 * time.Minute)

	if got, ok := c.Get(a); !ok || got.ID != "2" {
		t.Errorf("re-put entry should be fresh, got %v %v", got, ok)
	}
}

func TestCache_EvictsSoonestExpiry(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	c := New(time.Hour, 2, WithClock(clk.Now))
	a, b, d := target(t, "a.example"), target(t, "b.example"), target(t, "d.example")

	c.Put(a, result("a"))
	clk.Advance(time.Minute)
	c.Put(b, result("b"))
	clk.Advance(time.Minute)
	c.Put(a, result("a2")) // a now expires after b
	c.Put(d, result("d"))

	if _, ok := c.Get(b); ok {
		t.Error("b expires soonest and should have been evicted")
	}
	if _, ok := c.Get(a); !ok {
		t.Error("a should survive")
	}
	if _, ok := c.Get(d); !ok {
		t.Error("d should be stored")
	}
	if c.Stats().Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", c.Stats().Evictions)
	}
}

func TestCache_InvalidateAndPurge(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	c := New(time.Hour, 0, WithClock(clk.Now))
	a, b := target(t, "a.example"), target(t, "b.example")

	c.Put(a, result("a"))
	if !c.Invalidate(a) {
		t.Error("Invalidate should report an existing entry")
	}
	if c.Invalidate(a) {
		t.Error("second Invalidate should report nothing removed")
	}

	c.Put(a, result("a"))
	clk.Advance(30 * time.Minute)
	c.Put(b, result("b"))
	clk.Advance(31 * time.Minute)

	if n := c.PurgeExpired(); n != 1 {
		t.Errorf("PurgeExpired = %d, want 1", n)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestCache_RunStopsOnCancel(t *testing.T) {
	c := New(time.Millisecond, 0)
	c.Put(target(t, "a.example"), result("a"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for c.Len() != 0 {
		select {
		case <-deadline:
			t.Fatal("janitor never purged the expired entry")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New(time.Hour, 20)
	targets := make([]models.ScanTarget, 26)
	for i := range targets {
		targets[i] = target(t, "example.com/"+string(rune('a'+i)))
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tg := targets[(i+j)%26]
				c.Put(tg, result("x"))
				c.Get(tg)
			}
		}(i)
	}
	wg.Wait()
	if c.Len() > 20 {
		t.Errorf("Len = %d exceeds max", c.Len())
	}
}
