package fetcher

import (
	"context"
	"testing"
	"time"
)

func TestHostLimiter_ThrottlesPerHost(t *testing.T) {
	hl := newHostLimiter(0.001, 1, time.Minute)
	defer hl.Stop()

	if err := hl.Wait(context.Background(), "a.example"); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	// Another host has its own bucket.
	if err := hl.Wait(context.Background(), "b.example"); err != nil {
		t.Fatalf("other host: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := hl.Wait(ctx, "a.example"); err == nil {
		t.Error("second wait on a.example should fail before its token refills")
	}
}

func TestHostLimiter_ForgetsIdleHosts(t *testing.T) {
	hl := newHostLimiter(1, 1, 10*time.Millisecond)
	defer hl.Stop()

	if err := hl.Wait(context.Background(), "a.example"); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		hl.mu.Lock()
		n := len(hl.hosts)
		hl.mu.Unlock()
		if n == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("idle host was not forgotten")
}

func TestHostLimiter_StopIsIdempotent(t *testing.T) {
	hl := newHostLimiter(1, 1, time.Minute)
	hl.Stop()
	hl.Stop()
}
