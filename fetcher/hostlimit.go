package fetcher

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type hostEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// hostLimiter throttles outbound requests per destination host. Idle
// hosts are forgotten after ttl.
type hostLimiter struct {
	mu    sync.Mutex
	hosts map[string]*hostEntry
	rps   rate.Limit
	burst int
	ttl   time.Duration
	done  chan struct{}
	once  sync.Once
}

func newHostLimiter(rps float64, burst int, ttl time.Duration) *hostLimiter {
	hl := &hostLimiter{
		hosts: make(map[string]*hostEntry),
		rps:   rate.Limit(rps),
		burst: burst,
		ttl:   ttl,
		done:  make(chan struct{}),
	}
	go hl.cleanupLoop()
	return hl
}

// Wait blocks until a request to host is allowed or ctx is done.
func (hl *hostLimiter) Wait(ctx context.Context, host string) error {
	hl.mu.Lock()
	e, ok := hl.hosts[host]
	if !ok {
		e = &hostEntry{limiter: rate.NewLimiter(hl.rps, hl.burst)}
		hl.hosts[host] = e
	}
	e.lastSeen = time.Now()
	hl.mu.Unlock()

	return e.limiter.Wait(ctx)
}

// Stop terminates the background cleanup goroutine.
func (hl *hostLimiter) Stop() {
	hl.once.Do(func() { close(hl.done) })
}

func (hl *hostLimiter) cleanupLoop() {
	ticker := time.NewTicker(hl.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-hl.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-hl.ttl)
			hl.mu.Lock()
			for host, e := range hl.hosts {
				if e.lastSeen.Before(cutoff) {
					delete(hl.hosts, host)
				}
			}
			hl.mu.Unlock()
		}
	}
}
