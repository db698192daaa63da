package httpserver

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/MiaKoring/BloomBuddyServer/pkg/cmap"
)

// ClientLimiter keeps one token bucket per client key.
type ClientLimiter struct {
	limit   rate.Limit
	burst   int
	clients *cmap.Map[string, *clientBucket]
	now     func() time.Time
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanoseconds
}

// NewClientLimiter allows each client rps requests per second with bursts
// of up to burst requests.
func NewClientLimiter(rps float64, burst int) *ClientLimiter {
	return &ClientLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		clients: cmap.New[string, *clientBucket](),
		now:     time.Now,
	}
}

// Allow reports whether the client may make a request now.
func (l *ClientLimiter) Allow(key string) bool {
	now := l.now()

	b, ok := l.clients.Get(key)
	if !ok {
		b, _ = l.clients.GetOrSet(key, &clientBucket{limiter: rate.NewLimiter(l.limit, l.burst)})
	}
	b.lastSeen.Store(now.UnixNano())
	return b.limiter.AllowN(now, 1)
}

// Clients returns the number of tracked clients.
func (l *ClientLimiter) Clients() int {
	return l.clients.Count()
}

// Sweep forgets clients idle for longer than idle and returns how many
// were removed. A forgotten client starts again with a full bucket.
func (l *ClientLimiter) Sweep(idle time.Duration) int {
	cutoff := l.now().Add(-idle).UnixNano()

	var stale []string
	l.clients.Range(func(key string, b *clientBucket) bool {
		if b.lastSeen.Load() < cutoff {
			stale = append(stale, key)
		}
		return true
	})
	for _, key := range stale {
		l.clients.Delete(key)
	}
	return len(stale)
}

// Run sweeps idle clients every interval until ctx is done.
func (l *ClientLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep(interval)
		}
	}
}
