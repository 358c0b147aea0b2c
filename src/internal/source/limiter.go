// FILE: kibanalog/src/internal/source/limiter.go
package source

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// ClientLimiter keeps a token bucket per remote address
type ClientLimiter struct {
	clients         sync.Map // map[string]*clientBucket
	requestsPerSec  float64
	burst           int
	cleanupInterval time.Duration
	done            chan struct{}
	stopOnce        sync.Once

	// Statistics
	allowed atomic.Uint64
	denied  atomic.Uint64
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// NewClientLimiter returns nil when requestsPerSec is not positive
func NewClientLimiter(requestsPerSec float64, burst int, cleanupInterval time.Duration) *ClientLimiter {
	if requestsPerSec <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}

	cl := &ClientLimiter{
		requestsPerSec:  requestsPerSec,
		burst:           burst,
		cleanupInterval: cleanupInterval,
		done:            make(chan struct{}),
	}

	go cl.cleanup()

	return cl
}

// Allow reports whether a request from client may proceed
func (cl *ClientLimiter) Allow(client string) bool {
	if cl == nil {
		return true
	}
	if cl.bucket(client).Allow() {
		cl.allowed.Add(1)
		return true
	}
	cl.denied.Add(1)
	return false
}

func (cl *ClientLimiter) bucket(client string) *rate.Limiter {
	now := time.Now().UnixNano()
	if val, ok := cl.clients.Load(client); ok {
		b := val.(*clientBucket)
		b.lastSeen.Store(now)
		return b.limiter
	}

	b := &clientBucket{limiter: rate.NewLimiter(rate.Limit(cl.requestsPerSec), cl.burst)}
	b.lastSeen.Store(now)
	actual, _ := cl.clients.LoadOrStore(client, b)
	return actual.(*clientBucket).limiter
}

func (cl *ClientLimiter) cleanup() {
	ticker := time.NewTicker(cl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cl.done:
			return
		case <-ticker.C:
			cl.removeIdle(time.Now().Add(-2 * cl.cleanupInterval))
		}
	}
}

// removeIdle forgets clients not seen since threshold
func (cl *ClientLimiter) removeIdle(threshold time.Time) {
	cutoff := threshold.UnixNano()
	cl.clients.Range(func(key, value any) bool {
		if value.(*clientBucket).lastSeen.Load() < cutoff {
			cl.clients.Delete(key)
		}
		return true
	})
}

// Stop ends the cleanup routine
func (cl *ClientLimiter) Stop() {
	if cl == nil {
		return
	}
	cl.stopOnce.Do(func() { close(cl.done) })
}

func (cl *ClientLimiter) GetStats() map[string]any {
	if cl == nil {
		return map[string]any{"enabled": false}
	}
	count := 0
	cl.clients.Range(func(_, _ any) bool {
		count++
		return true
	})
	return map[string]any{
		"enabled":             true,
		"requests_per_second": cl.requestsPerSec,
		"burst":               cl.burst,
		"active_clients":      count,
		"allowed":             cl.allowed.Load(),
		"denied":              cl.denied.Load(),
	}
}
