package http

import (
	"net/http"
	"sync"
	"time"
)

// rateLimiter tracks request counts per client IP over a rolling
// one minute window. Stale clients are swept in the background.
type rateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientWindow
	stop    chan struct{}
	once    sync.Once

	perMinute     int
	sweepInterval time.Duration
}

type clientWindow struct {
	lastSeen time.Time
	requests int
}

func newRateLimiter(perMinute int) *rateLimiter {
	rl := &rateLimiter{
		clients:       make(map[string]*clientWindow),
		stop:          make(chan struct{}),
		perMinute:     perMinute,
		sweepInterval: 5 * time.Minute,
	}
	go rl.sweepLoop()
	return rl
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, ok := rl.clients[clientIP]
	if !ok || now.Sub(client.lastSeen) > time.Minute {
		rl.clients[clientIP] = &clientWindow{lastSeen: now, requests: 1}
		return true
	}

	client.requests++
	client.lastSeen = now
	return client.requests <= rl.perMinute
}

func (rl *rateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stop:
			return
		}
	}
}

func (rl *rateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastSeen.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

// withLimit rejects clients that exceed the per-minute budget.
func (s *Server) withLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}
