// Package middleware holds the HTTP rate limiter: per-client token buckets,
// the handler wrapper that enforces them and optional decision statistics.
package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LimiterStore maintains per-key rate limiters and performs periodic cleanup.
type LimiterStore struct {
	mu              sync.Mutex
	limit           rate.Limit
	burst           int
	clients         map[string]*clientEntry
	cleanupInterval time.Duration
	idleTTL         time.Duration
	stopCh          chan struct{}
	stopOnce        sync.Once
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// PerWindow returns the steady rate that allows max events per window.
func PerWindow(max int, window time.Duration) rate.Limit {
	if max <= 0 || window <= 0 {
		return rate.Inf
	}
	return rate.Every(window / time.Duration(max))
}

// PerMinute returns the steady rate that allows n events per minute.
func PerMinute(n int) rate.Limit { return PerWindow(n, time.Minute) }

// NewLimiterStore creates a new store for per-key rate limiters.
// burst is the number of events a fresh key may spend at once.
func NewLimiterStore(limit rate.Limit, burst int, cleanupInterval time.Duration) *LimiterStore {
	if burst <= 0 {
		burst = 1
	}
	// an entry may only be dropped once its bucket would have refilled
	idle := 10 * time.Minute
	if limit != rate.Inf && limit > 0 {
		if refill := time.Duration(float64(burst) / float64(limit) * float64(time.Second)); refill > idle {
			idle = refill
		}
	}
	s := &LimiterStore{
		limit:           limit,
		burst:           burst,
		clients:         map[string]*clientEntry{},
		cleanupInterval: cleanupInterval,
		idleTTL:         idle,
		stopCh:          make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

func (s *LimiterStore) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.evictIdle(time.Now())
		case <-s.stopCh:
			return
		}
	}
}

func (s *LimiterStore) evictIdle(now time.Time) {
	cutoff := now.Add(-s.idleTTL)
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.clients {
		if v.lastSeen.Before(cutoff) {
			delete(s.clients, k)
		}
	}
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (s *LimiterStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// getLimiter returns or creates a limiter for key
func (s *LimiterStore) getLimiter(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.clients[key]; ok {
		e.lastSeen = time.Now()
		return e.limiter
	}
	limiter := rate.NewLimiter(s.limit, s.burst)
	s.clients[key] = &clientEntry{limiter: limiter, lastSeen: time.Now()}
	return limiter
}

// Allow checks whether an event for the given key is permitted.
func (s *LimiterStore) Allow(key string) bool {
	allowed, _ := s.Decide(key)
	return allowed
}

// Decide consumes a token for key if one is available. When it is not, the
// second result is how long until one will be.
func (s *LimiterStore) Decide(key string) (bool, time.Duration) {
	now := time.Now()
	r := s.getLimiter(key).ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, d
	}
	return true, 0
}

// Limit reports the configured rate and burst.
func (s *LimiterStore) Limit() (rate.Limit, int) { return s.limit, s.burst }
