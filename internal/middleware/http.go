package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// StatsEvent is one rate-limit decision.
type StatsEvent struct {
	Key     string
	Allowed bool
	Method  string
	// Route is the matched route pattern, never the raw path.
	Route string
	At    time.Time
}

// StatsRecorder persists decisions. Recording is best effort.
type StatsRecorder interface {
	Record(ctx context.Context, ev StatsEvent) error
}

// KeyFunc derives the client key of a request.
type KeyFunc func(r *http.Request) string

// RemoteIP keys requests by client address. Run chi's RealIP first only
// behind a proxy that overwrites X-Forwarded-For, or clients can pick their
// own key.
func RemoteIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	if addr != "" {
		return addr
	}
	return "unknown"
}

// unmatchedRoute labels requests served outside a chi router.
const unmatchedRoute = "unmatched"

// RoutePattern returns the chi pattern r was routed by, such as
// "/api/dogs/{id}". Called before routing finishes it returns the prefix
// matched so far.
func RoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return unmatchedRoute
}

// Options configures RateLimit.
type Options struct {
	Store *LimiterStore
	Stats StatsRecorder
	// Prefix namespaces keys so several limiters can share one store.
	Prefix string
	KeyFn  KeyFunc
	// Reject writes the response for a limited request. Retry-After is set
	// before it runs.
	Reject func(w http.ResponseWriter, r *http.Request, retryAfter time.Duration)
	// OnStatsError is told about failed Record calls.
	OnStatsError func(error)
}

// RateLimit enforces opts.Store on every request that passes through it.
func RateLimit(opts Options) func(http.Handler) http.Handler {
	if opts.KeyFn == nil {
		opts.KeyFn = RemoteIP
	}
	if opts.Reject == nil {
		opts.Reject = func(w http.ResponseWriter, r *http.Request, _ time.Duration) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}
	}

	record := func(r *http.Request, key string, allowed bool) {
		if opts.Stats == nil {
			return
		}
		err := opts.Stats.Record(r.Context(), StatsEvent{
			Key:     key,
			Allowed: allowed,
			Method:  r.Method,
			Route:   RoutePattern(r),
			At:      time.Now(),
		})
		if err != nil && opts.OnStatsError != nil {
			opts.OnStatsError(err)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.Prefix + opts.KeyFn(r)
			allowed, wait := opts.Store.Decide(key)

			if !allowed {
				record(r, key, false)
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				opts.Reject(w, r, wait)
				return
			}
			next.ServeHTTP(w, r)
			// the full pattern is only known once routing is done
			record(r, key, true)
		})
	}
}
