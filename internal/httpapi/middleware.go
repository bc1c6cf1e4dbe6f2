package httpapi

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type CORSOptions struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposeHeaders    []string
	AllowCredentials bool
}

func NewCORS(opts CORSOptions) func(http.Handler) http.Handler {
	origins := make(map[string]struct{})
	wildcard := false
	for _, origin := range opts.AllowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "*" {
			wildcard = true
			continue
		}
		if trimmed != "" {
			origins[trimmed] = struct{}{}
		}
	}

	allowedMethods := strings.Join(orDefault(opts.AllowedMethods, []string{"GET", "POST", "PUT", "OPTIONS"}), ", ")
	allowedHeaders := strings.Join(orDefault(opts.AllowedHeaders, []string{"Authorization", "Content-Type"}), ", ")
	exposeHeaders := strings.Join(orDefault(opts.ExposeHeaders, []string{"Content-Disposition"}), ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (wildcard || len(origins) == 0 || allowed(origin, origins)) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				if opts.AllowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}

			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
			w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
			w.Header().Set("Access-Control-Expose-Headers", exposeHeaders)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func orDefault(values, fallback []string) []string {
	if len(values) == 0 {
		return fallback
	}
	return values
}

func allowed(origin string, origins map[string]struct{}) bool {
	_, ok := origins[origin]
	return ok
}

func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// RequestSizeLimit caps request bodies. Batch uploads carry their own,
// larger limit and are excluded.
func RequestSizeLimit(maxBytes int64, except ...string) func(http.Handler) http.Handler {
	skip := make(map[string]bool, len(except))
	for _, p := range except {
		skip[p] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxBytes > 0 && r.Body != nil && !skip[r.URL.Path] {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

type RateLimiter struct {
	requests   int
	window     time.Duration
	trustProxy bool
	now        func() time.Time

	mu        sync.Mutex
	clients   map[string]*clientWindow
	nextSweep time.Time
}

type clientWindow struct {
	count   int
	expires time.Time
}

// NewRateLimiter allows requests per window for each client address.
// Forwarding headers are only honoured when trustProxy is set, which is
// correct only behind a proxy that overwrites them.
func NewRateLimiter(requests int, window time.Duration, trustProxy bool) *RateLimiter {
	if requests <= 0 || window <= 0 {
		return &RateLimiter{}
	}
	return &RateLimiter{
		requests:   requests,
		window:     window,
		trustProxy: trustProxy,
		now:        time.Now,
		clients:    make(map[string]*clientWindow),
	}
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	if l == nil || l.requests == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.hit(clientKey(r, l.trustProxy)) {
			w.Header().Set("Retry-After", strconv.Itoa(int(l.window.Seconds())))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *RateLimiter) hit(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if !now.Before(l.nextSweep) {
		l.sweep(now)
	}

	state, ok := l.clients[key]
	if !ok || now.After(state.expires) {
		l.clients[key] = &clientWindow{count: 1, expires: now.Add(l.window)}
		return false
	}
	if state.count >= l.requests {
		return true
	}
	state.count++
	return false
}

// sweep drops expired windows. Callers hold l.mu.
func (l *RateLimiter) sweep(now time.Time) {
	for key, state := range l.clients {
		if now.After(state.expires) {
			delete(l.clients, key)
		}
	}
	l.nextSweep = now.Add(l.window)
}

func clientKey(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			return strings.TrimSpace(strings.Split(forwarded, ",")[0])
		}
		if ip := r.Header.Get("X-Real-IP"); ip != "" {
			return strings.TrimSpace(ip)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// AccessLog logs one line per request.
func AccessLog(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("duration", time.Since(start)).
				Str("client", clientKey(r, false)).
				Msg("request")
		})
	}
}
