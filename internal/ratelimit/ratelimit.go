package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"golang.org/x/time/rate"

	"github.com/keithlinneman/viteguide-web/internal/httpmw"
)

const (
	DefaultPerSecond   = 10
	DefaultBurst       = 30
	DefaultTTL         = 5 * time.Minute
	DefaultMaxVisitors = 10000
	DefaultRetryAfter  = 30 * time.Second
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	// set after the first denial so OnFirstDenied fires once per visitor lifetime
	logged bool
}

// IPLimiter tracks one token bucket per client IP.
type IPLimiter struct {
	mu       sync.Mutex
	visitors *simplelru.LRU[string, *visitor]

	perSecond   rate.Limit
	burst       int
	ttl         time.Duration
	maxVisitors int
	retryAfter  time.Duration

	onFirstDenied func(ip string)
	onDenied      func(ip string)
	onCapacity    func()

	now func() time.Time
}

type Option func(*IPLimiter)

// WithRate refills perSecond tokens per second into a bucket of size burst.
func WithRate(perSecond float64, burst int) Option {
	return func(l *IPLimiter) {
		if perSecond > 0 {
			l.perSecond = rate.Limit(perSecond)
		}
		if burst > 0 {
			l.burst = burst
		}
	}
}

// WithTTL sets how long an idle IP is remembered.
func WithTTL(d time.Duration) Option {
	return func(l *IPLimiter) {
		if d > 0 {
			l.ttl = d
		}
	}
}

// WithMaxVisitors bounds the number of tracked IPs.
func WithMaxVisitors(n int) Option {
	return func(l *IPLimiter) {
		if n > 0 {
			l.maxVisitors = n
		}
	}
}

// WithOnFirstDenied runs once per visitor on its first denial. Used for logging.
func WithOnFirstDenied(fn func(ip string)) Option {
	return func(l *IPLimiter) { l.onFirstDenied = fn }
}

// WithOnDenied runs on every denial. Used for counters.
func WithOnDenied(fn func(ip string)) Option {
	return func(l *IPLimiter) { l.onDenied = fn }
}

// WithOnCapacity runs when a new IP evicts the least recently seen one.
func WithOnCapacity(fn func()) Option {
	return func(l *IPLimiter) { l.onCapacity = fn }
}

// New builds an IPLimiter and sweeps idle visitors until ctx is done.
func New(ctx context.Context, opts ...Option) *IPLimiter {
	l := &IPLimiter{
		perSecond:   DefaultPerSecond,
		burst:       DefaultBurst,
		ttl:         DefaultTTL,
		maxVisitors: DefaultMaxVisitors,
		retryAfter:  DefaultRetryAfter,
		now:         time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	// size is always positive here, so NewLRU cannot fail
	l.visitors, _ = simplelru.NewLRU[string, *visitor](l.maxVisitors, nil)

	go l.sweepLoop(ctx)
	return l
}

// Len reports the number of tracked visitors.
func (l *IPLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.visitors.Len()
}

// Allow reports whether ip may proceed and runs the denial hooks when not.
func (l *IPLimiter) Allow(ip string) bool {
	now := l.now()

	l.mu.Lock()
	v, ok := l.visitors.Get(ip)
	evicted := false
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.perSecond, l.burst)}
		evicted = l.visitors.Add(ip, v)
	}
	v.lastSeen = now
	allowed := v.limiter.AllowN(now, 1)
	first := !allowed && !v.logged
	if first {
		v.logged = true
	}
	l.mu.Unlock()

	// hooks run unlocked; they may log or touch metrics
	if evicted && l.onCapacity != nil {
		l.onCapacity()
	}
	if allowed {
		return true
	}
	if first && l.onFirstDenied != nil {
		l.onFirstDenied(ip)
	}
	if l.onDenied != nil {
		l.onDenied(ip)
	}
	return false
}

func (l *IPLimiter) sweepLoop(ctx context.Context) {
	t := time.NewTicker(l.ttl / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.sweep(l.now())
		}
	}
}

// sweep drops visitors idle longer than the TTL. The LRU is ordered by last
// access, so it stops at the first fresh entry.
func (l *IPLimiter) sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for {
		ip, v, ok := l.visitors.GetOldest()
		if !ok || now.Sub(v.lastSeen) <= l.ttl {
			return n
		}
		l.visitors.Remove(ip)
		n++
	}
}

// Middleware answers 429 with a JSON body once the client's bucket is empty.
// The client IP comes from httpmw.ClientIPWithOptions, which must run first.
func (l *IPLimiter) Middleware(next http.Handler) http.Handler {
	retry := strconv.Itoa(int(l.retryAfter / time.Second))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.Allow(httpmw.ClientIPFromContext(r.Context())) {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Retry-After", retry)
		w.WriteHeader(http.StatusTooManyRequests)
		// no limit details in the body
		_, _ = w.Write([]byte(`{"error":"too many requests"}`))
	})
}
