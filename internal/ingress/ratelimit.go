package ingress

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"ipsentry/internal/auth"
	"ipsentry/internal/config"
)

// Class selects which request ceiling applies. Authenticated callers get
// more headroom on the login endpoint than anonymous ones.
type Class string

const (
	ClassAnonymous     Class = "anonymous"
	ClassAuthenticated Class = "authenticated"
)

// CounterStore increments a windowed counter and reports the new value.
// Keys carry the window bucket, so implementations only need expiry.
type CounterStore interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// RedisCounterStore shares counters across instances via INCR + EXPIRE.
type RedisCounterStore struct {
	client *redis.Client
}

func NewRedisCounterStore(client *redis.Client) *RedisCounterStore {
	return &RedisCounterStore{client: client}
}

func (s *RedisCounterStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

type memoryCounter struct {
	count   int64
	expires time.Time
}

// MemoryCounterStore keeps counters in-process; state is ephemeral and a
// restart simply resets the window.
type MemoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]*memoryCounter
	now      func() time.Time
}

func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{
		counters: make(map[string]*memoryCounter),
		now:      time.Now,
	}
}

func (s *MemoryCounterStore) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	counter, ok := s.counters[key]
	if !ok || now.After(counter.expires) {
		counter = &memoryCounter{expires: now.Add(ttl)}
		s.counters[key] = counter
	}
	counter.count++
	return counter.count, nil
}

// Limiter applies a fixed one-minute window per (address, class). It
// composes with the blocklist guard; a rate-limited address is not
// blocklisted.
type Limiter struct {
	store  CounterStore
	window time.Duration
	limit  func(Class) int
	now    func() time.Time
}

type LimiterOption func(*Limiter)

func NewLimiter(store CounterStore, opts ...LimiterOption) *Limiter {
	l := &Limiter{
		store:  store,
		window: time.Minute,
		limit:  configuredLimit,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func WithWindow(window time.Duration) LimiterOption {
	return func(l *Limiter) {
		if window > 0 {
			l.window = window
		}
	}
}

func WithLimitFunc(limit func(Class) int) LimiterOption {
	return func(l *Limiter) {
		if limit != nil {
			l.limit = limit
		}
	}
}

func WithClock(now func() time.Time) LimiterOption {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

func configuredLimit(class Class) int {
	cfg := config.GetConfig()
	switch class {
	case ClassAuthenticated:
		return int(cfg.RateLimits.AuthenticatedPerMinute)
	default:
		return int(cfg.RateLimits.AnonymousPerMinute)
	}
}

// Allow reports whether this request fits under the class ceiling. Counter
// store failures admit the request; an outage in the limiting layer must
// not deny legitimate traffic.
func (l *Limiter) Allow(ctx context.Context, address string, class Class) (bool, error) {
	limit := l.limit(class)
	if limit <= 0 {
		return true, nil
	}

	bucket := l.now().Unix() / int64(l.window/time.Second)
	key := fmt.Sprintf("ipsentry:ratelimit:%s:%s:%d", class, address, bucket)

	count, err := l.store.Incr(ctx, key, l.window)
	if err != nil {
		return true, err
	}

	return count <= int64(limit), nil
}

// Wrap guards an endpoint with the limiter. The ceiling class follows the
// bearer token: a valid token gets the authenticated allowance.
func (l *Limiter) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		class := ClassAnonymous
		if auth.IsAuthenticated(r) {
			class = ClassAuthenticated
		}

		address := ClientAddress(r, config.GetConfig().Ingress.TrustForwardedHeader)

		ok, err := l.Allow(r.Context(), address, class)
		if err != nil {
			log.Warn("ingress: rate limit counter unavailable", "address", address, "error", err)
		}
		if !ok {
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
