package credential

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

// CacheOption configures Cached.
type CacheOption func(*cacheConfig)

type cacheConfig struct {
	ttl    time.Duration
	leeway time.Duration
	now    func() time.Time
}

// WithTTL sets how long a token without a readable exp claim is reused.
// Defaults to five minutes.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *cacheConfig) { c.ttl = ttl }
}

// WithLeeway sets how long before expiry a token is refreshed.
// Defaults to thirty seconds.
func WithLeeway(d time.Duration) CacheOption {
	return func(c *cacheConfig) { c.leeway = d }
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *cacheConfig) { c.now = now }
}

type cachedProducer struct {
	next Producer
	cfg  cacheConfig
	sf   singleflight.Group

	mu      sync.Mutex
	token   string
	expires time.Time
}

// Cached wraps p so the token is reused until shortly before it expires.
// JWTs are inspected (without verification) for their exp claim; other tokens
// are kept for the configured TTL. Concurrent refreshes share one call to p.
func Cached(p Producer, opts ...CacheOption) Producer {
	cfg := cacheConfig{
		ttl:    5 * time.Minute,
		leeway: 30 * time.Second,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &cachedProducer{next: p, cfg: cfg}
	return c.produce
}

func (c *cachedProducer) produce(ctx context.Context) (string, error) {
	if token, ok := c.current(); ok {
		return token, nil
	}

	// The refresh outlives any one caller: a caller that gives up must not
	// fail the others sharing the call.
	refresh := context.WithoutCancel(ctx)
	ch := c.sf.DoChan("token", func() (any, error) {
		if token, ok := c.current(); ok {
			return token, nil
		}
		token, err := c.next(refresh)
		if err != nil {
			return "", err
		}
		c.store(token)
		return token, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return "", r.Err
		}
		return r.Val.(string), nil
	}
}

func (c *cachedProducer) current() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token == "" || !c.cfg.now().Before(c.expires) {
		return "", false
	}
	return c.token, true
}

func (c *cachedProducer) store(token string) {
	expires := c.cfg.now().Add(c.cfg.ttl)
	if exp, ok := Expiry(token); ok {
		expires = exp.Add(-c.cfg.leeway)
	}

	c.mu.Lock()
	c.token = token
	c.expires = expires
	c.mu.Unlock()
}

// Expiry returns the exp claim of a JWT without verifying its signature.
// It reports false for tokens that are not JWTs or carry no exp claim.
func Expiry(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
