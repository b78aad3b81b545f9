package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const cacheVersionKey = "datasource:version"

// ErrCacheWrite reports that a loaded payload could not be stored. Fetch
// still returns the payload alongside it.
var ErrCacheWrite = errors.New("cache: write failed")

// loaderError marks failures of the wrapped source so CachedSource can tell
// them apart from Redis failures.
type loaderError struct{ err error }

func (e *loaderError) Error() string { return e.err.Error() }
func (e *loaderError) Unwrap() error { return e.err }

// Cache wraps Redis based caching with versioning controls.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Enabled reports whether reads go through Redis.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// Version returns the current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if !c.Enabled() {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, cacheVersionKey).Int64()
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
		if err := c.client.Set(ctx, cacheVersionKey, ver, 0).Err(); err != nil {
			return 0, err
		}
	}
	return ver, nil
}

// BuildKey composes the cache key with the current version.
func (c *Cache) BuildKey(ctx context.Context, parts ...string) (string, error) {
	joined := strings.Join(parts, ":")
	if !c.Enabled() {
		return joined, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", joined, ver), nil
}

// Fetch loads a cached payload or populates it using the loader. When the
// write fails the loaded payload is returned together with ErrCacheWrite.
func (c *Cache) Fetch(ctx context.Context, key string, loader func(context.Context) ([]byte, error)) ([]byte, error) {
	if loader == nil {
		return nil, errors.New("cache: loader required")
	}
	if !c.Enabled() {
		return loader(ctx)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return payload, nil
	}
	if !errors.Is(err, redis.Nil) {
		return nil, err
	}
	payload, err = loader(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return payload, fmt.Errorf("%w: %v", ErrCacheWrite, err)
	}
	return payload, nil
}

// Bump invalidates every cached entry by incrementing the global version.
func (c *Cache) Bump(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Incr(ctx, cacheVersionKey).Err()
}

// CachedSource memoises another Source in Redis for a short TTL, keyed by
// URL and fallback key. Identical concurrent loads share one upstream call.
type CachedSource struct {
	next   Source
	cache  *Cache
	logger *slog.Logger
	group  singleflight.Group
}

// NewCachedSource wraps next. A disabled cache passes every call through.
func NewCachedSource(next Source, cache *Cache, logger *slog.Logger) *CachedSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedSource{next: next, cache: cache, logger: logger}
}

// Fetch implements Source.
func (s *CachedSource) Fetch(ctx context.Context, req Request) (json.RawMessage, error) {
	if !s.cache.Enabled() {
		return s.next.Fetch(ctx, req)
	}
	key, err := s.cache.BuildKey(ctx, "datasource", req.FallbackKey, req.URL)
	if err != nil {
		s.logger.Warn("datasource cache key", slog.Any("error", err))
		return s.next.Fetch(ctx, req)
	}
	result, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.cache.Fetch(ctx, key, func(ctx context.Context) ([]byte, error) {
			body, err := s.next.Fetch(ctx, req)
			if err != nil {
				return nil, &loaderError{err: err}
			}
			return body, nil
		})
	})
	var loadErr *loaderError
	switch {
	case err == nil:
	case errors.As(err, &loadErr):
		return nil, loadErr.err
	case errors.Is(err, ErrCacheWrite) && result != nil:
		s.logger.Warn("datasource cache write", slog.Any("error", err))
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		s.logger.Warn("datasource cache unavailable", slog.Any("error", err))
		return s.next.Fetch(ctx, req)
	}
	return json.RawMessage(result.([]byte)), nil
}

// Invalidate drops every cached response.
func (s *CachedSource) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}
