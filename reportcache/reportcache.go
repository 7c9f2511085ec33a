// Package reportcache caches formatted month reports. Reports are cheap to
// rebuild, so every cache error is treated as a miss by callers.
//
// Fills race with writes: a reader may query the store, a write may commit
// and invalidate, and only then the reader stores its now-stale report. To
// close that window every month carries a version that Invalidate bumps.
// Readers take the version before querying the store and fill through
// SetIfVersion, which drops the report when the version moved.
package reportcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/warp/availability-engine/availability"
)

// Cache stores rendered reports per resource and month.
type Cache interface {
	Get(ctx context.Context, resourceID availability.ResourceID, month time.Month, year int) (string, bool, error)
	// Version returns an opaque token that changes whenever the month (or
	// the whole resource) is invalidated.
	Version(ctx context.Context, resourceID availability.ResourceID, month time.Month, year int) (string, error)
	// SetIfVersion stores report only while the month's version still equals version.
	SetIfVersion(ctx context.Context, resourceID availability.ResourceID, month time.Month, year int, version, report string) error
	// Invalidate drops the listed months, or every month of the resource
	// when months is empty.
	Invalidate(ctx context.Context, resourceID availability.ResourceID, months ...string) error
}

// Key returns the cache key for a resource month. month is YYYY-MM.
func Key(resourceID availability.ResourceID, month string) string {
	return fmt.Sprintf("availability:report:%s:%s", resourceID, month)
}

// VersionKey returns the version counter of a resource month, or of the
// whole resource when month is empty.
func VersionKey(resourceID availability.ResourceID, month string) string {
	if month == "" {
		return fmt.Sprintf("availability:report-version:%s", resourceID)
	}
	return fmt.Sprintf("availability:report-version:%s:%s", resourceID, month)
}

// MonthOf returns the YYYY-MM part of a canonical date.
func MonthOf(date string) string {
	if len(date) < 7 {
		return date
	}
	return date[:7]
}

func monthKey(month time.Month, year int) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

// =============================================================================
// NOOP
// =============================================================================

// Noop never hits.
type Noop struct{}

func (Noop) Get(context.Context, availability.ResourceID, time.Month, int) (string, bool, error) {
	return "", false, nil
}

func (Noop) Version(context.Context, availability.ResourceID, time.Month, int) (string, error) {
	return "", nil
}

func (Noop) SetIfVersion(context.Context, availability.ResourceID, time.Month, int, string, string) error {
	return nil
}

func (Noop) Invalidate(context.Context, availability.ResourceID, ...string) error {
	return nil
}

// =============================================================================
// REDIS
// =============================================================================

// Redis keeps reports in Redis with a TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to url and verifies the connection.
func NewRedis(ctx context.Context, url string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Redis{client: client, ttl: ttl}, nil
}

func (r *Redis) Get(ctx context.Context, resourceID availability.ResourceID, month time.Month, year int) (string, bool, error) {
	val, err := r.client.Get(ctx, Key(resourceID, monthKey(month, year))).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

type mgetter interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

// version combines the month and resource counters; a missing counter reads as 0.
func version(ctx context.Context, c mgetter, resourceID availability.ResourceID, month string) (string, error) {
	vals, err := c.MGet(ctx, VersionKey(resourceID, month), VersionKey(resourceID, "")).Result()
	if err != nil {
		return "", err
	}
	parts := [2]string{"0", "0"}
	for i, v := range vals {
		if s, ok := v.(string); ok {
			parts[i] = s
		}
	}
	return parts[0] + "/" + parts[1], nil
}

func (r *Redis) Version(ctx context.Context, resourceID availability.ResourceID, month time.Month, year int) (string, error) {
	return version(ctx, r.client, resourceID, monthKey(month, year))
}

func (r *Redis) SetIfVersion(ctx context.Context, resourceID availability.ResourceID, month time.Month, year int, expected, report string) error {
	m := monthKey(month, year)
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := version(ctx, tx, resourceID, m)
		if err != nil {
			return err
		}
		if current != expected {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, Key(resourceID, m), report, r.ttl)
			return nil
		})
		return err
	}, VersionKey(resourceID, m), VersionKey(resourceID, ""))

	// An invalidation landed between WATCH and EXEC.
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

func (r *Redis) Invalidate(ctx context.Context, resourceID availability.ResourceID, months ...string) error {
	if len(months) > 0 {
		_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			keys := make([]string, len(months))
			for i, m := range months {
				pipe.Incr(ctx, VersionKey(resourceID, m))
				keys[i] = Key(resourceID, m)
			}
			pipe.Del(ctx, keys...)
			return nil
		})
		return err
	}

	if err := r.client.Incr(ctx, VersionKey(resourceID, "")).Err(); err != nil {
		return err
	}
	iter := r.client.Scan(ctx, 0, Key(resourceID, "*"), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
