package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/victor-wayward/ironode/internal/core/port"
)

// defaultKeyPrefix namespaces throttling keys away from the session and
// cache keys sharing the same Redis instance.
const defaultKeyPrefix = "ironode:rate-limit"

// RateLimitRepository keeps one sorted set per route class and caller,
// scored by the attempt's unix-nano stamp. Counting and trimming then reduce
// to score-range commands, and the retention TTL lets Redis reap idle
// callers without a sweeper.
type RateLimitRepository struct {
	client    *redis.Client
	prefix    string
	retention time.Duration
}

// NewRateLimitRepository returns a repository writing under the given key
// prefix. An empty prefix falls back to the service default. A non-positive
// retention leaves keys without a TTL.
func NewRateLimitRepository(client *redis.Client, prefix string, retention time.Duration) *RateLimitRepository {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RateLimitRepository{client: client, prefix: prefix, retention: retention}
}

// RecordAttempt appends an attempt for the route and caller at the given
// time. The write and the TTL refresh travel in one pipeline.
func (r *RateLimitRepository) RecordAttempt(ctx context.Context, route, identifier string, at time.Time) error {
	key, err := r.key(route, identifier)
	if err != nil {
		return err
	}

	stamp := at.UnixNano()
	pipe := r.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(stamp), Member: strconv.FormatInt(stamp, 10)})
	if r.retention > 0 {
		pipe.Expire(ctx, key, r.retention)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}

	return nil
}

// CountAttempts reports how many attempts the caller made on the route
// inside the window closing at reference.
func (r *RateLimitRepository) CountAttempts(ctx context.Context, route, identifier string, window time.Duration, reference time.Time) (int, error) {
	key, err := r.key(route, identifier)
	if err != nil {
		return 0, err
	}
	lo, hi, err := windowBounds(window, reference)
	if err != nil {
		return 0, err
	}

	count, err := r.client.ZCount(ctx, key, lo, hi).Result()
	if err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}

	return int(count), nil
}

// TrimWindow drops attempts that fell out of the window closing at
// reference. The window floor itself stays countable.
func (r *RateLimitRepository) TrimWindow(ctx context.Context, route, identifier string, window time.Duration, reference time.Time) error {
	key, err := r.key(route, identifier)
	if err != nil {
		return err
	}
	lo, _, err := windowBounds(window, reference)
	if err != nil {
		return err
	}

	if err := r.client.ZRemRangeByScore(ctx, key, "-inf", "("+lo).Err(); err != nil {
		return fmt.Errorf("trim window: %w", err)
	}

	return nil
}

// OldestAttempt returns the earliest attempt still inside the window, which
// anchors the Retry-After hint handed back to throttled callers.
func (r *RateLimitRepository) OldestAttempt(ctx context.Context, route, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	key, err := r.key(route, identifier)
	if err != nil {
		return time.Time{}, false, err
	}
	lo, hi, err := windowBounds(window, reference)
	if err != nil {
		return time.Time{}, false, err
	}

	members, err := r.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min:    lo,
		Max:    hi,
		Offset: 0,
		Count:  1,
	}).Result()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("oldest attempt: %w", err)
	}
	if len(members) == 0 {
		return time.Time{}, false, nil
	}

	stamp, err := strconv.ParseInt(members[0], 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse attempt stamp: %w", err)
	}

	return time.Unix(0, stamp), true, nil
}

func (r *RateLimitRepository) key(route, identifier string) (string, error) {
	if route == "" {
		return "", errors.New("route must not be empty")
	}
	if identifier == "" {
		return "", errors.New("identifier must not be empty")
	}
	return r.prefix + ":" + route + ":" + identifier, nil
}

func windowBounds(window time.Duration, reference time.Time) (string, string, error) {
	if window <= 0 {
		return "", "", errors.New("window must be positive")
	}
	lo := strconv.FormatInt(reference.Add(-window).UnixNano(), 10)
	hi := strconv.FormatInt(reference.UnixNano(), 10)
	return lo, hi, nil
}

var _ port.RateLimitStore = (*RateLimitRepository)(nil)
