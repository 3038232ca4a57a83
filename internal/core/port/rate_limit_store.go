package port

import (
	"context"
	"time"
)

// RateLimitStore defines the persistence operations required to enforce
// sliding-window endpoint limits. Attempts are scoped by route class plus
// caller identifier, and the store owns the key scheme built from the pair.
// This is transport-level throttling, layered independently over the
// per-account reset counters the core owns.
type RateLimitStore interface {
	TrimWindow(ctx context.Context, route, identifier string, window time.Duration, reference time.Time) error
	CountAttempts(ctx context.Context, route, identifier string, window time.Duration, reference time.Time) (int, error)
	RecordAttempt(ctx context.Context, route, identifier string, at time.Time) error
	OldestAttempt(ctx context.Context, route, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error)
}
