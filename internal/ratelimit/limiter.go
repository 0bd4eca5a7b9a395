// Package ratelimit provides the per-actor fixed-window limiter that
// guards claim initiation. It is approximate by design: good enough for
// abuse mitigation, not for billing.
package ratelimit

import (
	"context"
	"time"
)

// Limiter admits or rejects one attempt for a key. Implementations may be
// process-local (best effort) or shared across replicas.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Config describes a fixed window: at most MaxAttempts admitted calls per
// Window, counted from the first call in the window.
type Config struct {
	Window      time.Duration
	MaxAttempts int
}
