// Package rate provides fixed-window request limiting keyed by caller.
package rate

import (
	"context"
	"time"
)

// Limiter reports whether one more request under key fits in the current
// window, and how long until the window resets.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration)
}
