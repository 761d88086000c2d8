package locker

import "context"

// AdvisoryLocker serialises critical sections keyed by an int64.
// WithLock holds the lock for the whole of fn and releases it even if fn fails.
type AdvisoryLocker interface {
	WithLock(ctx context.Context, key int64, fn func(ctx context.Context) error) error
}
