package locker

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/semaphore"

	portlocker "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/locker"
)

var _ portlocker.AdvisoryLocker = (*Locker)(nil)

// Locker implements port/locker.AdvisoryLocker with transaction-scoped Postgres
// advisory locks. The lock lives exactly as long as the wrapping transaction, so
// it is released on commit, rollback, or a dropped connection.
//
// Each holder pins one pool connection while fn borrows others, so the number
// of concurrent holders is capped at half of the connections left after the
// long-lived listeners. fn can always get a connection.
type Locker struct {
	pool  *pgxpool.Pool
	slots *semaphore.Weighted
}

// New returns a Locker on pool. reserved is the number of connections held
// elsewhere for the life of the process (LISTEN sessions).
func New(pool *pgxpool.Pool, reserved int32) *Locker {
	return &Locker{
		pool:  pool,
		slots: semaphore.NewWeighted(Slots(pool.Config().MaxConns, reserved)),
	}
}

// Slots is the number of concurrent lock holders a pool of maxConns can carry
// with reserved connections pinned elsewhere. Never less than one.
func Slots(maxConns, reserved int32) int64 {
	n := int64(maxConns-reserved) / 2
	if n < 1 {
		return 1
	}
	return n
}

func (l *Locker) WithLock(ctx context.Context, key int64, fn func(ctx context.Context) error) error {
	if err := l.slots.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("wait for advisory lock slot: %w", err)
	}
	defer l.slots.Release(1)

	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin advisory lock transaction: %w", err)
	}
	// Rollback after Commit is a no-op; context.Background() so the lock is
	// released even if ctx was cancelled mid-fn.
	defer tx.Rollback(context.Background()) //nolint:errcheck

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", key); err != nil {
		return fmt.Errorf("acquire advisory lock: %w", err)
	}

	if err := fn(ctx); err != nil {
		return err
	}
	if err := tx.Commit(context.Background()); err != nil {
		return fmt.Errorf("release advisory lock: %w", err)
	}
	return nil
}
